package source

import (
	"context"
	"encoding/json"

	"planfact/internal/core"
)

// Ports for the remote reporting data source.
type (
	// MonthlyReader fetches the report for one ISO month key (YYYY-MM-01).
	MonthlyReader interface {
		MonthlyReport(ctx context.Context, monthISO string) (core.MonthlyReport, error)
	}

	// DailyReader fetches the report for one ISO day key.
	DailyReader interface {
		DailyReport(ctx context.Context, dayISO string) (core.DailyReport, error)
	}

	// PeriodLister returns the selectable month and day keys.
	PeriodLister interface {
		Months(ctx context.Context) ([]string, error)
		Days(ctx context.Context) ([]string, error)
	}

	// BreakdownReader returns the raw per-day decomposition of one work
	// item's contribution within a month. Normalization into display rows
	// is the drilldown package's job.
	BreakdownReader interface {
		WorkBreakdown(ctx context.Context, monthISO, work string) (json.RawMessage, error)
	}

	// PDFReader returns the rendered monthly report as PDF bytes together
	// with the upstream-suggested file name.
	PDFReader interface {
		PDF(ctx context.Context, monthISO string) (data []byte, filename string, err error)
	}

	// ReportSource is the full surface the dashboard needs.
	ReportSource interface {
		MonthlyReader
		DailyReader
		PeriodLister
		BreakdownReader
		PDFReader
	}
)
