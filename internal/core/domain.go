package core

import "time"

// UntitledWorkLabel is shown for line items that carry neither a work name
// nor a description.
const UntitledWorkLabel = "Untitled"

type (
	// LineItem is one budget row as received from the API. Immutable once
	// decoded; aggregation never mutates items in place.
	LineItem struct {
		Category    string `json:"category"`
		WorkName    string `json:"work_name"`
		Description string `json:"description"`

		PlannedAmount Amount `json:"planned_amount"`
		FactAmount    Amount `json:"fact_amount"`

		// DeltaAmount is an optional server-side override; when present it
		// replaces the computed fact-planned delta for this item.
		DeltaAmount Amount `json:"delta_amount"`

		// PlanOnly excludes the item from a category's work list while
		// still counting it toward the category totals.
		PlanOnly bool `json:"is_category_plan_only"`
	}

	// Category aggregates line items sharing a resolved category key.
	// Sums are always the arithmetic sum of the contributing items.
	Category struct {
		Key     string     `json:"key"`
		Title   string     `json:"title"`
		Works   []LineItem `json:"works"`
		Planned Amount     `json:"planned"`
		Fact    Amount     `json:"fact"`
		Delta   Amount     `json:"delta"`
	}

	// DailyRevenuePoint is one day of the revenue series.
	DailyRevenuePoint struct {
		Date   string `json:"date"`
		Amount Amount `json:"amount"`
	}

	// Summary carries the server's pre-aggregated totals. When present its
	// values win over anything recomputed from the items.
	Summary struct {
		PlannedAmount       Amount              `json:"planned_amount"`
		FactAmount          Amount              `json:"fact_amount"`
		CompletionPct       Amount              `json:"completion_pct"`
		DeltaAmount         Amount              `json:"delta_amount"`
		DailyRevenue        []DailyRevenuePoint `json:"daily_revenue"`
		AverageDailyRevenue Amount              `json:"average_daily_revenue"`

		ContractAmount        Amount `json:"contract_amount"`
		ContractExecuted      Amount `json:"contract_executed"`
		ContractCompletionPct Amount `json:"contract_completion_pct"`
	}

	// MonthlyReport is the payload for one month key.
	MonthlyReport struct {
		Month       string     `json:"month"`
		Items       []LineItem `json:"items"`
		HasData     bool       `json:"has_data"`
		LastUpdated *time.Time `json:"last_updated"`
		Summary     *Summary   `json:"summary"`
	}

	// DailyReport is the payload for one day key.
	DailyReport struct {
		Date    string     `json:"date"`
		Items   []LineItem `json:"items"`
		HasData bool       `json:"has_data"`
	}

	// Metrics are the derived headline numbers for a report.
	Metrics struct {
		Planned             Amount              `json:"planned"`
		Fact                Amount              `json:"fact"`
		Completion          Amount              `json:"completion"`
		Delta               Amount              `json:"delta"`
		DailyRevenue        []DailyRevenuePoint `json:"daily_revenue"`
		AverageDailyRevenue Amount              `json:"average_daily_revenue"`
	}

	// ContractMetrics track completion against the overall contract value,
	// distinct from the monthly plan/fact pair.
	ContractMetrics struct {
		Amount     Amount `json:"amount"`
		Executed   Amount `json:"executed"`
		Completion Amount `json:"completion"`
	}
)

// Name returns the display name for the item: work name, then description,
// then the untitled placeholder.
func (it LineItem) Name() string {
	if it.WorkName != "" {
		return it.WorkName
	}
	if it.Description != "" {
		return it.Description
	}
	return UntitledWorkLabel
}

// Meaningful reports whether the item carries any non-zero amount and
// therefore participates in aggregation.
func (it LineItem) Meaningful() bool {
	return it.PlannedAmount.Meaningful() || it.FactAmount.Meaningful()
}
