// Package drilldown normalizes work-breakdown and daily-report payloads
// into a single row shape for modal and table display.
package drilldown

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"planfact/internal/core"

	"github.com/shopspring/decimal"
)

// Mode selects which columns a breakdown table shows.
type Mode string

const (
	// ModeAverage shows date and amount only.
	ModeAverage Mode = "average"
	// ModeWork additionally shows unit and total amount.
	ModeWork Mode = "work"
)

// Row is one normalized breakdown record.
type Row struct {
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Unit        string          `json:"unit,omitempty"`
	TotalAmount core.Amount     `json:"total_amount"`
}

// Candidate source fields per target, tried in order. The upstream has
// shipped several shapes of this payload over time.
var (
	amountKeys = []string{"amount", "total_volume", "value"}
	dateKeys   = []string{"date", "work_date", "day"}
	unitKeys   = []string{"unit"}
	totalKeys  = []string{"total_amount", "totalAmount"}
)

// Normalize converts a raw work-breakdown response into ordered rows.
// Accepts either a bare JSON array or an object wrapping it in a "daily"
// field. Records without a usable date or a finite amount are dropped.
// Rows come back sorted ascending by date; the total row is the consumer's
// concern, not ours.
func Normalize(raw json.RawMessage) ([]Row, error) {
	records, err := decodeRecords(raw)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		date, ok := pickDate(rec)
		if !ok {
			continue
		}
		amount := pickAmount(rec, amountKeys)
		if !amount.Valid {
			continue
		}
		row := Row{
			Date:        date,
			Amount:      amount.Dec,
			TotalAmount: pickAmount(rec, totalKeys),
		}
		if unit, ok := pickString(rec, unitKeys); ok {
			row.Unit = unit
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows, nil
}

// InferMode returns ModeWork when any row carries a unit or total amount,
// ModeAverage otherwise. Callers may override the inference.
func InferMode(rows []Row) Mode {
	for _, r := range rows {
		if r.Unit != "" || r.TotalAmount.Valid {
			return ModeWork
		}
	}
	return ModeAverage
}

// ValidMode reports whether m is a known display mode.
func ValidMode(m Mode) bool {
	return m == ModeAverage || m == ModeWork
}

func decodeRecords(raw json.RawMessage) ([]map[string]any, error) {
	var records []map[string]any

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		var wrapper struct {
			Daily []map[string]any `json:"daily"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, fmt.Errorf("decode breakdown object: %w", err)
		}
		records = wrapper.Daily
	} else {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("decode breakdown array: %w", err)
		}
	}
	return records, nil
}

// pickDate returns the first usable date among the candidate fields,
// normalized to YYYY-MM-DD.
func pickDate(rec map[string]any) (string, bool) {
	for _, key := range dateKeys {
		s, ok := rec[key].(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if len(s) > 10 {
			s = s[:10]
		}
		if _, err := time.Parse("2006-01-02", s); err == nil {
			return s, true
		}
	}
	return "", false
}

func pickAmount(rec map[string]any, keys []string) core.Amount {
	for _, key := range keys {
		v, ok := rec[key]
		if !ok || v == nil {
			continue
		}
		if a := core.AmountFromAny(v); a.Valid {
			return a
		}
	}
	return core.Amount{}
}

func pickString(rec map[string]any, keys []string) (string, bool) {
	for _, key := range keys {
		if s, ok := rec[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), true
		}
	}
	return "", false
}
