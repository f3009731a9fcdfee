// Package memory implements the ReportSource port with in-process data.
// Used as the default backend for local development and as the fixture
// source in tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"planfact/internal/core"
	"planfact/internal/source"
)

// Store is an in-memory ReportSource.
type Store struct {
	mu      sync.RWMutex
	monthly map[string]core.MonthlyReport
	daily   map[string]core.DailyReport
	// breakdown is keyed "<month>|<work>"
	breakdown map[string]json.RawMessage
	pdf       []byte
}

// Ensure interface conformance
var _ source.ReportSource = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		monthly:   map[string]core.MonthlyReport{},
		daily:     map[string]core.DailyReport{},
		breakdown: map[string]json.RawMessage{},
	}
}

// NewSeeded creates a Store with a small sample month so the dashboard
// renders something out of the box.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
	s.SetMonthly(core.MonthlyReport{
		Month:   month,
		HasData: true,
		Items: []core.LineItem{
			{Category: "paving", WorkName: "Asphalt repair", PlannedAmount: core.AmountFromFloat(1200000), FactAmount: core.AmountFromFloat(950000)},
			{Category: "paving", WorkName: "Curb replacement", PlannedAmount: core.AmountFromFloat(300000), FactAmount: core.AmountFromFloat(410000)},
			{Category: "landscaping", WorkName: "Lawn restoration", PlannedAmount: core.AmountFromFloat(150000), FactAmount: core.AmountFromFloat(120000)},
		},
	})
	return s
}

// SetMonthly stores a monthly report under its month key.
func (s *Store) SetMonthly(rep core.MonthlyReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monthly[rep.Month] = rep
}

// SetDaily stores a daily report under its date key.
func (s *Store) SetDaily(rep core.DailyReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.daily[rep.Date] = rep
}

// SetBreakdown stores a raw breakdown payload for a month and work name.
func (s *Store) SetBreakdown(monthISO, work string, raw json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.breakdown[monthISO+"|"+work] = raw
}

// SetPDF stores the bytes returned by PDF.
func (s *Store) SetPDF(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pdf = data
}

// MonthlyReport implements source.MonthlyReader.
func (s *Store) MonthlyReport(_ context.Context, monthISO string) (core.MonthlyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rep, ok := s.monthly[monthISO]
	if !ok {
		// Empty months exist upstream too: respond with no data rather
		// than an error.
		return core.MonthlyReport{Month: monthISO, HasData: false}, nil
	}
	return rep, nil
}

// DailyReport implements source.DailyReader.
func (s *Store) DailyReport(_ context.Context, dayISO string) (core.DailyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rep, ok := s.daily[dayISO]
	if !ok {
		return core.DailyReport{Date: dayISO, HasData: false}, nil
	}
	return rep, nil
}

// Months implements source.PeriodLister, ascending.
func (s *Store) Months(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.monthly))
	for k := range s.monthly {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// Days implements source.PeriodLister, ascending.
func (s *Store) Days(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.daily))
	for k := range s.daily {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// WorkBreakdown implements source.BreakdownReader.
func (s *Store) WorkBreakdown(_ context.Context, monthISO, work string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.breakdown[monthISO+"|"+work]
	if !ok {
		return json.RawMessage(`[]`), nil
	}
	return raw, nil
}

// PDF implements source.PDFReader.
func (s *Store) PDF(_ context.Context, monthISO string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.pdf) == 0 {
		return nil, "", fmt.Errorf("no pdf seeded for %s", monthISO)
	}
	return s.pdf, fmt.Sprintf("planfact-report-%s.pdf", monthISO), nil
}
