package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CalculateDelta returns the item's delta: the explicit server override
// when present, otherwise fact minus planned with absent amounts treated
// as zero.
func CalculateDelta(it LineItem) decimal.Decimal {
	if it.DeltaAmount.Valid {
		return it.DeltaAmount.Dec
	}
	return it.FactAmount.OrZero().Sub(it.PlannedAmount.OrZero())
}

// CalculateMetrics derives the headline numbers for a report. Values from
// the pre-aggregated summary win over anything recomputed from the items;
// completion stays absent when the planned total is zero or absent rather
// than dividing by zero.
func CalculateMetrics(items []LineItem, summary *Summary) Metrics {
	var m Metrics

	var plannedSum, factSum sum
	for _, it := range items {
		if !it.Meaningful() {
			continue
		}
		plannedSum.add(it.PlannedAmount)
		factSum.add(it.FactAmount)
	}

	m.Planned = plannedSum.amount()
	m.Fact = factSum.amount()
	if summary != nil && summary.PlannedAmount.Valid {
		m.Planned = summary.PlannedAmount
	}
	if summary != nil && summary.FactAmount.Valid {
		m.Fact = summary.FactAmount
	}

	switch {
	case summary != nil && summary.CompletionPct.Valid:
		m.Completion = summary.CompletionPct
	case m.Planned.Meaningful() && m.Fact.Valid:
		m.Completion = NewAmount(m.Fact.Dec.Div(m.Planned.Dec))
	}

	switch {
	case summary != nil && summary.DeltaAmount.Valid:
		m.Delta = summary.DeltaAmount
	case m.Planned.Valid || m.Fact.Valid:
		m.Delta = NewAmount(m.Fact.OrZero().Sub(m.Planned.OrZero()))
	}

	if summary != nil && len(summary.DailyRevenue) > 0 {
		m.DailyRevenue = sortedRevenue(summary.DailyRevenue)
	}
	if summary != nil && summary.AverageDailyRevenue.Valid {
		m.AverageDailyRevenue = summary.AverageDailyRevenue
	} else {
		m.AverageDailyRevenue = averageRevenue(m.DailyRevenue)
	}

	return m
}

// CalculateContractMetrics derives contract completion from the summary.
// Returns nil when the report carries no summary at all.
func CalculateContractMetrics(summary *Summary) *ContractMetrics {
	if summary == nil {
		return nil
	}
	cm := &ContractMetrics{
		Amount:   summary.ContractAmount,
		Executed: summary.ContractExecuted,
	}
	switch {
	case summary.ContractCompletionPct.Valid:
		cm.Completion = summary.ContractCompletionPct
	case summary.ContractAmount.Meaningful() && summary.ContractExecuted.Valid:
		cm.Completion = NewAmount(summary.ContractExecuted.Dec.Div(summary.ContractAmount.Dec))
	}
	return cm
}

// sortedRevenue returns the series ordered ascending by date. Insertion
// order from the API is not assumed stable.
func sortedRevenue(points []DailyRevenuePoint) []DailyRevenuePoint {
	out := make([]DailyRevenuePoint, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func averageRevenue(points []DailyRevenuePoint) Amount {
	var s sum
	for _, p := range points {
		s.add(p.Amount)
	}
	if !s.any || len(points) == 0 {
		return Amount{}
	}
	return NewAmount(s.total.Div(decimal.NewFromInt(int64(len(points)))))
}
