package dashboard

import (
	"time"

	"planfact/internal/core"
)

// ViewModel is the object handed to the rendering layer on every render
// cycle. It is rebuilt wholesale on each state change and must not be
// mutated by the consumer.
type ViewModel struct {
	SelectedMonth string          `json:"selected_month"`
	SelectedDay   string          `json:"selected_day"`
	ViewMode      ViewMode        `json:"view_mode"`
	SortColumn    core.SortColumn `json:"sort_column"`
	SearchTerm    string          `json:"search_term"`

	Categories      []core.Category          `json:"categories"`
	ActiveCategory  *core.Category           `json:"active_category"`
	Metrics         core.Metrics             `json:"metrics"`
	ContractMetrics *core.ContractMetrics    `json:"contract_metrics"`
	DailyRevenue    []core.DailyRevenuePoint `json:"daily_revenue"`
	SortedWorks     []core.LineItem          `json:"sorted_works"`

	HasData     bool       `json:"has_data"`
	LastUpdated *time.Time `json:"last_updated"`

	LoadingState LoadingState `json:"loading_state"`
	ErrorState   *ErrorState  `json:"error_state"`
}

// Snapshot builds the view-model for the current state and data.
func (c *Coordinator) Snapshot() ViewModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buildViewModelLocked()
}

func (c *Coordinator) buildViewModelLocked() ViewModel {
	items := c.currentItemsLocked()
	cats := core.BuildCategories(items, c.coll)
	active := core.FindCategory(cats, c.state.ActiveCategoryKey)

	var works []core.LineItem
	if active != nil {
		works = core.SortWorks(
			core.FilterWorks(active.Works, c.state.SearchTerm),
			c.state.WorkSortColumn,
			c.coll,
		)
	}

	var (
		metrics     core.Metrics
		contract    *core.ContractMetrics
		hasData     bool
		lastUpdated *time.Time
	)
	if c.state.ViewMode == ModeDaily {
		metrics = core.CalculateMetrics(c.dailyRep.Items, nil)
		hasData = c.hasDaily && c.dailyRep.HasData
	} else {
		metrics = core.CalculateMetrics(c.monthly.Items, c.monthly.Summary)
		contract = core.CalculateContractMetrics(c.monthly.Summary)
		hasData = c.hasMonthly && c.monthly.HasData
		lastUpdated = c.monthly.LastUpdated
	}

	return ViewModel{
		SelectedMonth:   c.state.SelectedMonth,
		SelectedDay:     c.state.SelectedDay,
		ViewMode:        c.state.ViewMode,
		SortColumn:      c.state.WorkSortColumn,
		SearchTerm:      c.state.SearchTerm,
		Categories:      cats,
		ActiveCategory:  active,
		Metrics:         metrics,
		ContractMetrics: contract,
		DailyRevenue:    metrics.DailyRevenue,
		SortedWorks:     works,
		HasData:         hasData,
		LastUpdated:     lastUpdated,
		LoadingState:    c.loading,
		ErrorState:      c.errState,
	}
}
