// Package dashboard reconciles user view selections with the fetched and
// derived report data so the rendered output is always consistent.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"planfact/internal/core"
	applog "planfact/internal/log"
	"planfact/internal/source"
)

// ViewMode selects between the monthly and the daily report view.
type ViewMode string

const (
	ModeMonthly ViewMode = "monthly"
	ModeDaily   ViewMode = "daily"
)

// LoadingState describes what the view is currently waiting for.
type LoadingState string

const (
	// LoadingIdle: nothing in flight.
	LoadingIdle LoadingState = "idle"
	// LoadingActive: fetching with nothing cached to show meanwhile.
	LoadingActive LoadingState = "loading"
	// LoadingRefreshing: fetching while stale cached data stays visible.
	LoadingRefreshing LoadingState = "refreshing"
)

// ErrorState is the per-key failure surfaced to the rendering layer. A
// non-blocking state is the "failed to refresh" notice shown over still
// valid cached data; a blocking one replaces the view.
type ErrorState struct {
	Key      string `json:"key"`
	Message  string `json:"message"`
	Blocking bool   `json:"blocking"`
}

var (
	// ErrNoSelection means an operation needed a month or day key and
	// none was chosen. Caller bug, never retried.
	ErrNoSelection = errors.New("no period selected")

	// ErrUnknownMode rejects a view mode outside {monthly, daily}.
	ErrUnknownMode = errors.New("unknown view mode")

	// ErrUnknownSort rejects a sort column outside {planned, fact, delta}.
	ErrUnknownSort = errors.New("unknown sort column")
)

// ViewState holds every user-selectable knob. Owned exclusively by the
// Coordinator; everything else sees it read-only.
type ViewState struct {
	SelectedMonth     string          `json:"selected_month"`
	SelectedDay       string          `json:"selected_day"`
	ViewMode          ViewMode        `json:"view_mode"`
	ActiveCategoryKey string          `json:"active_category_key"`
	WorkSortColumn    core.SortColumn `json:"work_sort_column"`
	SearchTerm        string          `json:"search_term"`
}

// Coordinator applies user actions to the view state, drives fetches
// through the loader and rebuilds the view-model. All mutation happens
// under one mutex; fetch completions re-check that their selection is
// still current before committing, so a response that arrives after a
// newer selection never overwrites the displayed view.
type Coordinator struct {
	mu     sync.Mutex
	loader *Loader
	src    source.ReportSource
	coll   *core.Collator

	state      ViewState
	generation uint64

	monthly    core.MonthlyReport
	hasMonthly bool
	dailyRep   core.DailyReport
	hasDaily   bool

	days       []string
	daysLoaded bool

	loading  LoadingState
	errState *ErrorState

	subs []func(ViewModel)
}

// NewCoordinator creates a coordinator in the monthly view with nothing
// selected. A nil collator falls back to plain case-folded comparison.
func NewCoordinator(src source.ReportSource, loader *Loader, coll *core.Collator) *Coordinator {
	return &Coordinator{
		loader: loader,
		src:    src,
		coll:   coll,
		state: ViewState{
			ViewMode:       ModeMonthly,
			WorkSortColumn: core.SortByPlanned,
		},
		loading: LoadingIdle,
	}
}

// Subscribe registers a consumer notified with a fresh view-model after
// every state change. The consumer must not mutate the model.
func (c *Coordinator) Subscribe(fn func(ViewModel)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

// State returns a copy of the current view state.
func (c *Coordinator) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SelectMonth switches the monthly view to the given ISO month key.
// Cached data renders immediately while a forced refresh runs; on failure
// the cached data stays up with a non-blocking notice, or a blocking error
// state when nothing was cached. The returned error is already reflected
// in the view state.
func (c *Coordinator) SelectMonth(ctx context.Context, monthISO string) error {
	if monthISO == "" {
		return ErrNoSelection
	}

	c.mu.Lock()
	c.state.SelectedMonth = monthISO
	c.generation++
	gen := c.generation

	cached, hasCached := c.loader.CachedMonth(monthISO)
	if hasCached {
		// Optimistic render of the last known payload for this key
		c.monthly, c.hasMonthly = cached, true
		c.loading = LoadingRefreshing
	} else {
		c.monthly, c.hasMonthly = core.MonthlyReport{}, false
		c.loading = LoadingActive
	}
	c.errState = nil
	c.healActiveCategoryLocked()
	c.mu.Unlock()
	c.notify()

	// Forced: a cache hit still refreshes staleness
	rep, err := c.loader.Month(ctx, monthISO, true)

	c.mu.Lock()
	if gen != c.generation || c.state.SelectedMonth != monthISO {
		// Superseded by a newer selection. The loader already warmed the
		// cache under this response's own key; the view belongs to the
		// newer selection now.
		c.mu.Unlock()
		slog.DebugContext(ctx, "Discarding superseded month response", applog.FieldMonth, monthISO)
		return nil
	}
	if err != nil {
		c.applyFetchFailureLocked(ctx, monthISO, c.hasMonthly, err)
		c.mu.Unlock()
		c.notify()
		return err
	}
	c.monthly, c.hasMonthly = rep, true
	c.loading = LoadingIdle
	c.errState = nil
	c.healActiveCategoryLocked()
	c.mu.Unlock()
	c.notify()
	return nil
}

// SelectDay switches the daily view to the given ISO day key, with the
// same cache-then-refresh and supersede semantics as SelectMonth.
func (c *Coordinator) SelectDay(ctx context.Context, dayISO string) error {
	if dayISO == "" {
		return ErrNoSelection
	}

	c.mu.Lock()
	c.state.SelectedDay = dayISO
	c.generation++
	gen := c.generation

	cached, hasCached := c.loader.CachedDay(dayISO)
	if hasCached {
		c.dailyRep, c.hasDaily = cached, true
		c.loading = LoadingRefreshing
	} else {
		c.dailyRep, c.hasDaily = core.DailyReport{}, false
		c.loading = LoadingActive
	}
	c.errState = nil
	c.healActiveCategoryLocked()
	c.mu.Unlock()
	c.notify()

	rep, err := c.loader.Day(ctx, dayISO, true)

	c.mu.Lock()
	if gen != c.generation || c.state.SelectedDay != dayISO {
		c.mu.Unlock()
		slog.DebugContext(ctx, "Discarding superseded day response", applog.FieldDay, dayISO)
		return nil
	}
	if err != nil {
		c.applyFetchFailureLocked(ctx, dayISO, c.hasDaily, err)
		c.mu.Unlock()
		c.notify()
		return err
	}
	c.dailyRep, c.hasDaily = rep, true
	c.loading = LoadingIdle
	c.errState = nil
	c.healActiveCategoryLocked()
	c.mu.Unlock()
	c.notify()
	return nil
}

// SwitchViewMode changes between monthly and daily. Switching to the mode
// already active is a no-op. Entering daily for the first time lazily
// loads the available-days list and selects the most recent day, or keeps
// the current day when it is still listed. Entering monthly has no side
// effect beyond the labels.
func (c *Coordinator) SwitchViewMode(ctx context.Context, mode ViewMode) error {
	if mode != ModeMonthly && mode != ModeDaily {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	c.mu.Lock()
	if c.state.ViewMode == mode {
		c.mu.Unlock()
		return nil
	}
	c.state.ViewMode = mode

	if mode == ModeMonthly {
		c.mu.Unlock()
		c.notify()
		return nil
	}

	if !c.daysLoaded {
		days, err := c.src.Days(ctx)
		if err != nil {
			c.errState = &ErrorState{Message: "failed to load day list", Blocking: !c.hasDaily}
			c.loading = LoadingIdle
			c.mu.Unlock()
			c.notify()
			slog.ErrorContext(ctx, "Day list load failed",
				applog.FieldComponent, applog.ComponentDashboard,
				applog.FieldError, err)
			return err
		}
		c.days = days
		c.daysLoaded = true
	}

	day := c.state.SelectedDay
	if day == "" || !contains(c.days, day) {
		day = latest(c.days)
	}
	c.mu.Unlock()

	if day == "" {
		// No days available at all; the view renders empty
		c.notify()
		return nil
	}
	return c.SelectDay(ctx, day)
}

// SetActiveCategory activates the category with the given key for the
// drill-down panes. A key that does not survive the current category list
// auto-heals to the first category in sorted order.
func (c *Coordinator) SetActiveCategory(key string) {
	c.mu.Lock()
	c.state.ActiveCategoryKey = key
	c.healActiveCategoryLocked()
	c.mu.Unlock()
	c.notify()
}

// SetSortColumn changes the work-list ordering.
func (c *Coordinator) SetSortColumn(col core.SortColumn) error {
	if !core.ValidSortColumn(col) {
		return fmt.Errorf("%w: %q", ErrUnknownSort, col)
	}
	c.mu.Lock()
	c.state.WorkSortColumn = col
	c.mu.Unlock()
	c.notify()
	return nil
}

// SetSearch sets the case-insensitive work-name filter.
func (c *Coordinator) SetSearch(term string) {
	c.mu.Lock()
	c.state.SearchTerm = term
	c.mu.Unlock()
	c.notify()
}

// ForceRefresh re-fetches the current selection, bypassing the cache.
func (c *Coordinator) ForceRefresh(ctx context.Context) error {
	c.mu.Lock()
	mode := c.state.ViewMode
	month := c.state.SelectedMonth
	day := c.state.SelectedDay
	c.mu.Unlock()

	if mode == ModeDaily {
		if day == "" {
			return ErrNoSelection
		}
		return c.SelectDay(ctx, day)
	}
	if month == "" {
		return ErrNoSelection
	}
	return c.SelectMonth(ctx, month)
}

// Days returns the cached available-days list, loading it on first use.
func (c *Coordinator) Days(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	if c.daysLoaded {
		days := c.days
		c.mu.Unlock()
		return days, nil
	}
	c.mu.Unlock()

	days, err := c.src.Days(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.days = days
	c.daysLoaded = true
	c.mu.Unlock()
	return days, nil
}

// applyFetchFailureLocked maps a surfaced fetch error onto the view per
// the failure policy: keep cached data with a notice, or go blocking when
// there is nothing to show. Failures are always scoped to their key.
func (c *Coordinator) applyFetchFailureLocked(ctx context.Context, key string, hasCached bool, err error) {
	c.loading = LoadingIdle
	if hasCached {
		c.errState = &ErrorState{Key: key, Message: "failed to refresh", Blocking: false}
	} else {
		c.errState = &ErrorState{Key: key, Message: "failed to load", Blocking: true}
	}
	fields := applog.NewFields().
		WithComponent(applog.ComponentDashboard).
		WithOperation(applog.OpFetch).
		WithCacheKey(key).
		WithError(err).
		ToSlice()
	slog.ErrorContext(ctx, "Report fetch failed", append(fields, "cached_shown", hasCached)...)
}

// healActiveCategoryLocked keeps the active category key valid against the
// freshly rebuilt category list: a vanished key falls back to the first
// category in sorted order, or to no selection when the list is empty.
func (c *Coordinator) healActiveCategoryLocked() {
	cats := core.BuildCategories(c.currentItemsLocked(), c.coll)
	if core.FindCategory(cats, c.state.ActiveCategoryKey) != nil {
		return
	}
	if len(cats) > 0 {
		c.state.ActiveCategoryKey = cats[0].Key
		return
	}
	c.state.ActiveCategoryKey = ""
}

func (c *Coordinator) currentItemsLocked() []core.LineItem {
	if c.state.ViewMode == ModeDaily {
		return c.dailyRep.Items
	}
	return c.monthly.Items
}

func (c *Coordinator) notify() {
	c.mu.Lock()
	vm := c.buildViewModelLocked()
	subs := make([]func(ViewModel), len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(vm)
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// latest returns the maximum ISO date in the list; ISO strings order
// lexicographically.
func latest(list []string) string {
	out := ""
	for _, s := range list {
		if s > out {
			out = s
		}
	}
	return out
}
