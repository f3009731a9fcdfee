package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"planfact/internal/core"
	"planfact/internal/source"
)

// fakeSource is a controllable ReportSource: per-key payloads and errors,
// call counting, and an optional gate that blocks a month fetch until
// released so supersede races can be staged deterministically.
type fakeSource struct {
	mu         sync.Mutex
	monthly    map[string]core.MonthlyReport
	daily      map[string]core.DailyReport
	days       []string
	monthErr   map[string]error
	daysErr    error
	monthCalls map[string]int
	dayCalls   map[string]int

	gates   map[string]chan struct{} // fetch blocks until closed
	started map[string]chan struct{} // closed when the fetch begins
}

var _ source.ReportSource = (*fakeSource)(nil)

func newFakeSource() *fakeSource {
	return &fakeSource{
		monthly:    map[string]core.MonthlyReport{},
		daily:      map[string]core.DailyReport{},
		monthErr:   map[string]error{},
		monthCalls: map[string]int{},
		dayCalls:   map[string]int{},
		gates:      map[string]chan struct{}{},
		started:    map[string]chan struct{}{},
	}
}

func (f *fakeSource) MonthlyReport(ctx context.Context, monthISO string) (core.MonthlyReport, error) {
	f.mu.Lock()
	f.monthCalls[monthISO]++
	started := f.started[monthISO]
	gate := f.gates[monthISO]
	err := f.monthErr[monthISO]
	rep := f.monthly[monthISO]
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return core.MonthlyReport{}, err
	}
	return rep, nil
}

func (f *fakeSource) DailyReport(ctx context.Context, dayISO string) (core.DailyReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dayCalls[dayISO]++
	return f.daily[dayISO], nil
}

func (f *fakeSource) Months(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeSource) Days(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.days, f.daysErr
}

func (f *fakeSource) WorkBreakdown(ctx context.Context, monthISO, work string) (json.RawMessage, error) {
	return json.RawMessage(`[]`), nil
}

func (f *fakeSource) PDF(ctx context.Context, monthISO string) ([]byte, string, error) {
	return nil, "", errors.New("not implemented")
}

func (f *fakeSource) calls(monthISO string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.monthCalls[monthISO]
}

func monthReport(month string, items ...core.LineItem) core.MonthlyReport {
	return core.MonthlyReport{Month: month, Items: items, HasData: len(items) > 0}
}

func li(cat, name string, planned, fact float64) core.LineItem {
	return core.LineItem{
		Category:      cat,
		WorkName:      name,
		PlannedAmount: core.AmountFromFloat(planned),
		FactAmount:    core.AmountFromFloat(fact),
	}
}

func newTestCoordinator(src source.ReportSource) *Coordinator {
	return NewCoordinator(src, NewLoader(src), nil)
}

func TestLoaderCachesPerKey(t *testing.T) {
	src := newFakeSource()
	src.monthly["2025-06-01"] = monthReport("2025-06-01", li("paving", "a", 10, 5))
	l := NewLoader(src)
	ctx := context.Background()

	if _, err := l.Month(ctx, "2025-06-01", false); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if _, err := l.Month(ctx, "2025-06-01", false); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if got := src.calls("2025-06-01"); got != 1 {
		t.Fatalf("cache hit must not touch the network, got %d calls", got)
	}

	if _, err := l.Month(ctx, "2025-06-01", true); err != nil {
		t.Fatalf("forced load: %v", err)
	}
	if got := src.calls("2025-06-01"); got != 2 {
		t.Fatalf("forced load must bypass the cache, got %d calls", got)
	}
}

func TestLoaderConcurrentSameKeySingleFetch(t *testing.T) {
	src := newFakeSource()
	src.monthly["2025-07-01"] = monthReport("2025-07-01", li("paving", "a", 10, 5))
	src.gates["2025-07-01"] = make(chan struct{})
	src.started["2025-07-01"] = make(chan struct{})
	l := NewLoader(src)
	ctx := context.Background()

	var wg sync.WaitGroup
	reps := make([]core.MonthlyReport, 3)
	errs := make([]error, 3)
	load := func(i int) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reps[i], errs[i] = l.Month(ctx, "2025-07-01", true)
		}()
	}

	load(0)
	<-src.started["2025-07-01"]
	load(1)
	load(2)
	// Give the followers time to attach to the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(src.gates["2025-07-01"])
	wg.Wait()

	for i := range errs {
		if errs[i] != nil {
			t.Fatalf("call %d failed: %v", i, errs[i])
		}
		if reps[i].Month != "2025-07-01" {
			t.Fatalf("call %d got the wrong report: %+v", i, reps[i])
		}
	}
	if got := src.calls("2025-07-01"); got != 1 {
		t.Fatalf("concurrent same-key loads must share one fetch, got %d", got)
	}
}

func TestLoaderFailureLeavesCacheIntact(t *testing.T) {
	src := newFakeSource()
	src.monthly["2025-06-01"] = monthReport("2025-06-01", li("paving", "a", 10, 5))
	l := NewLoader(src)
	ctx := context.Background()

	if _, err := l.Month(ctx, "2025-06-01", false); err != nil {
		t.Fatalf("seed load: %v", err)
	}

	src.mu.Lock()
	src.monthErr["2025-06-01"] = errors.New("upstream down")
	src.mu.Unlock()

	if _, err := l.Month(ctx, "2025-06-01", true); err == nil {
		t.Fatalf("expected failure")
	}
	cached, ok := l.CachedMonth("2025-06-01")
	if !ok || !cached.HasData {
		t.Fatalf("failed refresh must not evict the cached payload")
	}
}

func TestSelectMonthSuccess(t *testing.T) {
	src := newFakeSource()
	src.monthly["2025-06-01"] = monthReport("2025-06-01",
		li("paving", "asphalt", 100, 80),
		li("landscaping", "trees", 50, 20),
	)
	c := newTestCoordinator(src)

	if err := c.SelectMonth(context.Background(), "2025-06-01"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vm := c.Snapshot()
	if vm.SelectedMonth != "2025-06-01" || !vm.HasData {
		t.Fatalf("view wrong: month=%s hasData=%v", vm.SelectedMonth, vm.HasData)
	}
	if vm.LoadingState != LoadingIdle || vm.ErrorState != nil {
		t.Fatalf("expected idle and clean: %s %+v", vm.LoadingState, vm.ErrorState)
	}
	if len(vm.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(vm.Categories))
	}
	// active category auto-selected to the first in sorted order
	if vm.ActiveCategory == nil || vm.ActiveCategory.Key != "paving" {
		t.Fatalf("active category wrong: %+v", vm.ActiveCategory)
	}
}

func TestSelectMonthEmptyKey(t *testing.T) {
	c := newTestCoordinator(newFakeSource())
	if err := c.SelectMonth(context.Background(), ""); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
}

func TestSelectMonthFailureNothingCached(t *testing.T) {
	src := newFakeSource()
	src.monthErr["2025-06-01"] = errors.New("boom")
	c := newTestCoordinator(src)

	if err := c.SelectMonth(context.Background(), "2025-06-01"); err == nil {
		t.Fatalf("expected error")
	}

	vm := c.Snapshot()
	if vm.ErrorState == nil || !vm.ErrorState.Blocking {
		t.Fatalf("expected a blocking error state: %+v", vm.ErrorState)
	}
	if vm.ErrorState.Key != "2025-06-01" {
		t.Fatalf("error not scoped to its key: %+v", vm.ErrorState)
	}
	if vm.LoadingState != LoadingIdle || vm.HasData {
		t.Fatalf("expected idle, no data: %s %v", vm.LoadingState, vm.HasData)
	}
}

func TestSelectMonthFailureKeepsCachedData(t *testing.T) {
	src := newFakeSource()
	src.monthly["2025-06-01"] = monthReport("2025-06-01", li("paving", "a", 10, 5))
	c := newTestCoordinator(src)
	ctx := context.Background()

	if err := c.SelectMonth(ctx, "2025-06-01"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	src.mu.Lock()
	src.monthErr["2025-06-01"] = errors.New("upstream down")
	src.mu.Unlock()

	if err := c.SelectMonth(ctx, "2025-06-01"); err == nil {
		t.Fatalf("expected refresh failure")
	}

	vm := c.Snapshot()
	if !vm.HasData {
		t.Fatalf("cached data must stay visible")
	}
	if vm.ErrorState == nil || vm.ErrorState.Blocking {
		t.Fatalf("expected a non-blocking notice: %+v", vm.ErrorState)
	}
	if vm.ErrorState.Message != "failed to refresh" {
		t.Fatalf("unexpected message: %q", vm.ErrorState.Message)
	}
}

func TestSelectMonthSupersededResponseDiscarded(t *testing.T) {
	src := newFakeSource()
	slow := monthReport("2025-05-01", li("paving", "old work", 1, 1))
	fast := monthReport("2025-06-01", li("paving", "new work", 2, 2))
	src.monthly["2025-05-01"] = slow
	src.monthly["2025-06-01"] = fast
	src.gates["2025-05-01"] = make(chan struct{})
	src.started["2025-05-01"] = make(chan struct{})

	c := newTestCoordinator(src)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- c.SelectMonth(ctx, "2025-05-01") }()

	// Wait for the slow fetch to be in flight, then switch away
	<-src.started["2025-05-01"]
	if err := c.SelectMonth(ctx, "2025-06-01"); err != nil {
		t.Fatalf("newer selection: %v", err)
	}

	close(src.gates["2025-05-01"])
	if err := <-done; err != nil {
		t.Fatalf("superseded selection should not error: %v", err)
	}

	vm := c.Snapshot()
	if vm.SelectedMonth != "2025-06-01" {
		t.Fatalf("selection overwritten by stale response: %s", vm.SelectedMonth)
	}
	if vm.ActiveCategory == nil || len(vm.ActiveCategory.Works) != 1 || vm.ActiveCategory.Works[0].WorkName != "new work" {
		t.Fatalf("stale payload leaked into the view: %+v", vm.ActiveCategory)
	}

	// The stale response still warmed the cache under its own key
	if cached, ok := c.loader.CachedMonth("2025-05-01"); !ok || cached.Month != "2025-05-01" {
		t.Fatalf("superseded response should still populate its cache entry")
	}
}

func TestSetActiveCategoryAutoHeals(t *testing.T) {
	src := newFakeSource()
	src.monthly["2025-06-01"] = monthReport("2025-06-01",
		li("paving", "a", 100, 0),
		li("landscaping", "b", 50, 0),
	)
	c := newTestCoordinator(src)
	ctx := context.Background()

	if err := c.SelectMonth(ctx, "2025-06-01"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c.SetActiveCategory("landscaping")
	if got := c.State().ActiveCategoryKey; got != "landscaping" {
		t.Fatalf("valid key should stick, got %q", got)
	}

	c.SetActiveCategory("vanished")
	if got := c.State().ActiveCategoryKey; got != "paving" {
		t.Fatalf("unknown key should heal to the first category, got %q", got)
	}
}

func TestSwitchViewModeUnknown(t *testing.T) {
	c := newTestCoordinator(newFakeSource())
	err := c.SwitchViewMode(context.Background(), "weekly")
	if !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
}

func TestSwitchViewModeLazyDayLoad(t *testing.T) {
	src := newFakeSource()
	src.days = []string{"2025-06-01", "2025-06-03", "2025-06-02"}
	src.daily["2025-06-03"] = core.DailyReport{
		Date:    "2025-06-03",
		Items:   []core.LineItem{li("paving", "a", 10, 5)},
		HasData: true,
	}
	c := newTestCoordinator(src)
	ctx := context.Background()

	if err := c.SwitchViewMode(ctx, ModeDaily); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st := c.State()
	if st.ViewMode != ModeDaily {
		t.Fatalf("mode not switched: %s", st.ViewMode)
	}
	if st.SelectedDay != "2025-06-03" {
		t.Fatalf("expected the most recent day, got %q", st.SelectedDay)
	}

	// Switching to the already-active mode is a no-op
	before := src.dayCalls["2025-06-03"]
	if err := c.SwitchViewMode(ctx, ModeDaily); err != nil {
		t.Fatalf("no-op switch: %v", err)
	}
	if src.dayCalls["2025-06-03"] != before {
		t.Fatalf("no-op switch must not refetch")
	}
}

func TestSwitchViewModeKeepsListedDay(t *testing.T) {
	src := newFakeSource()
	src.days = []string{"2025-06-01", "2025-06-02"}
	c := newTestCoordinator(src)
	ctx := context.Background()

	if err := c.SelectDay(ctx, "2025-06-01"); err != nil {
		t.Fatalf("seed day: %v", err)
	}
	if err := c.SwitchViewMode(ctx, ModeDaily); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if got := c.State().SelectedDay; got != "2025-06-01" {
		t.Fatalf("listed day should be kept, got %q", got)
	}
}

func TestSwitchViewModeDayListFailure(t *testing.T) {
	src := newFakeSource()
	src.daysErr = errors.New("list unavailable")
	c := newTestCoordinator(src)

	if err := c.SwitchViewMode(context.Background(), ModeDaily); err == nil {
		t.Fatalf("expected error")
	}
	vm := c.Snapshot()
	if vm.ErrorState == nil || !vm.ErrorState.Blocking {
		t.Fatalf("expected a blocking error with nothing cached: %+v", vm.ErrorState)
	}
}

func TestForceRefresh(t *testing.T) {
	src := newFakeSource()
	src.monthly["2025-06-01"] = monthReport("2025-06-01", li("paving", "a", 10, 5))
	c := newTestCoordinator(src)
	ctx := context.Background()

	if err := c.ForceRefresh(ctx); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}

	if err := c.SelectMonth(ctx, "2025-06-01"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := c.ForceRefresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := src.calls("2025-06-01"); got != 2 {
		t.Fatalf("refresh must refetch, got %d calls", got)
	}
}

func TestSetSortColumnValidation(t *testing.T) {
	c := newTestCoordinator(newFakeSource())
	if err := c.SetSortColumn(core.SortByDelta); err != nil {
		t.Fatalf("valid column: %v", err)
	}
	if err := c.SetSortColumn("bogus"); !errors.Is(err, ErrUnknownSort) {
		t.Fatalf("expected ErrUnknownSort, got %v", err)
	}
	if got := c.State().WorkSortColumn; got != core.SortByDelta {
		t.Fatalf("rejected column must not apply, got %s", got)
	}
}

func TestSearchFiltersSortedWorks(t *testing.T) {
	src := newFakeSource()
	src.monthly["2025-06-01"] = monthReport("2025-06-01",
		li("paving", "Asphalt north", 100, 0),
		li("paving", "Asphalt south", 90, 0),
		li("paving", "Curb", 80, 0),
	)
	c := newTestCoordinator(src)
	ctx := context.Background()

	if err := c.SelectMonth(ctx, "2025-06-01"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	c.SetSearch("asphalt")

	vm := c.Snapshot()
	if len(vm.SortedWorks) != 2 {
		t.Fatalf("expected 2 filtered works, got %d", len(vm.SortedWorks))
	}
	if vm.SortedWorks[0].WorkName != "Asphalt north" {
		t.Fatalf("filtered works not sorted: %+v", vm.SortedWorks)
	}
	// totals keep counting the filtered-out items
	if vm.ActiveCategory.Planned.Dec.IntPart() != 270 {
		t.Fatalf("category totals must ignore the filter: %s", vm.ActiveCategory.Planned.Dec)
	}
}

func TestSubscribeNotified(t *testing.T) {
	src := newFakeSource()
	src.monthly["2025-06-01"] = monthReport("2025-06-01", li("paving", "a", 10, 5))
	c := newTestCoordinator(src)

	var mu sync.Mutex
	var got []ViewModel
	c.Subscribe(func(vm ViewModel) {
		mu.Lock()
		got = append(got, vm)
		mu.Unlock()
	})

	if err := c.SelectMonth(context.Background(), "2025-06-01"); err != nil {
		t.Fatalf("select: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected loading + final notifications, got %d", n)
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	first, last := got[0], got[len(got)-1]
	mu.Unlock()
	if first.LoadingState != LoadingActive {
		t.Fatalf("first notification should be the loading render: %s", first.LoadingState)
	}
	if last.LoadingState != LoadingIdle || !last.HasData {
		t.Fatalf("final notification should carry the data: %s %v", last.LoadingState, last.HasData)
	}
}

type ctxMarkerKey struct{}

// capturingHandler records each log record together with the context it
// was emitted under.
type capturingHandler struct {
	mu      sync.Mutex
	entries []struct {
		ctx context.Context
		msg string
	}
}

func (h *capturingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capturingHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, struct {
		ctx context.Context
		msg string
	}{ctx, r.Message})
	return nil
}

func (h *capturingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *capturingHandler) WithGroup(string) slog.Handler      { return h }

func TestFetchFailureLogKeepsRequestContext(t *testing.T) {
	h := &capturingHandler{}
	prev := slog.Default()
	slog.SetDefault(slog.New(h))
	defer slog.SetDefault(prev)

	src := newFakeSource()
	src.monthErr["2025-06-01"] = errors.New("boom")
	c := newTestCoordinator(src)

	ctx := context.WithValue(context.Background(), ctxMarkerKey{}, "req-1")
	if err := c.SelectMonth(ctx, "2025-06-01"); err == nil {
		t.Fatalf("expected a fetch failure")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.entries {
		if e.msg == "Report fetch failed" {
			if e.ctx.Value(ctxMarkerKey{}) != "req-1" {
				t.Fatalf("failure log dropped the request context")
			}
			return
		}
	}
	t.Fatalf("fetch failure was not logged")
}

func TestDaysLazyLoadCached(t *testing.T) {
	src := newFakeSource()
	src.days = []string{"2025-06-01"}
	c := newTestCoordinator(src)
	ctx := context.Background()

	days, err := c.Days(ctx)
	if err != nil || len(days) != 1 {
		t.Fatalf("first load: %v %v", days, err)
	}

	src.mu.Lock()
	src.daysErr = errors.New("now broken")
	src.mu.Unlock()

	if _, err := c.Days(ctx); err != nil {
		t.Fatalf("second call must serve the cached list, got %v", err)
	}
}
