package dashboard

import (
	"context"

	"planfact/internal/cache"
	"planfact/internal/core"
	"planfact/internal/source"

	"golang.org/x/sync/singleflight"
)

// Loader is the read-through layer between the coordinator and the remote
// source. It owns one result cache per data kind and guarantees at most
// one in-flight fetch per key: concurrent requests for the same key attach
// to the pending call instead of issuing a duplicate, so racing responses
// can never diverge on a cache write.
type Loader struct {
	src     source.ReportSource
	monthly *cache.Store[core.MonthlyReport]
	daily   *cache.Store[core.DailyReport]
	group   singleflight.Group
}

// NewLoader creates a Loader with fresh caches. Caches are constructed
// here, once per session, rather than living in package state.
func NewLoader(src source.ReportSource) *Loader {
	return &Loader{
		src:     src,
		monthly: cache.NewStore[core.MonthlyReport](),
		daily:   cache.NewStore[core.DailyReport](),
	}
}

// Month returns the report for the month key. Without force a cache hit
// performs zero network calls; with force the cache is bypassed (but still
// updated on success).
func (l *Loader) Month(ctx context.Context, monthISO string, force bool) (core.MonthlyReport, error) {
	if !force {
		if rep, ok := l.monthly.Get(monthISO); ok {
			return rep, nil
		}
	}
	v, err, _ := l.group.Do("month:"+monthISO, func() (any, error) {
		rep, err := l.src.MonthlyReport(ctx, monthISO)
		if err != nil {
			return nil, err
		}
		l.monthly.Set(monthISO, rep)
		return rep, nil
	})
	if err != nil {
		return core.MonthlyReport{}, err
	}
	return v.(core.MonthlyReport), nil
}

// Day is Month's counterpart for daily report keys.
func (l *Loader) Day(ctx context.Context, dayISO string, force bool) (core.DailyReport, error) {
	if !force {
		if rep, ok := l.daily.Get(dayISO); ok {
			return rep, nil
		}
	}
	v, err, _ := l.group.Do("day:"+dayISO, func() (any, error) {
		rep, err := l.src.DailyReport(ctx, dayISO)
		if err != nil {
			return nil, err
		}
		l.daily.Set(dayISO, rep)
		return rep, nil
	})
	if err != nil {
		return core.DailyReport{}, err
	}
	return v.(core.DailyReport), nil
}

// CachedMonth returns the cached payload for the month key, if any.
func (l *Loader) CachedMonth(monthISO string) (core.MonthlyReport, bool) {
	return l.monthly.Get(monthISO)
}

// CachedDay returns the cached payload for the day key, if any.
func (l *Loader) CachedDay(dayISO string) (core.DailyReport, bool) {
	return l.daily.Get(dayISO)
}

// InvalidateMonth drops the cache entry for the month key.
func (l *Loader) InvalidateMonth(monthISO string) {
	l.monthly.Delete(monthISO)
}

// InvalidateDay drops the cache entry for the day key.
func (l *Loader) InvalidateDay(dayISO string) {
	l.daily.Delete(dayISO)
}
