package http

import (
	"errors"
	"fmt"
	nethttp "net/http"
	"strings"

	"planfact/internal/core"
	"planfact/internal/dashboard"
	"planfact/internal/drilldown"
	applog "planfact/internal/log"
)

func (s *Server) handleHealth(w nethttp.ResponseWriter, r *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ok"})
}

// handleView returns the current view-model for the session.
func (s *Server) handleView(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodGet) {
		return
	}
	coord := s.sessions.coordinator(w, r)
	writeJSON(w, nethttp.StatusOK, coord.Snapshot())
}

// handleSelectMonth selects a month and returns the resulting view-model.
// A failed fetch is not an HTTP error here: the failure is already mapped
// into the view-model's error state, scoped to the month that failed.
func (s *Server) handleSelectMonth(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodPost) {
		return
	}
	month, ok := isoDate(r.FormValue("month"))
	if !ok {
		writeError(w, nethttp.StatusBadRequest, "month must be an ISO date (YYYY-MM-DD)")
		return
	}
	coord := s.sessions.coordinator(w, r)
	if err := coord.SelectMonth(r.Context(), month); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Month selection completed with error",
			applog.FieldOperation, applog.OpSelect,
			applog.FieldMonth, month,
			applog.FieldError, err)
	}
	writeJSON(w, nethttp.StatusOK, coord.Snapshot())
}

// handleSelectDay selects a day for the daily view.
func (s *Server) handleSelectDay(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodPost) {
		return
	}
	day, ok := isoDate(r.FormValue("day"))
	if !ok {
		writeError(w, nethttp.StatusBadRequest, "day must be an ISO date (YYYY-MM-DD)")
		return
	}
	coord := s.sessions.coordinator(w, r)
	if err := coord.SelectDay(r.Context(), day); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Day selection completed with error",
			applog.FieldOperation, applog.OpSelect,
			applog.FieldDay, day,
			applog.FieldError, err)
	}
	writeJSON(w, nethttp.StatusOK, coord.Snapshot())
}

// handleSwitchMode toggles between the monthly and daily views.
func (s *Server) handleSwitchMode(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodPost) {
		return
	}
	mode := dashboard.ViewMode(strings.TrimSpace(r.FormValue("mode")))
	coord := s.sessions.coordinator(w, r)
	if err := coord.SwitchViewMode(r.Context(), mode); err != nil {
		if errors.Is(err, dashboard.ErrUnknownMode) {
			writeError(w, nethttp.StatusBadRequest, err.Error())
			return
		}
		applog.FromContext(r.Context()).WarnContext(r.Context(), "View mode switch completed with error",
			applog.FieldViewMode, string(mode),
			applog.FieldError, err)
	}
	writeJSON(w, nethttp.StatusOK, coord.Snapshot())
}

func (s *Server) handleSetCategory(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodPost) {
		return
	}
	coord := s.sessions.coordinator(w, r)
	key := strings.TrimSpace(r.FormValue("key"))
	coord.SetActiveCategory(key)
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Active category changed", applog.FieldCategory, key)
	writeJSON(w, nethttp.StatusOK, coord.Snapshot())
}

func (s *Server) handleSetSort(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodPost) {
		return
	}
	coord := s.sessions.coordinator(w, r)
	col := core.SortColumn(strings.TrimSpace(r.FormValue("column")))
	if err := coord.SetSortColumn(col); err != nil {
		writeError(w, nethttp.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, nethttp.StatusOK, coord.Snapshot())
}

func (s *Server) handleSetSearch(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodPost) {
		return
	}
	coord := s.sessions.coordinator(w, r)
	coord.SetSearch(r.FormValue("term"))
	writeJSON(w, nethttp.StatusOK, coord.Snapshot())
}

// handleRefresh force-refreshes the current selection past the cache.
func (s *Server) handleRefresh(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodPost) {
		return
	}
	coord := s.sessions.coordinator(w, r)
	if err := coord.ForceRefresh(r.Context()); err != nil {
		if errors.Is(err, dashboard.ErrNoSelection) {
			writeError(w, nethttp.StatusBadRequest, "nothing selected to refresh")
			return
		}
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Refresh completed with error",
			applog.FieldOperation, applog.OpRefresh,
			applog.FieldError, err)
	}
	writeJSON(w, nethttp.StatusOK, coord.Snapshot())
}

func (s *Server) handleMonths(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodGet) {
		return
	}
	months, err := s.src.Months(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Month list fetch failed", applog.FieldError, err)
		writeError(w, nethttp.StatusBadGateway, "failed to load month list")
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string][]string{"months": months})
}

func (s *Server) handleDays(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodGet) {
		return
	}
	days, err := s.src.Days(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Day list fetch failed", applog.FieldError, err)
		writeError(w, nethttp.StatusBadGateway, "failed to load day list")
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string][]string{"days": days})
}

// handleBreakdown returns the normalized per-day decomposition of one
// work item. The display mode is inferred from the rows unless the caller
// pins it with ?mode=.
func (s *Server) handleBreakdown(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodGet) {
		return
	}
	month, ok := isoDate(r.URL.Query().Get("month"))
	if !ok {
		writeError(w, nethttp.StatusBadRequest, "month must be an ISO date (YYYY-MM-DD)")
		return
	}
	work := strings.TrimSpace(r.URL.Query().Get("work"))
	if work == "" {
		writeError(w, nethttp.StatusBadRequest, "work is required")
		return
	}

	raw, err := s.src.WorkBreakdown(r.Context(), month, work)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Breakdown fetch failed",
			applog.FieldMonth, month,
			applog.FieldWorkName, work,
			applog.FieldError, err)
		writeError(w, nethttp.StatusBadGateway, "failed to load breakdown")
		return
	}
	rows, err := drilldown.Normalize(raw)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Breakdown payload malformed",
			applog.FieldOperation, applog.OpNormalize,
			applog.FieldMonth, month,
			applog.FieldWorkName, work,
			applog.FieldError, err)
		writeError(w, nethttp.StatusBadGateway, "malformed breakdown payload")
		return
	}

	mode := drilldown.Mode(strings.TrimSpace(r.URL.Query().Get("mode")))
	if !drilldown.ValidMode(mode) {
		mode = drilldown.InferMode(rows)
	}
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"mode": mode,
		"rows": rows,
	})
}

// handlePDF streams the server-rendered monthly report.
func (s *Server) handlePDF(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireMethod(w, r, nethttp.MethodGet) {
		return
	}
	month, ok := isoDate(r.URL.Query().Get("month"))
	if !ok {
		writeError(w, nethttp.StatusBadRequest, "month must be an ISO date (YYYY-MM-DD)")
		return
	}
	data, filename, err := s.src.PDF(r.Context(), month)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "PDF fetch failed",
			applog.FieldMonth, month,
			applog.FieldError, err)
		writeError(w, nethttp.StatusBadGateway, "failed to load pdf")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	noCacheHeaders(w)
	w.WriteHeader(nethttp.StatusOK)
	_, _ = w.Write(data)
}
