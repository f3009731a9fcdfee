// Package http exposes the dashboard view-model as a JSON API. It is the
// surface the rendering layer consumes; everything it serves is rebuilt
// from the coordinator on each request.
package http

import (
	nethttp "net/http"

	"planfact/internal/core"
	applog "planfact/internal/log"
	"planfact/internal/middleware/trace"
	"planfact/internal/source"
)

// Server wires the session registry and the report source behind the
// JSON routes.
type Server struct {
	nethttp.Server

	src      source.ReportSource
	sessions *sessionRegistry
	logger   *applog.Logger
}

// NewServer configures routes, returning a ready-to-run server. Each
// browser session gets its own coordinator (and therefore its own result
// caches) identified by a session cookie.
func NewServer(addr string, src source.ReportSource, coll *core.Collator, logger *applog.Logger) *Server {
	mux := nethttp.NewServeMux()

	s := &Server{
		src:      src,
		sessions: newSessionRegistry(src, coll),
		logger:   logger.WithComponent(applog.ComponentHTTP),
	}

	mux.HandleFunc("/health", s.handleHealth)

	mux.HandleFunc("/api/view", s.handleView)
	mux.HandleFunc("/api/view/month", s.handleSelectMonth)
	mux.HandleFunc("/api/view/day", s.handleSelectDay)
	mux.HandleFunc("/api/view/mode", s.handleSwitchMode)
	mux.HandleFunc("/api/view/category", s.handleSetCategory)
	mux.HandleFunc("/api/view/sort", s.handleSetSort)
	mux.HandleFunc("/api/view/search", s.handleSetSearch)
	mux.HandleFunc("/api/view/refresh", s.handleRefresh)

	mux.HandleFunc("/api/months", s.handleMonths)
	mux.HandleFunc("/api/days", s.handleDays)
	mux.HandleFunc("/api/breakdown", s.handleBreakdown)
	mux.HandleFunc("/api/pdf", s.handlePDF)

	tracer := trace.NewMiddleware()
	s.Server = nethttp.Server{
		Addr:    addr,
		Handler: applog.Middleware(s.logger)(tracer.Handler(mux)),
	}
	return s
}
