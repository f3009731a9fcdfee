package http

import (
	"log/slog"
	nethttp "net/http"
	"sync"

	"planfact/internal/core"
	"planfact/internal/dashboard"
	applog "planfact/internal/log"
	"planfact/internal/source"

	"github.com/google/uuid"
)

const sessionCookie = "pf_session"

// sessionRegistry hands out one coordinator per browser session. The
// coordinator owns the session's caches, so cached months and days live
// exactly as long as the session does.
type sessionRegistry struct {
	mu       sync.Mutex
	src      source.ReportSource
	coll     *core.Collator
	sessions map[string]*dashboard.Coordinator
}

func newSessionRegistry(src source.ReportSource, coll *core.Collator) *sessionRegistry {
	return &sessionRegistry{
		src:      src,
		coll:     coll,
		sessions: make(map[string]*dashboard.Coordinator),
	}
}

// coordinator returns the coordinator for the request's session, creating
// the session (and setting its cookie) when absent.
func (reg *sessionRegistry) coordinator(w nethttp.ResponseWriter, r *nethttp.Request) *dashboard.Coordinator {
	id := ""
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		id = c.Value
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if id != "" {
		if coord, ok := reg.sessions[id]; ok {
			return coord
		}
	}

	id = uuid.NewString()
	coord := dashboard.NewCoordinator(reg.src, dashboard.NewLoader(reg.src), reg.coll)
	reg.sessions[id] = coord
	slog.DebugContext(r.Context(), "Session created",
		applog.FieldComponent, applog.ComponentHTTP,
		applog.FieldSessionID, id)

	nethttp.SetCookie(w, &nethttp.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: nethttp.SameSiteLaxMode,
	})
	return coord
}

// Len returns the number of live sessions, for diagnostics.
func (reg *sessionRegistry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.sessions)
}
