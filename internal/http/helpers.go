package http

import (
	"encoding/json"
	"log/slog"
	nethttp "net/http"
	"strings"
	"time"
)

// noCacheHeaders keep intermediaries from serving stale view-models; the
// staleness story lives in the result caches, not in HTTP caching.
func noCacheHeaders(w nethttp.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

func writeJSON(w nethttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	noCacheHeaders(w)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encoding failed", "error", err)
	}
}

func writeError(w nethttp.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// requireMethod enforces a method like the rest of the handlers do,
// answering 405 with an Allow header otherwise.
func requireMethod(w nethttp.ResponseWriter, r *nethttp.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		w.WriteHeader(nethttp.StatusMethodNotAllowed)
		return false
	}
	return true
}

// isoDate validates a YYYY-MM-DD value from a query or form parameter.
func isoDate(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return "", false
	}
	return value, true
}
