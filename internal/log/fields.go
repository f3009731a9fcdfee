package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldMonth      = "month"
	FieldDay        = "day"
	FieldCacheKey   = "cache_key"
	FieldAttempt    = "attempt"
	FieldWorkName   = "work_name"
	FieldCategory   = "category"
	FieldSessionID  = "session_id"
	FieldViewMode   = "view_mode"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentFetch     = "fetch"
	ComponentDashboard = "dashboard"
	ComponentTrace     = "trace"
)

// Operations defines standard operation names
const (
	OpFetch     = "fetch"
	OpSelect    = "select"
	OpRefresh   = "refresh"
	OpNormalize = "normalize"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithCacheKey adds the cache key field
func (f LogFields) WithCacheKey(key string) LogFields {
	f[FieldCacheKey] = key
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
