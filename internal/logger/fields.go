package logger

// Structured log field keys used throughout the SDK. Grouped by concern so
// callers can grep a section instead of guessing a key name.

// Tracing
const (
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"
)

// Operation / request correlation
const (
	KeyOperation = "operation"
	KeyRequestID = "request_id"
	KeyClientID  = "client_id"
)

// Tenant / service / variable scope
const (
	KeyTenantID   = "tenant_id"
	KeyServiceID  = "service_id"
	KeyVariableID = "variable_id"
)

// Connection / transport
const (
	KeyServerURL     = "server_url"
	KeyConnState     = "connection_state"
	KeyReconnAttempt = "reconnect_attempt"
	KeyReconnDelay   = "reconnect_delay_ms"
)

// Variable I/O
const (
	KeyOffset    = "offset"
	KeyLength    = "length"
	KeyByteSize  = "byte_size"
	KeyRangeFrom = "range_from"
	KeyRangeTo   = "range_to"
)

// Watcher
const (
	KeyWatchPath  = "watch_path"
	KeyWatchEvent = "watch_event"
)

// Errors
const (
	KeyError     = "error"
	KeyErrorKind = "error_kind"
)

// Timing
const (
	KeyDurationMs = "duration_ms"
)
