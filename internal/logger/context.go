package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context
type LogContext struct {
	TraceID     string    // OpenTelemetry trace ID
	SpanID      string    // OpenTelemetry span ID
	Operation   string    // commy operation name (CreateService, WriteVariable, Subscribe, ...)
	TenantID    string    // tenant the request is scoped to
	ServiceID   string    // service the request is scoped to
	VariableID  string    // variable the request targets, if any
	ClientID    string    // SDK client identifier (uuid)
	RequestID   string    // wire request_id for correlation
	StartTime   time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a client identified by clientID
func NewLogContext(clientID string) *LogContext {
	return &LogContext{
		ClientID:  clientID,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:    lc.TraceID,
		SpanID:     lc.SpanID,
		Operation:  lc.Operation,
		TenantID:   lc.TenantID,
		ServiceID:  lc.ServiceID,
		VariableID: lc.VariableID,
		ClientID:   lc.ClientID,
		RequestID:  lc.RequestID,
		StartTime:  lc.StartTime,
	}
}

// WithOperation returns a copy with the operation set
func (lc *LogContext) WithOperation(operation string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Operation = operation
	}
	return clone
}

// WithService returns a copy with the tenant/service scope set
func (lc *LogContext) WithService(tenantID, serviceID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TenantID = tenantID
		clone.ServiceID = serviceID
	}
	return clone
}

// WithVariable returns a copy with the variable id set
func (lc *LogContext) WithVariable(variableID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.VariableID = variableID
	}
	return clone
}

// WithRequest returns a copy with the wire request id set
func (lc *LogContext) WithRequest(requestID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.RequestID = requestID
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
