package entities

import "context"

// Task is a unit of work handed to the task executor. The context carries
// the trace id captured when the originating request entered the system.
type Task func(ctx context.Context)

type traceIDKey struct{}

// WithTraceID returns a context carrying the given trace id.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceIDFrom extracts the trace id from the context, or "" if none was set.
func TraceIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey{}).(string); ok {
		return v
	}
	return ""
}
