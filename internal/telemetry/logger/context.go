package logger

import "context"

type contextKey string

const (
	loggerKey    contextKey = "kkmgate.logger"
	requestIDKey contextKey = "kkmgate.request_id"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context.
// Returns the default logger if none is set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithRequestID adds a request correlation id to the context.
func WithRequestID(ctx context.Context, id uint16) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation id from context.
func RequestIDFromContext(ctx context.Context) (uint16, bool) {
	id, ok := ctx.Value(requestIDKey).(uint16)
	return id, ok
}

// L is a shorthand for FromContext that also tags the logger with the
// correlation id carried by the context.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)
	if id, ok := RequestIDFromContext(ctx); ok {
		l = l.With("rid", id)
	}
	return l
}
