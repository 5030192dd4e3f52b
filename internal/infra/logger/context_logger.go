package logger

import (
	"context"
	"log/slog"
)

type ContextKey string

// RequestIDKey carries the per-request identifier through one answer
// request.
const RequestIDKey ContextKey = "rag.request.id"

// WithRequestID attaches the per-request identifier to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// FromContext returns a logger enriched with any business context
// carried by ctx.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if requestID := ctx.Value(RequestIDKey); requestID != nil {
		return base.With(string(RequestIDKey), requestID)
	}
	return base
}
