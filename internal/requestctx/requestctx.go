// Package requestctx carries the per-request ID through context so that
// response envelopes, audit events and log lines all report the same ID.
package requestctx

import "context"

type ctxKey struct{}

var requestIDKey ctxKey

// WithRequestID returns a context carrying the given request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request ID, or "" for contexts that never passed
// through the request-ID middleware.
func GetRequestID(ctx context.Context) string {
	if value, ok := ctx.Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}
