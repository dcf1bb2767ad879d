// Package reqctx threads a request ID through a request's context,
// trimmed from the multi-tenant claims/org/app/user context keys this
// codebase originally carried down to the one value the gateway needs.
package reqctx

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

// RequestIDKey is the context key for the request ID.
const RequestIDKey contextKey = "request_id"

// GetRequestID retrieves the request ID from context, returning "" if none
// was set.
func GetRequestID(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// NewRequestID mints a fresh request ID, used when an inbound request
// carries no X-Request-Id header.
func NewRequestID() string {
	return uuid.NewString()
}
