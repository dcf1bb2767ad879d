// Package tracelog implements the per-provider request/response trace log
// with daily retention (C3). Every chat-completions vendor call,
// successful or not, appends one row here; API-key validation calls do not.
package tracelog

import (
	"context"

	"github.com/upb/llm-gateway/internal/domain"
)

// Store is the provider trace repository contract. Like events, writes
// are best-effort.
type Store interface {
	// RecordProviderLog JSON-encodes the given bodies, writes a row, and
	// prunes entries older than start-of-today in the same transaction.
	// Write failures are swallowed.
	RecordProviderLog(ctx context.Context, providerID string, requestBody, responseBody any, requestID string) error

	// ListProviderLogs returns rows for providerID with created_at on or
	// after start-of-today, newest first, bounded by limit.
	ListProviderLogs(ctx context.Context, providerID string, limit int) ([]domain.ProviderLog, error)

	// Prune removes rows older than start-of-today without returning
	// anything. Used by the retention scheduler.
	Prune(ctx context.Context) error
}

// DefaultListLimit matches list_provider_logs(provider_id, limit=100).
const DefaultListLimit = 100
