// Package credentials implements the persisted, per-provider API key store:
// the registry consults it to decide whether a provider has a usable
// credential, and the admin API writes to it.
package credentials

import (
	"context"

	"github.com/upb/llm-gateway/internal/domain"
)

// Store is the credential repository contract. Every write is serialized
// per provider ID by a row lock so that a concurrent admin update and a
// concurrent RecordError from an in-flight request never interleave.
type Store interface {
	// Upsert sets a provider's API key and clears any recorded error.
	Upsert(ctx context.Context, providerID, apiKey string) error

	// Get retrieves the credential row for one provider. Returns
	// (zero value, false, nil) when no row exists yet.
	Get(ctx context.Context, providerID string) (domain.ProviderCredential, bool, error)

	// List retrieves every credential row on record.
	List(ctx context.Context) ([]domain.ProviderCredential, error)

	// RecordError stores the given error code (e.g. "auth", "rate_limit",
	// "network", "http_<status>") as LastError and stamps LastErrorAt,
	// creating a row with an empty key if none exists yet.
	RecordError(ctx context.Context, providerID, message string) error

	// ClearError clears a provider's recorded error, e.g. after a
	// successful health check or a credential update.
	ClearError(ctx context.Context, providerID string) error

	// Delete removes a provider's credential row entirely.
	Delete(ctx context.Context, providerID string) error
}
