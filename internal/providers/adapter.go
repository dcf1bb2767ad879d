// Package providers holds the shared adapter contract, HTTP pipeline, and
// error classification used by every vendor adapter under its
// subpackages. Vendor-specific normalization lives in those subpackages;
// this package owns only what's common to all five.
package providers

import (
	"context"

	"github.com/upb/llm-gateway/internal/domain"
)

// Adapter is the contract every vendor implementation satisfies.
type Adapter interface {
	// ID returns the provider's stable identifier, e.g. "cerebras".
	ID() string

	// ChatCompletions performs one attempt against the vendor.
	ChatCompletions(ctx context.Context, req *domain.ChatCompletionRequest) (*domain.ChatCompletionResponse, error)

	// ValidateAPIKey issues the cheapest health call the vendor permits,
	// using apiKey directly rather than the configured credential. It
	// must not mutate credential state or write a trace entry.
	ValidateAPIKey(ctx context.Context, apiKey string) error
}

// CredentialSource supplies the adapter's API key. Implemented by
// internal/credentials.Store; kept as a narrow interface here so adapters
// don't import the whole store package surface.
type CredentialSource interface {
	Get(ctx context.Context, providerID string) (domain.ProviderCredential, bool, error)
	RecordError(ctx context.Context, providerID, message string) error
	ClearError(ctx context.Context, providerID string) error
}

// TraceSink records a request/response trace for one vendor call.
// Implemented by internal/tracelog.Store.
type TraceSink interface {
	RecordProviderLog(ctx context.Context, providerID string, requestBody, responseBody any, requestID string) error
}
