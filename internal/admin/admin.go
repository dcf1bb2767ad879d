// Package admin implements credential CRUD and live validation against
// the configured vendor adapters, driving the dashboard's provider
// status view.
package admin

import (
	"context"
	"errors"
	"time"

	"github.com/upb/llm-gateway/internal/credentials"
	"github.com/upb/llm-gateway/internal/domain"
	"github.com/upb/llm-gateway/internal/events"
	"github.com/upb/llm-gateway/internal/providers"
	"github.com/upb/llm-gateway/internal/reqctx"
)

// ErrNotFound is returned by DeleteCredential when no credential row
// exists for the provider.
var ErrNotFound = errors.New("admin: credential not found")

// Registry is the narrow subset of internal/registry.Registry the admin
// service depends on.
type Registry interface {
	Providers() []domain.ProviderDescriptor
	GetAdapter(providerID string) (providers.Adapter, error)
}

// Service implements the admin operations over a Registry, a credential
// store and an event sink.
type Service struct {
	registry    Registry
	credentials credentials.Store
	events      events.Store
}

// New builds an admin Service.
func New(registry Registry, credStore credentials.Store, eventStore events.Store) *Service {
	return &Service{registry: registry, credentials: credStore, events: eventStore}
}

// ProviderView is the dashboard-friendly merge of configuration and
// credential status for one provider.
type ProviderView struct {
	ProviderID  string
	Name        string
	Priority    int
	HasAPIKey   bool
	LastError   *string
	LastErrorAt *time.Time
}

// ListProviders merges configuration with credential status into the
// dashboard view, one entry per configured provider in priority order.
func (s *Service) ListProviders(ctx context.Context) ([]ProviderView, error) {
	rows, err := s.credentials.List(ctx)
	if err != nil {
		return nil, err
	}
	byProvider := make(map[string]domain.ProviderCredential, len(rows))
	for _, row := range rows {
		byProvider[row.ProviderID] = row
	}

	views := make([]ProviderView, 0, len(s.registry.Providers()))
	for _, descriptor := range s.registry.Providers() {
		cred := byProvider[descriptor.ID]
		views = append(views, ProviderView{
			ProviderID:  descriptor.ID,
			Name:        descriptor.Name,
			Priority:    descriptor.Priority,
			HasAPIKey:   cred.HasAPIKey(),
			LastError:   cred.LastError,
			LastErrorAt: cred.LastErrorAt,
		})
	}
	return views, nil
}

// SetCredential validates apiKey against the live vendor before
// persisting it. An auth_required failure records a credential error and
// is the caller's to surface as a client error; a provider_unavailable
// failure is the caller's to surface as service-unavailable.
func (s *Service) SetCredential(ctx context.Context, providerID, apiKey string) error {
	adapter, err := s.registry.GetAdapter(providerID)
	if err != nil {
		return err
	}

	if err := adapter.ValidateAPIKey(ctx, apiKey); err != nil {
		return s.handleValidationFailure(ctx, providerID, err)
	}

	if err := s.credentials.Upsert(ctx, providerID, apiKey); err != nil {
		return err
	}
	s.recordEvent(ctx, events.RecordParams{
		Kind:         "provider_credentials_updated",
		Level:        domain.EventLevelInfo,
		Message:      "Credential validated and stored",
		RequestID:    reqctx.GetRequestID(ctx),
		ProviderFrom: providerID,
	})
	return nil
}

// Healthcheck re-validates an existing credential and clears its error
// state on success.
func (s *Service) Healthcheck(ctx context.Context, providerID string) error {
	cred, ok, err := s.credentials.Get(ctx, providerID)
	if err != nil {
		return err
	}
	if !ok || !cred.HasAPIKey() {
		return ErrNotFound
	}

	adapter, err := s.registry.GetAdapter(providerID)
	if err != nil {
		return err
	}

	if err := adapter.ValidateAPIKey(ctx, cred.APIKey); err != nil {
		return s.handleValidationFailure(ctx, providerID, err)
	}

	if err := s.credentials.ClearError(ctx, providerID); err != nil {
		return err
	}
	s.recordEvent(ctx, events.RecordParams{
		Kind:         "provider_health_ok",
		Level:        domain.EventLevelInfo,
		Message:      "Provider healthy",
		RequestID:    reqctx.GetRequestID(ctx),
		ProviderFrom: providerID,
	})
	return nil
}

// DeleteCredential removes a provider's credential row, or ErrNotFound
// if none exists.
func (s *Service) DeleteCredential(ctx context.Context, providerID string) error {
	_, ok, err := s.credentials.Get(ctx, providerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return s.credentials.Delete(ctx, providerID)
}

// handleValidationFailure records the credential error and emits the
// matching telemetry event, then returns the original error unwrapped
// for the caller to classify into an HTTP status.
func (s *Service) handleValidationFailure(ctx context.Context, providerID string, validationErr error) error {
	switch {
	case domain.IsKind(validationErr, domain.ErrorKindAuthRequired):
		_ = s.credentials.RecordError(ctx, providerID, "auth")
		s.recordEvent(ctx, events.RecordParams{
			Kind:         "provider_credentials_invalid",
			Level:        domain.EventLevelWarning,
			Message:      validationErr.Error(),
			RequestID:    reqctx.GetRequestID(ctx),
			ProviderFrom: providerID,
		})
	default:
		s.recordEvent(ctx, events.RecordParams{
			Kind:         "provider_health_fail",
			Level:        domain.EventLevelWarning,
			Message:      validationErr.Error(),
			RequestID:    reqctx.GetRequestID(ctx),
			ProviderFrom: providerID,
		})
	}
	return validationErr
}

func (s *Service) recordEvent(ctx context.Context, params events.RecordParams) {
	if s.events == nil {
		return
	}
	_ = s.events.RecordEvent(ctx, params)
}
