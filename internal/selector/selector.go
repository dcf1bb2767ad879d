// Package selector implements the sequential, priority-ordered failover
// loop that tries each configured provider in turn until one succeeds.
package selector

import (
	"context"
	"errors"

	"github.com/upb/llm-gateway/internal/domain"
	"github.com/upb/llm-gateway/internal/events"
	"github.com/upb/llm-gateway/internal/providers"
	"github.com/upb/llm-gateway/internal/reqctx"
	"go.uber.org/zap"
)

// Registry is the narrow subset of internal/registry.Registry the
// selector depends on.
type Registry interface {
	Providers() []domain.ProviderDescriptor
	GetAdapter(providerID string) (providers.Adapter, error)
}

// FailoverRecorder receives a signal on each failover transition, so the
// caller can mirror it into its own instrumentation without the selector
// importing a metrics package directly.
type FailoverRecorder interface {
	RecordFailover(fromProvider string)
}

// Selector runs the failover loop over a Registry, emitting telemetry to
// an events.Store at every provider failure, failover and terminal
// failure; a successful attempt emits no event.
type Selector struct {
	registry Registry
	events   events.Store
	logger   *zap.Logger
	metrics  FailoverRecorder
}

// New builds a Selector.
func New(registry Registry, eventStore events.Store, logger *zap.Logger) *Selector {
	return &Selector{registry: registry, events: eventStore, logger: logger}
}

// WithMetrics attaches a FailoverRecorder, returning the Selector for
// chaining.
func (s *Selector) WithMetrics(m FailoverRecorder) *Selector {
	s.metrics = m
	return s
}

// Execute runs the candidates in priority order (or just the overridden
// provider, if non-empty) and returns the first successful response. The
// terminal error surfaced is the last one observed; telemetry is
// best-effort and never blocks the request on a store failure.
func (s *Selector) Execute(ctx context.Context, req *domain.ChatCompletionRequest, providerOverride string) (*domain.ChatCompletionResponse, error) {
	candidates, err := s.candidates(providerOverride)
	if err != nil {
		return nil, err
	}

	var prevFailedID, prevMessage, prevModel string
	var finalErr *domain.GatewayError
	var finalErrModel string

	for attempt, descriptor := range candidates {
		attemptIndex := attempt + 1

		if prevFailedID != "" {
			if s.metrics != nil {
				s.metrics.RecordFailover(prevFailedID)
			}
			s.recordEvent(ctx, events.RecordParams{
				Kind:         "provider_switched",
				Level:        domain.EventLevelInfo,
				Message:      prevMessage,
				RequestID:    reqctx.GetRequestID(ctx),
				ProviderFrom: prevFailedID,
				ProviderTo:   descriptor.ID,
				Model:        prevModel,
				Meta:         map[string]any{"attempt": attemptIndex},
			})
			prevFailedID, prevMessage, prevModel = "", "", ""
		}

		effectiveModel := req.Model
		if effectiveModel == "" {
			model, ok := descriptor.DefaultModel()
			if !ok {
				return nil, domain.ConfigError(descriptor.ID, "No default model configured")
			}
			effectiveModel = model
		}

		callReq := req
		if effectiveModel != req.Model {
			withModel := req.WithModel(effectiveModel)
			callReq = &withModel
		}

		adapter, err := s.registry.GetAdapter(descriptor.ID)
		if err != nil {
			gwErr := asGatewayError(descriptor.ID, err)
			s.recordFailure(ctx, descriptor.ID, effectiveModel, gwErr, attemptIndex)
			prevFailedID, prevMessage, prevModel = descriptor.ID, gwErr.Message, effectiveModel
			finalErr, finalErrModel = gwErr, effectiveModel
			continue
		}

		resp, err := adapter.ChatCompletions(ctx, callReq)
		if err == nil {
			return resp, nil
		}

		// auth_missing, auth_required and provider_unavailable are all
		// adapter-reported outcomes that failover to the next candidate;
		// only the config error raised above (no default model) short-circuits.
		gwErr := asGatewayError(descriptor.ID, err)
		s.recordFailure(ctx, descriptor.ID, effectiveModel, gwErr, attemptIndex)
		prevFailedID, prevMessage, prevModel = descriptor.ID, gwErr.Message, effectiveModel
		finalErr, finalErrModel = gwErr, effectiveModel
	}

	if finalErr != nil {
		s.recordEvent(ctx, events.RecordParams{
			Kind:         "request_error",
			Level:        domain.EventLevelError,
			Message:      finalErr.Message,
			RequestID:    reqctx.GetRequestID(ctx),
			ProviderFrom: finalErr.ProviderID,
			Model:        finalErrModel,
			ErrorCode:    string(finalErr.Kind),
		})
		return nil, finalErr
	}
	return nil, domain.ProviderUnavailable("unknown", "No providers configured")
}

func (s *Selector) candidates(providerOverride string) ([]domain.ProviderDescriptor, error) {
	if providerOverride == "" {
		return s.registry.Providers(), nil
	}
	for _, d := range s.registry.Providers() {
		if d.ID == providerOverride {
			return []domain.ProviderDescriptor{d}, nil
		}
	}
	return nil, domain.ProviderUnavailable(providerOverride, "Unknown provider")
}

func (s *Selector) recordFailure(ctx context.Context, providerID, model string, err *domain.GatewayError, attempt int) {
	s.recordEvent(ctx, events.RecordParams{
		Kind:         "provider_fail",
		Level:        domain.EventLevelWarning,
		Message:      err.Message,
		RequestID:    reqctx.GetRequestID(ctx),
		ProviderFrom: providerID,
		Model:        model,
		ErrorCode:    string(err.Kind),
		Meta:         map[string]any{"attempt": attempt},
	})
}

// recordEvent swallows store failures: telemetry must never fail the
// request it describes.
func (s *Selector) recordEvent(ctx context.Context, params events.RecordParams) {
	if s.events == nil {
		return
	}
	if err := s.events.RecordEvent(ctx, params); err != nil {
		s.logger.Warn("selector: failed to record event", zap.String("kind", params.Kind), zap.Error(err))
	}
}

func asGatewayError(providerID string, err error) *domain.GatewayError {
	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) {
		return gwErr
	}
	return domain.ProviderUnavailable(providerID, err.Error())
}
