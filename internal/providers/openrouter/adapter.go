// Package openrouter adapts the gateway's normalized chat request to
// OpenRouter's OpenAI-compatible chat-completions endpoint.
package openrouter

import (
	"context"

	"github.com/upb/llm-gateway/internal/domain"
	"github.com/upb/llm-gateway/internal/providers"
	"github.com/upb/llm-gateway/internal/reqctx"
)

// ID is this adapter's provider identifier.
const ID = "openrouter"

// Adapter implements providers.Adapter for OpenRouter.
type Adapter struct {
	baseURL             string
	chatCompletionsPath string
	defaultModel        string
	pipeline            *providers.Pipeline
}

// New builds an OpenRouter adapter from its descriptor.
func New(descriptor domain.ProviderDescriptor, pipeline *providers.Pipeline) *Adapter {
	model, _ := descriptor.DefaultModel()
	return &Adapter{
		baseURL:             descriptor.BaseURL,
		chatCompletionsPath: descriptor.ChatCompletionsPath,
		defaultModel:        model,
		pipeline:            pipeline,
	}
}

func (a *Adapter) ID() string { return ID }

func (a *Adapter) ChatCompletions(ctx context.Context, req *domain.ChatCompletionRequest) (*domain.ChatCompletionResponse, error) {
	payload := providers.BuildPassthroughPayload(req)
	decoded, err := a.pipeline.Execute(ctx, providers.Attempt{
		ProviderID:  ID,
		Method:      "POST",
		URL:         a.baseURL + a.chatCompletionsPath,
		Payload:     payload,
		TrackErrors: true,
		RequestID:   reqctx.GetRequestID(ctx),
	})
	if err != nil {
		return nil, err
	}
	return providers.NormalizePassthroughResponse(decoded, req.Model), nil
}

func (a *Adapter) ValidateAPIKey(ctx context.Context, apiKey string) error {
	if a.defaultModel == "" {
		return domain.ConfigError(ID, "No default model configured")
	}
	payload := map[string]any{
		"model":      a.defaultModel,
		"messages":   []map[string]string{{"role": "user", "content": "ping"}},
		"max_tokens": 1,
	}
	_, err := a.pipeline.Execute(ctx, providers.Attempt{
		ProviderID:     ID,
		Method:         "POST",
		URL:            a.baseURL + a.chatCompletionsPath,
		Payload:        payload,
		APIKeyOverride: apiKey,
		TrackErrors:    false,
	})
	return err
}
