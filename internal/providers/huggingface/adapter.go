// Package huggingface adapts the gateway's normalized chat request to the
// Hugging Face Inference API's chat-completions route, synthesizing a
// response when the model only returns generated_text.
package huggingface

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/upb/llm-gateway/internal/domain"
	"github.com/upb/llm-gateway/internal/providers"
	"github.com/upb/llm-gateway/internal/providers/jsonutil"
	"github.com/upb/llm-gateway/internal/reqctx"
)

// ID is this adapter's provider identifier.
const ID = "huggingface"

// Adapter implements providers.Adapter for Hugging Face.
type Adapter struct {
	baseURL             string
	chatCompletionsPath string
	defaultModel        string
	pipeline            *providers.Pipeline
}

// New builds a Hugging Face adapter from its descriptor.
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

// url templates the model id into the inference path.
func (a *Adapter) url(model string) string {
	path := strings.ReplaceAll(a.chatCompletionsPath, "{model_id}", model)
	return a.baseURL + path
}

func (a *Adapter) ChatCompletions(ctx context.Context, req *domain.ChatCompletionRequest) (*domain.ChatCompletionResponse, error) {
	payload := buildPayload(req)
	decoded, err := a.pipeline.Execute(ctx, providers.Attempt{
		ProviderID:  ID,
		Method:      "POST",
		URL:         a.url(req.Model),
		Payload:     payload,
		TrackErrors: true,
		RequestID:   reqctx.GetRequestID(ctx),
	})
	if err != nil {
		return nil, err
	}
	return normalizeResponse(decoded, req.Model), nil
}

func (a *Adapter) ValidateAPIKey(ctx context.Context, apiKey string) error {
	if a.defaultModel == "" {
		return domain.ConfigError(ID, "No default model configured")
	}
	one := 1
	healthReq := &domain.ChatCompletionRequest{
		Model:     a.defaultModel,
		Messages:  []domain.Message{{Role: "user", Content: "ping"}},
		MaxTokens: &one,
	}
	_, err := a.pipeline.Execute(ctx, providers.Attempt{
		ProviderID:     ID,
		Method:         "POST",
		URL:            a.url(a.defaultModel),
		Payload:        buildPayload(healthReq),
		APIKeyOverride: apiKey,
		TrackErrors:    false,
	})
	return err
}

// buildPayload forwards each message's role and text content (multi-part
// content is flattened to its text parts) plus the optional scalars the
// Hugging Face chat route accepts.
func buildPayload(req *domain.ChatCompletionRequest) map[string]any {
	messages := make([]map[string]string, 0, len(req.Messages))
	for _, msg := range req.Messages {
		content := msg.Content
		if !msg.IsPlainText() {
			var b strings.Builder
			for _, part := range msg.Parts {
				b.WriteString(part.Text)
			}
			content = b.String()
		}
		messages = append(messages, map[string]string{"role": msg.Role, "content": content})
	}

	payload := map[string]any{"messages": messages}
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		payload["top_p"] = *req.TopP
	}
	if req.MaxTokens != nil {
		payload["max_tokens"] = *req.MaxTokens
	}
	if req.Stream != nil {
		payload["stream"] = *req.Stream
	}
	return payload
}

// normalizeResponse uses the OpenAI-shaped choices array when present,
// falling back to synthesizing a single choice from generated_text.
func normalizeResponse(decoded map[string]any, requestModel string) *domain.ChatCompletionResponse {
	id := jsonutil.String(decoded, "id")
	if id == "" {
		id = "chatcmpl-huggingface-" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	}

	resp := &domain.ChatCompletionResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   requestModel,
	}

	if choices := jsonutil.MapSlice(decoded, "choices"); len(choices) > 0 {
		resp.Choices = decodeChoices(choices)
		resp.Usage = decodeUsage(jsonutil.Map(decoded, "usage"))
		return resp
	}

	text := extractGeneratedText(decoded)
	resp.Choices = []domain.Choice{{
		Index:        0,
		Message:      domain.ResponseMessage{Role: "assistant", Content: text},
		FinishReason: "stop",
	}}
	return resp
}

// extractGeneratedText reads the generated_text fallback field used by
// models that don't speak the OpenAI choices shape.
func extractGeneratedText(decoded map[string]any) string {
	return jsonutil.String(decoded, "generated_text")
}

func decodeChoices(raw []map[string]any) []domain.Choice {
	choices := make([]domain.Choice, 0, len(raw))
	for i, item := range raw {
		index, ok := jsonutil.Int(item, "index")
		if !ok {
			index = i
		}
		message := jsonutil.Map(item, "message")
		choices = append(choices, domain.Choice{
			Index: index,
			Message: domain.ResponseMessage{
				Role:    jsonutil.String(message, "role"),
				Content: jsonutil.String(message, "content"),
			},
			FinishReason: jsonutil.String(item, "finish_reason"),
		})
	}
	return choices
}

func decodeUsage(raw map[string]any) *domain.Usage {
	if raw == nil {
		return nil
	}
	prompt, _ := jsonutil.Int(raw, "prompt_tokens")
	completion, _ := jsonutil.Int(raw, "completion_tokens")
	total, ok := jsonutil.Int(raw, "total_tokens")
	if !ok {
		total = prompt + completion
	}
	return &domain.Usage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: total}
}
