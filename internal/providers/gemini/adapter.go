// Package gemini adapts the gateway's normalized chat request to
// Google's generateContent endpoint, including role flattening and
// model-in-path URL templating.
package gemini

import (
	"strconv"
	"strings"
	"time"

	"context"

	"github.com/upb/llm-gateway/internal/domain"
	"github.com/upb/llm-gateway/internal/providers"
	"github.com/upb/llm-gateway/internal/providers/jsonutil"
	"github.com/upb/llm-gateway/internal/reqctx"
)

// nowMillis is the current time in milliseconds, used to synthesize a
// response id when Gemini omits one.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// ID is this adapter's provider identifier.
const ID = "gemini"

// Adapter implements providers.Adapter for Gemini.
type Adapter struct {
	baseURL             string
	chatCompletionsPath string
	defaultModel        string
	pipeline            *providers.Pipeline
}

// New builds a Gemini adapter from its descriptor.
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

// authHeader sends the key via x-goog-api-key rather than Bearer.
func authHeader(apiKey string) (string, string) {
	return "x-goog-api-key", apiKey
}

// url builds the generateContent URL, stripping a "models/" prefix from
// the model name before templating it into the path.
func (a *Adapter) url(model string) string {
	model = strings.TrimPrefix(model, "models/")
	path := strings.ReplaceAll(a.chatCompletionsPath, "{model}", model)
	return a.baseURL + path
}

func (a *Adapter) ChatCompletions(ctx context.Context, req *domain.ChatCompletionRequest) (*domain.ChatCompletionResponse, error) {
	payload := buildPayload(req)
	decoded, err := a.pipeline.Execute(ctx, providers.Attempt{
		ProviderID:  ID,
		Method:      "POST",
		URL:         a.url(req.Model),
		Payload:     payload,
		Auth:        authHeader,
		ErrorDetail: extractErrorDetail,
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
	healthReq := &domain.ChatCompletionRequest{
		Model:    a.defaultModel,
		Messages: []domain.Message{{Role: "user", Content: "ping"}},
	}
	one := 1
	healthReq.MaxTokens = &one

	payload := buildPayload(healthReq)
	_, err := a.pipeline.Execute(ctx, providers.Attempt{
		ProviderID:     ID,
		Method:         "POST",
		URL:            a.url(a.defaultModel),
		Payload:        payload,
		Auth:           authHeader,
		ErrorDetail:    extractErrorDetail,
		APIKeyOverride: apiKey,
		TrackErrors:    false,
	})
	return err
}

// extractErrorDetail pulls error.status and error.message out of a
// Gemini error body, single-line, whitespace-collapsed, truncated to 300
// runes.
func extractErrorDetail(body map[string]any) string {
	errObj := jsonutil.Map(body, "error")
	if errObj == nil {
		return ""
	}
	status := jsonutil.String(errObj, "status")
	message := jsonutil.String(errObj, "message")
	detail := strings.TrimSpace(status + " " + message)
	if detail == "" {
		return ""
	}
	return jsonutil.Truncate(jsonutil.CollapseWhitespace(detail), 300)
}

// buildPayload flattens messages by role into Gemini's contents/
// systemInstruction shape and maps the optional scalars into
// generationConfig.
func buildPayload(req *domain.ChatCompletionRequest) map[string]any {
	var contents []map[string]any
	var systemParts []map[string]string

	for _, msg := range req.Messages {
		text := extractText(msg)
		if text == "" {
			continue
		}
		switch msg.Role {
		case "system":
			systemParts = append(systemParts, map[string]string{"text": text})
		case "assistant":
			contents = append(contents, map[string]any{"role": "model", "parts": []map[string]string{{"text": text}}})
		default:
			contents = append(contents, map[string]any{"role": "user", "parts": []map[string]string{{"text": text}}})
		}
	}

	payload := map[string]any{}
	if len(contents) > 0 {
		payload["contents"] = contents
	}
	if len(systemParts) > 0 {
		payload["systemInstruction"] = map[string]any{"parts": systemParts}
	}

	generationConfig := map[string]any{}
	if req.Temperature != nil {
		generationConfig["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil {
		generationConfig["maxOutputTokens"] = *req.MaxTokens
	}
	if req.TopP != nil {
		generationConfig["topP"] = *req.TopP
	}
	if req.FrequencyPenalty != nil {
		generationConfig["frequencyPenalty"] = *req.FrequencyPenalty
	}
	if req.PresencePenalty != nil {
		generationConfig["presencePenalty"] = *req.PresencePenalty
	}
	if len(generationConfig) > 0 {
		payload["generationConfig"] = generationConfig
	}
	return payload
}

// extractText performs the depth-1 extraction: a plain string passes
// through, and a list of parts contributes each part's text, or its
// string "content" field when text is empty; other parts are skipped.
func extractText(msg domain.Message) string {
	if msg.IsPlainText() {
		return msg.Content
	}
	var b strings.Builder
	for _, part := range msg.Parts {
		if part.Text != "" {
			b.WriteString(part.Text)
			continue
		}
		if content := jsonutil.String(part.Raw, "content"); content != "" {
			b.WriteString(content)
		}
	}
	return b.String()
}

func normalizeResponse(decoded map[string]any, requestModel string) *domain.ChatCompletionResponse {
	candidate := selectCandidate(jsonutil.Slice(decoded, "candidates"))

	var text string
	finishReason := "stop"
	metadata := map[string]any{}

	if candidate != nil {
		content := jsonutil.Map(candidate, "content")
		parts := jsonutil.MapSlice(content, "parts")
		var b strings.Builder
		for _, part := range parts {
			b.WriteString(jsonutil.String(part, "text"))
		}
		text = b.String()

		if fr := jsonutil.String(candidate, "finishReason"); fr != "" {
			finishReason = strings.ToLower(fr)
		}
		if safety := jsonutil.Slice(candidate, "safetyRatings"); len(safety) > 0 {
			metadata["safetyRatings"] = safety
		}
		if citationMeta := jsonutil.Map(candidate, "citationMetadata"); citationMeta != nil {
			if citations := jsonutil.Slice(citationMeta, "citations"); len(citations) > 0 {
				metadata["gemini"] = map[string]any{"citations": citations}
			}
		}
	}

	message := domain.ResponseMessage{Role: "assistant", Content: text}
	if len(metadata) > 0 {
		message.Metadata = metadata
	}

	resp := &domain.ChatCompletionResponse{
		ID:      jsonutil.String(decoded, "id"),
		Object:  "chat.completion",
		Model:   requestModel,
		Choices: []domain.Choice{{Index: 0, Message: message, FinishReason: finishReason}},
		Usage:   normalizeUsage(jsonutil.Map(decoded, "usageMetadata")),
	}
	if resp.ID == "" {
		resp.ID = "chatcmpl-gemini-" + strconv.FormatInt(nowMillis(), 10)
	}
	resp.Created = nowMillis() / 1000
	return resp
}

func selectCandidate(candidates []any) map[string]any {
	for _, c := range candidates {
		if m, ok := c.(map[string]any); ok {
			return m
		}
	}
	return nil
}

func normalizeUsage(usage map[string]any) *domain.Usage {
	if usage == nil {
		return nil
	}
	prompt, hasPrompt := jsonutil.Int(usage, "promptTokenCount")
	completion, hasCompletion := jsonutil.Int(usage, "candidatesTokenCount")
	total, hasTotal := jsonutil.Int(usage, "totalTokenCount")
	if !hasTotal && hasPrompt && hasCompletion {
		total = prompt + completion
		hasTotal = true
	}
	if !hasPrompt && !hasCompletion && !hasTotal {
		return nil
	}
	return &domain.Usage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: total}
}
