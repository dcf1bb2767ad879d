// Package cohere adapts the gateway's normalized chat request to
// Cohere's v2 chat endpoint, including multi-part content and image
// source resolution in both directions.
package cohere

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/upb/llm-gateway/internal/domain"
	"github.com/upb/llm-gateway/internal/providers"
	"github.com/upb/llm-gateway/internal/providers/jsonutil"
	"github.com/upb/llm-gateway/internal/reqctx"
)

// ID is this adapter's provider identifier.
const ID = "cohere"

// Adapter implements providers.Adapter for Cohere.
type Adapter struct {
	baseURL             string
	chatCompletionsPath string
	defaultModel        string
	pipeline            *providers.Pipeline
}

// New builds a Cohere adapter from its descriptor.
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
	payload := buildPayload(req)
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
		URL:            a.baseURL + a.chatCompletionsPath,
		Payload:        buildPayload(healthReq),
		APIKeyOverride: apiKey,
		TrackErrors:    false,
	})
	return err
}

// buildPayload rewrites every message's content into Cohere's ordered
// typed-part shape and forwards only the scalars Cohere v2 accepts.
func buildPayload(req *domain.ChatCompletionRequest) map[string]any {
	messages := make([]map[string]any, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, map[string]any{
			"role":    msg.Role,
			"content": buildContentParts(msg),
		})
	}

	payload := map[string]any{
		"model":    req.Model,
		"messages": messages,
	}
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil {
		payload["max_tokens"] = *req.MaxTokens
	}
	if req.TopP != nil {
		payload["top_p"] = *req.TopP
	}
	if req.Stream != nil {
		payload["stream"] = *req.Stream
	}
	return payload
}

// buildContentParts rewrites a message's content into an ordered sequence
// of typed parts, resolving image sources along the way.
func buildContentParts(msg domain.Message) []map[string]any {
	if msg.IsPlainText() {
		return []map[string]any{{"type": "text", "text": msg.Content}}
	}

	parts := make([]map[string]any, 0, len(msg.Parts))
	for _, part := range msg.Parts {
		switch part.Type {
		case "text", "input_text":
			parts = append(parts, map[string]any{"type": "text", "text": part.Text})
		case "image", "image_url", "input_image":
			parts = append(parts, buildImagePart(part))
		default:
			if part.Raw != nil {
				parts = append(parts, part.Raw)
			}
		}
	}
	return parts
}

// buildImagePart resolves an image content part's source, preferring an
// explicit source dict, then inline base64, then a url (decoding data:
// URLs into base64 and passing http(s) URLs through by reference).
func buildImagePart(part domain.ContentPart) map[string]any {
	if source := jsonutil.Map(part.Raw, "source"); source != nil {
		return map[string]any{"type": "image", "source": source}
	}

	image := jsonutil.Map(part.Raw, "image")
	if b64 := firstNonEmpty(jsonutil.String(image, "b64_json"), jsonutil.String(image, "base64")); b64 != "" {
		mediaType := jsonutil.String(image, "media_type")
		if mediaType == "" {
			mediaType = "image/png"
		}
		return map[string]any{
			"type":   "image",
			"source": map[string]any{"type": "base64", "media_type": mediaType, "data": b64},
		}
	}

	url := firstNonEmpty(jsonutil.String(image, "url"), jsonutil.String(part.Raw, "image_url"))
	if part.ImageURL != nil && url == "" {
		url = part.ImageURL.URL
	}
	if url == "" {
		return map[string]any{"type": "image", "source": map[string]any{}}
	}

	if mediaType, data, ok := decodeDataURL(url); ok {
		return map[string]any{
			"type":   "image",
			"source": map[string]any{"type": "base64", "media_type": mediaType, "data": data},
		}
	}

	source := map[string]any{"type": "url", "url": url}
	if part.ImageURL != nil && part.ImageURL.MediaType != "" {
		source["media_type"] = part.ImageURL.MediaType
	}
	return map[string]any{"type": "image", "source": source}
}

// decodeDataURL splits a "data:<media_type>;base64,<data>" URL into its
// media type and base64 payload.
func decodeDataURL(url string) (mediaType, data string, ok bool) {
	if !strings.HasPrefix(url, "data:") {
		return "", "", false
	}
	rest := strings.TrimPrefix(url, "data:")
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", "", false
	}
	mediaType = strings.TrimSuffix(meta, ";base64")
	if mediaType == "" {
		mediaType = "image/png"
	}
	if !strings.HasSuffix(meta, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return mediaType, payload, true
		}
		payload = base64.StdEncoding.EncodeToString(decoded)
	}
	return mediaType, payload, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// normalizeResponse walks Cohere's ordered message.content items once,
// collapsing to a plain string when nothing non-text was seen.
func normalizeResponse(decoded map[string]any, requestModel string) *domain.ChatCompletionResponse {
	message := jsonutil.Map(decoded, "message")
	items := jsonutil.MapSlice(message, "content")

	var textParts []string
	var orderedParts []domain.ContentPart
	var toolCalls []domain.ToolCall
	var citations []any
	hasNonText := false

	for _, item := range items {
		switch jsonutil.String(item, "type") {
		case "text":
			text := jsonutil.String(item, "text")
			textParts = append(textParts, text)
			orderedParts = append(orderedParts, domain.ContentPart{Type: "text", Text: text})
		case "tool_calls":
			for _, raw := range jsonutil.Slice(item, "tool_calls") {
				if toolMap, ok := raw.(map[string]any); ok {
					toolCalls = append(toolCalls, normalizeToolCall(toolMap))
				}
			}
		case "citation":
			citations = append(citations, jsonutil.Slice(item, "citations")...)
		case "image":
			hasNonText = true
			orderedParts = append(orderedParts, buildResponseImagePart(item))
		default:
			if text := firstNonEmpty(jsonutil.String(item, "text"), jsonutil.String(item, "content")); text != "" {
				textParts = append(textParts, text)
				orderedParts = append(orderedParts, domain.ContentPart{Type: "text", Text: text})
			}
		}
	}

	respMessage := domain.ResponseMessage{Role: "assistant"}
	if hasNonText {
		respMessage.Parts = orderedParts
	} else {
		respMessage.Content = strings.Join(textParts, "")
	}
	if len(toolCalls) > 0 {
		respMessage.ToolCalls = toolCalls
	}
	if len(citations) > 0 {
		respMessage.Metadata = map[string]any{"cohere": map[string]any{"citations": citations}}
	}

	finishReason := firstNonEmpty(
		jsonutil.String(decoded, "finish_reason"),
		jsonutil.String(message, "finish_reason"),
		jsonutil.String(decoded, "stop_reason"),
	)
	if finishReason == "" {
		finishReason = "stop"
	}

	resp := &domain.ChatCompletionResponse{
		ID:      jsonutil.String(decoded, "id"),
		Object:  "chat.completion",
		Model:   requestModel,
		Choices: []domain.Choice{{Index: 0, Message: respMessage, FinishReason: finishReason}},
		Usage:   normalizeUsage(jsonutil.Map(decoded, "usage")),
	}
	if resp.ID == "" {
		resp.ID = "chatcmpl-cohere-" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	}
	resp.Created = time.Now().Unix()
	return resp
}

// buildResponseImagePart converts a Cohere response image item into the
// OpenAI-shaped image_url content part, inlining base64 sources as data
// URLs.
func buildResponseImagePart(item map[string]any) domain.ContentPart {
	source := jsonutil.Map(item, "source")
	mediaType := jsonutil.String(source, "media_type")

	var url string
	switch jsonutil.String(source, "type") {
	case "base64":
		data := jsonutil.String(source, "data")
		mt := mediaType
		if mt == "" {
			mt = "image/png"
		}
		url = "data:" + mt + ";base64," + data
	default:
		url = jsonutil.String(source, "url")
	}

	return domain.ContentPart{
		Type:     "image_url",
		ImageURL: &domain.ImageURL{URL: url, MediaType: mediaType},
	}
}

// normalizeToolCall maps a Cohere tool call into OpenAI's
// {id, type, function:{name, arguments}} shape, JSON-encoding structured
// arguments.
func normalizeToolCall(tool map[string]any) domain.ToolCall {
	toolType := jsonutil.String(tool, "type")
	if toolType == "" {
		toolType = "function"
	}

	function := jsonutil.Map(tool, "function")
	arguments := "{}"
	if function != nil {
		switch v := function["arguments"].(type) {
		case string:
			if v != "" {
				arguments = v
			}
		case map[string]any, []any:
			if encoded, err := json.Marshal(v); err == nil {
				arguments = string(encoded)
			}
		}
	}

	return domain.ToolCall{
		ID:   jsonutil.String(tool, "id"),
		Type: toolType,
		Function: domain.ToolCallFunction{
			Name:      jsonutil.String(function, "name"),
			Arguments: arguments,
		},
	}
}

// normalizeUsage accepts either Cohere's {tokens:{input,output,total?}}
// shape or OpenAI-style keys, inferring total_tokens when absent.
func normalizeUsage(usage map[string]any) *domain.Usage {
	if usage == nil {
		return nil
	}

	var prompt, completion, total int
	var hasPrompt, hasCompletion, hasTotal bool

	if tokens := jsonutil.Map(usage, "tokens"); tokens != nil {
		if v, ok := firstInt(tokens, "input", "prompt"); ok {
			prompt, hasPrompt = v, true
		}
		if v, ok := firstInt(tokens, "output", "generation"); ok {
			completion, hasCompletion = v, true
		}
		if v, ok := jsonutil.Int(tokens, "total"); ok {
			total, hasTotal = v, true
		}
	} else {
		prompt, hasPrompt = jsonutil.Int(usage, "prompt_tokens")
		completion, hasCompletion = jsonutil.Int(usage, "completion_tokens")
		total, hasTotal = jsonutil.Int(usage, "total_tokens")
	}

	if !hasTotal && hasPrompt && hasCompletion {
		total = prompt + completion
		hasTotal = true
	}
	if !hasPrompt && !hasCompletion && !hasTotal {
		return nil
	}
	return &domain.Usage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: total}
}

func firstInt(m map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		if v, ok := jsonutil.Int(m, key); ok {
			return v, true
		}
	}
	return 0, false
}
