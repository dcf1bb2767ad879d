package providers

import (
	"time"

	"github.com/upb/llm-gateway/internal/domain"
	"github.com/upb/llm-gateway/internal/providers/jsonutil"
)

// BuildPassthroughPayload builds the OpenAI-shaped payload Cerebras and
// OpenRouter both speak natively: model and messages forwarded verbatim,
// plus any non-null optional scalar.
func BuildPassthroughPayload(req *domain.ChatCompletionRequest) map[string]any {
	payload := map[string]any{
		"model":    req.Model,
		"messages": req.Messages,
	}
	for key, value := range req.OptionalScalars() {
		payload[key] = value
	}
	return payload
}

// NormalizePassthroughResponse fills in the OpenAI response defaults a
// bare-bones vendor response may omit, then decodes the duck-typed
// payload into the normalized domain type.
func NormalizePassthroughResponse(decoded map[string]any, requestModel string) *domain.ChatCompletionResponse {
	if jsonutil.String(decoded, "object") == "" {
		decoded["object"] = "chat.completion"
	}
	if _, ok := jsonutil.Int(decoded, "created"); !ok {
		decoded["created"] = time.Now().Unix()
	}
	if jsonutil.String(decoded, "model") == "" {
		decoded["model"] = requestModel
	}
	return decodeChatResponse(decoded)
}

// decodeChatResponse extracts the normalized response fields from a
// duck-typed OpenAI-shaped payload.
func decodeChatResponse(decoded map[string]any) *domain.ChatCompletionResponse {
	resp := &domain.ChatCompletionResponse{
		ID:      jsonutil.String(decoded, "id"),
		Object:  jsonutil.String(decoded, "object"),
		Model:   jsonutil.String(decoded, "model"),
		Choices: decodeChoices(jsonutil.MapSlice(decoded, "choices")),
		Usage:   decodeUsage(jsonutil.Map(decoded, "usage")),
	}
	if created, ok := jsonutil.Int(decoded, "created"); ok {
		resp.Created = int64(created)
	}
	return resp
}

func decodeChoices(raw []map[string]any) []domain.Choice {
	choices := make([]domain.Choice, 0, len(raw))
	for i, item := range raw {
		index, ok := jsonutil.Int(item, "index")
		if !ok {
			index = i
		}
		choices = append(choices, domain.Choice{
			Index:        index,
			Message:      decodeResponseMessage(jsonutil.Map(item, "message")),
			FinishReason: jsonutil.String(item, "finish_reason"),
		})
	}
	return choices
}

func decodeResponseMessage(raw map[string]any) domain.ResponseMessage {
	return domain.ResponseMessage{
		Role:    jsonutil.String(raw, "role"),
		Content: jsonutil.String(raw, "content"),
	}
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
