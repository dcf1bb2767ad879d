// Package httpapi exposes the gateway's HTTP surface: the OpenAI-shaped
// chat-completions route, the admin credential/health routes, and the
// operational endpoints (/healthz, /metrics).
package httpapi

import (
	"encoding/json"
	"fmt"

	"github.com/upb/llm-gateway/internal/domain"
)

// chatCompletionRequestWire is the on-the-wire OpenAI-shaped request
// body. Message content is decoded permissively: a JSON string or an
// array of typed parts.
type chatCompletionRequestWire struct {
	Model            string          `json:"model"`
	Messages         []wireMessage   `json:"messages" validate:"required,min=1,dive"`
	Temperature      *float64        `json:"temperature,omitempty" validate:"omitempty,min=0,max=2"`
	MaxTokens        *int            `json:"max_tokens,omitempty" validate:"omitempty,min=1"`
	TopP             *float64        `json:"top_p,omitempty" validate:"omitempty,min=0,max=1"`
	PresencePenalty  *float64        `json:"presence_penalty,omitempty" validate:"omitempty,min=-2,max=2"`
	FrequencyPenalty *float64        `json:"frequency_penalty,omitempty" validate:"omitempty,min=-2,max=2"`
	Stream           *bool           `json:"stream,omitempty"`
	User             *string         `json:"user,omitempty"`
}

type wireMessage struct {
	Role    string          `json:"role" validate:"required"`
	Content json.RawMessage `json:"content"`
}

func decodeChatCompletionRequest(raw json.RawMessage) (*domain.ChatCompletionRequest, error) {
	var wire chatCompletionRequestWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if err := validate.Struct(wire); err != nil {
		return nil, validationError(err)
	}

	messages := make([]domain.Message, 0, len(wire.Messages))
	for _, m := range wire.Messages {
		msg, err := decodeMessage(m)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return &domain.ChatCompletionRequest{
		Model:            wire.Model,
		Messages:         messages,
		Temperature:      wire.Temperature,
		MaxTokens:        wire.MaxTokens,
		TopP:             wire.TopP,
		PresencePenalty:  wire.PresencePenalty,
		FrequencyPenalty: wire.FrequencyPenalty,
		Stream:           wire.Stream,
		User:             wire.User,
	}, nil
}

func decodeMessage(m wireMessage) (domain.Message, error) {
	if len(m.Content) == 0 {
		return domain.Message{Role: m.Role, Content: ""}, nil
	}

	var asString string
	if err := json.Unmarshal(m.Content, &asString); err == nil {
		return domain.Message{Role: m.Role, Content: asString}, nil
	}

	var asList []map[string]any
	if err := json.Unmarshal(m.Content, &asList); err != nil {
		return domain.Message{}, fmt.Errorf("decode message content: %w", err)
	}

	parts := make([]domain.ContentPart, 0, len(asList))
	for _, raw := range asList {
		parts = append(parts, decodeContentPart(raw))
	}
	return domain.Message{Role: m.Role, Parts: parts}, nil
}

func decodeContentPart(raw map[string]any) domain.ContentPart {
	part := domain.ContentPart{Raw: raw}
	if t, ok := raw["type"].(string); ok {
		part.Type = t
	}
	if t, ok := raw["text"].(string); ok {
		part.Text = t
	}
	if imageURL, ok := raw["image_url"].(map[string]any); ok {
		iu := &domain.ImageURL{}
		if u, ok := imageURL["url"].(string); ok {
			iu.URL = u
		}
		if mt, ok := imageURL["media_type"].(string); ok {
			iu.MediaType = mt
		}
		part.ImageURL = iu
	}
	return part
}

// chatCompletionResponseWire is the on-the-wire OpenAI-shaped response.
type chatCompletionResponseWire struct {
	ID      string          `json:"id"`
	Object  string          `json:"object"`
	Created int64           `json:"created"`
	Model   string          `json:"model"`
	Choices []wireChoiceOut `json:"choices"`
	Usage   *wireUsage      `json:"usage,omitempty"`
}

type wireChoiceOut struct {
	Index        int            `json:"index"`
	Message      wireMessageOut `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

type wireMessageOut struct {
	Role      string         `json:"role"`
	Content   any            `json:"content"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type wireToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function wireToolFunction `json:"function"`
}

type wireToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func encodeChatCompletionResponse(resp *domain.ChatCompletionResponse) *chatCompletionResponseWire {
	choices := make([]wireChoiceOut, 0, len(resp.Choices))
	for _, choice := range resp.Choices {
		choices = append(choices, wireChoiceOut{
			Index:        choice.Index,
			Message:      encodeMessageOut(choice.Message),
			FinishReason: choice.FinishReason,
		})
	}

	out := &chatCompletionResponseWire{
		ID:      resp.ID,
		Object:  resp.Object,
		Created: resp.Created,
		Model:   resp.Model,
		Choices: choices,
	}
	if resp.Usage != nil {
		out.Usage = &wireUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return out
}

func encodeMessageOut(m domain.ResponseMessage) wireMessageOut {
	out := wireMessageOut{Role: m.Role, Metadata: m.Metadata}

	if m.Parts != nil {
		parts := make([]map[string]any, 0, len(m.Parts))
		for _, part := range m.Parts {
			switch part.Type {
			case "image_url":
				imageURL := map[string]any{"url": part.ImageURL.URL}
				if part.ImageURL.MediaType != "" {
					imageURL["media_type"] = part.ImageURL.MediaType
				}
				parts = append(parts, map[string]any{"type": "image_url", "image_url": imageURL})
			default:
				parts = append(parts, map[string]any{"type": "text", "text": part.Text})
			}
		}
		out.Content = parts
	} else {
		out.Content = m.Content
	}

	if len(m.ToolCalls) > 0 {
		calls := make([]wireToolCall, 0, len(m.ToolCalls))
		for _, tc := range m.ToolCalls {
			calls = append(calls, wireToolCall{
				ID:   tc.ID,
				Type: tc.Type,
				Function: wireToolFunction{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		out.ToolCalls = calls
	}
	return out
}
