package httpapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/llm-gateway/internal/domain"
)

func TestDecodeChatCompletionRequest_PlainStringContent(t *testing.T) {
	raw := json.RawMessage(`{"model":"m1","messages":[{"role":"user","content":"hello"}]}`)
	req, err := decodeChatCompletionRequest(raw)
	require.NoError(t, err)
	assert.Equal(t, "m1", req.Model)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "hello", req.Messages[0].Content)
	assert.True(t, req.Messages[0].IsPlainText())
}

func TestDecodeChatCompletionRequest_MultipartContent(t *testing.T) {
	raw := json.RawMessage(`{"model":"m1","messages":[{"role":"user","content":[
		{"type":"text","text":"what is this?"},
		{"type":"image_url","image_url":{"url":"https://example.com/a.png"}}
	]}]}`)
	req, err := decodeChatCompletionRequest(raw)
	require.NoError(t, err)
	require.Len(t, req.Messages, 1)
	parts := req.Messages[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "what is this?", parts[0].Text)
	assert.Equal(t, "image_url", parts[1].Type)
	require.NotNil(t, parts[1].ImageURL)
	assert.Equal(t, "https://example.com/a.png", parts[1].ImageURL.URL)
}

func TestDecodeChatCompletionRequest_EmptyMessagesRejected(t *testing.T) {
	raw := json.RawMessage(`{"model":"m1","messages":[]}`)
	_, err := decodeChatCompletionRequest(raw)
	require.Error(t, err)
}

func TestDecodeChatCompletionRequest_MissingRoleRejected(t *testing.T) {
	raw := json.RawMessage(`{"model":"m1","messages":[{"role":"","content":"hi"}]}`)
	_, err := decodeChatCompletionRequest(raw)
	require.Error(t, err)
}

func TestDecodeChatCompletionRequest_TemperatureOutOfRangeRejected(t *testing.T) {
	raw := json.RawMessage(`{"model":"m1","messages":[{"role":"user","content":"hi"}],"temperature":5}`)
	_, err := decodeChatCompletionRequest(raw)
	require.Error(t, err)
}

func TestDecodeChatCompletionRequest_OptionalScalarsParsed(t *testing.T) {
	raw := json.RawMessage(`{"model":"m1","messages":[{"role":"user","content":"hi"}],"temperature":0.5,"max_tokens":100,"top_p":0.9}`)
	req, err := decodeChatCompletionRequest(raw)
	require.NoError(t, err)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.5, *req.Temperature)
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, 100, *req.MaxTokens)
}

func TestEncodeChatCompletionResponse_PlainTextChoice(t *testing.T) {
	resp := &domain.ChatCompletionResponse{
		ID:     "resp-1",
		Object: "chat.completion",
		Model:  "m1",
		Choices: []domain.Choice{{
			Index:        0,
			Message:      domain.ResponseMessage{Role: "assistant", Content: "hi there"},
			FinishReason: "stop",
		}},
		Usage: &domain.Usage{PromptTokens: 2, CompletionTokens: 1, TotalTokens: 3},
	}
	wire := encodeChatCompletionResponse(resp)
	require.Len(t, wire.Choices, 1)
	assert.Equal(t, "hi there", wire.Choices[0].Message.Content)
	assert.Equal(t, "stop", wire.Choices[0].FinishReason)
	require.NotNil(t, wire.Usage)
	assert.Equal(t, 3, wire.Usage.TotalTokens)
}

func TestEncodeChatCompletionResponse_ToolCallsIncluded(t *testing.T) {
	resp := &domain.ChatCompletionResponse{
		ID: "resp-1",
		Choices: []domain.Choice{{
			Message: domain.ResponseMessage{
				Role: "assistant",
				ToolCalls: []domain.ToolCall{{
					ID:   "call_1",
					Type: "function",
					Function: domain.ToolCallFunction{
						Name:      "lookup",
						Arguments: `{"q":"weather"}`,
					},
				}},
			},
		}},
	}
	wire := encodeChatCompletionResponse(resp)
	require.Len(t, wire.Choices[0].Message.ToolCalls, 1)
	assert.Equal(t, "call_1", wire.Choices[0].Message.ToolCalls[0].ID)
}
