package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/llm-gateway/internal/credentials"
	"github.com/upb/llm-gateway/internal/domain"
	"github.com/upb/llm-gateway/internal/providers"
	"github.com/upb/llm-gateway/internal/tracelog"
)

func newTestAdapter(baseURL string) (*Adapter, *credentials.MemoryStore) {
	creds := credentials.NewMemoryStore()
	pipeline := providers.NewPipeline(creds, tracelog.NewMemoryStore())
	descriptor := domain.ProviderDescriptor{
		ID:                  ID,
		BaseURL:             baseURL,
		ChatCompletionsPath: "/v2/chat",
		Models:              map[string]string{"default": "command-r-plus"},
	}
	return New(descriptor, pipeline), creds
}

func TestChatCompletions_PlainTextRoundTrip(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = decodeJSON(r, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"cohere-1",
			"message":{"role":"assistant","content":[{"type":"text","text":"hi there"}]},
			"finish_reason":"COMPLETE",
			"usage":{"tokens":{"input":10,"output":4}}
		}`))
	}))
	defer srv.Close()

	adapter, creds := newTestAdapter(srv.URL)
	require.NoError(t, creds.Upsert(context.Background(), ID, "sk-test"))

	resp, err := adapter.ChatCompletions(context.Background(), &domain.ChatCompletionRequest{
		Model:    "command-r-plus",
		Messages: []domain.Message{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "cohere-1", resp.ID)
	assert.Equal(t, "hi there", resp.Choices[0].Message.Content)
	assert.Equal(t, "COMPLETE", resp.Choices[0].FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 10, resp.Usage.PromptTokens)
	assert.Equal(t, 4, resp.Usage.CompletionTokens)
	assert.Equal(t, 14, resp.Usage.TotalTokens)

	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	msg := messages[0].(map[string]any)
	parts := msg["content"].([]any)
	require.Len(t, parts, 1)
	part := parts[0].(map[string]any)
	assert.Equal(t, "text", part["type"])
	assert.Equal(t, "hello", part["text"])
}

func TestChatCompletions_MultimodalRequestBuildsImageParts(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = decodeJSON(r, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":[{"type":"text","text":"ok"}]}}`))
	}))
	defer srv.Close()

	adapter, creds := newTestAdapter(srv.URL)
	require.NoError(t, creds.Upsert(context.Background(), ID, "sk-test"))

	_, err := adapter.ChatCompletions(context.Background(), &domain.ChatCompletionRequest{
		Model: "command-r-plus",
		Messages: []domain.Message{{
			Role: "user",
			Parts: []domain.ContentPart{
				{Type: "text", Text: "what's in this image?"},
				{Type: "image_url", ImageURL: &domain.ImageURL{URL: "data:image/png;base64,QUJD"}},
			},
		}},
	})
	require.NoError(t, err)

	messages := captured["messages"].([]any)
	msg := messages[0].(map[string]any)
	parts := msg["content"].([]any)
	require.Len(t, parts, 2)

	imagePart := parts[1].(map[string]any)
	assert.Equal(t, "image", imagePart["type"])
	source := imagePart["source"].(map[string]any)
	assert.Equal(t, "base64", source["type"])
	assert.Equal(t, "image/png", source["media_type"])
	assert.Equal(t, "QUJD", source["data"])
}

func TestChatCompletions_ToolCallNormalization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"message":{
				"role":"assistant",
				"content":[{"type":"tool_calls","tool_calls":[
					{"id":"call_1","type":"function","function":{"name":"lookup","arguments":{"q":"weather"}}}
				]}]
			}
		}`))
	}))
	defer srv.Close()

	adapter, creds := newTestAdapter(srv.URL)
	require.NoError(t, creds.Upsert(context.Background(), ID, "sk-test"))

	resp, err := adapter.ChatCompletions(context.Background(), &domain.ChatCompletionRequest{
		Model:    "command-r-plus",
		Messages: []domain.Message{{Role: "user", Content: "weather?"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices[0].Message.ToolCalls, 1)
	tc := resp.Choices[0].Message.ToolCalls[0]
	assert.Equal(t, "call_1", tc.ID)
	assert.Equal(t, "function", tc.Type)
	assert.Equal(t, "lookup", tc.Function.Name)
	assert.JSONEq(t, `{"q":"weather"}`, tc.Function.Arguments)
}

func TestValidateAPIKey_NoDefaultModel(t *testing.T) {
	creds := credentials.NewMemoryStore()
	pipeline := providers.NewPipeline(creds, tracelog.NewMemoryStore())
	adapter := New(domain.ProviderDescriptor{ID: ID, BaseURL: "http://example.invalid"}, pipeline)

	err := adapter.ValidateAPIKey(context.Background(), "sk-test")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrorKindConfig))
}

func decodeJSON(r *http.Request, out *map[string]any) error {
	return json.NewDecoder(r.Body).Decode(out)
}
