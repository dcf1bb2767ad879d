package cerebras

import (
	"context"
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

func newTestAdapter(t *testing.T, baseURL string) (*Adapter, *credentials.MemoryStore) {
	creds := credentials.NewMemoryStore()
	pipeline := providers.NewPipeline(creds, tracelog.NewMemoryStore())
	descriptor := domain.ProviderDescriptor{
		ID:                  ID,
		BaseURL:             baseURL,
		ChatCompletionsPath: "/v1/chat/completions",
		Models:              map[string]string{"default": "llama3.1-8b"},
	}
	return New(descriptor, pipeline), creds
}

func TestAdapter_ChatCompletions_PassesThroughOpenAIShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"chatcmpl-1",
			"choices":[{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}
		}`))
	}))
	defer srv.Close()

	adapter, creds := newTestAdapter(t, srv.URL)
	require.NoError(t, creds.Upsert(context.Background(), ID, "sk-test"))

	resp, err := adapter.ChatCompletions(context.Background(), &domain.ChatCompletionRequest{
		Model:    "llama3.1-8b",
		Messages: []domain.Message{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "chatcmpl-1", resp.ID)
	assert.Equal(t, "chat.completion", resp.Object)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "hi", resp.Choices[0].Message.Content)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 5, resp.Usage.TotalTokens)
}

func TestAdapter_ValidateAPIKey_NoDefaultModel(t *testing.T) {
	creds := credentials.NewMemoryStore()
	pipeline := providers.NewPipeline(creds, tracelog.NewMemoryStore())
	adapter := New(domain.ProviderDescriptor{ID: ID, BaseURL: "http://example.invalid"}, pipeline)

	err := adapter.ValidateAPIKey(context.Background(), "sk-test")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrorKindConfig))
}

func TestAdapter_ID(t *testing.T) {
	adapter, _ := newTestAdapter(t, "http://example.invalid")
	assert.Equal(t, "cerebras", adapter.ID())
}
