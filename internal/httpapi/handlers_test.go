package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/llm-gateway/internal/admin"
	"github.com/upb/llm-gateway/internal/credentials"
	"github.com/upb/llm-gateway/internal/domain"
	"github.com/upb/llm-gateway/internal/events"
	"github.com/upb/llm-gateway/internal/providers"
	"github.com/upb/llm-gateway/internal/selector"
)

type fakeAdapter struct {
	id          string
	resp        *domain.ChatCompletionResponse
	err         error
	validateErr error
}

func (a *fakeAdapter) ID() string { return a.id }

func (a *fakeAdapter) ChatCompletions(ctx context.Context, req *domain.ChatCompletionRequest) (*domain.ChatCompletionResponse, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.resp, nil
}

func (a *fakeAdapter) ValidateAPIKey(ctx context.Context, apiKey string) error { return a.validateErr }

type fakeRegistry struct {
	descriptors []domain.ProviderDescriptor
	adapters    map[string]*fakeAdapter
}

func (r *fakeRegistry) Providers() []domain.ProviderDescriptor { return r.descriptors }

func (r *fakeRegistry) GetAdapter(providerID string) (providers.Adapter, error) {
	a, ok := r.adapters[providerID]
	if !ok {
		return nil, domain.ProviderUnavailable(providerID, "No adapter configured")
	}
	return a, nil
}

func newTestServer() (*Server, *fakeRegistry) {
	reg := &fakeRegistry{
		descriptors: []domain.ProviderDescriptor{
			{ID: "cerebras", Name: "Cerebras", Priority: 1, Models: map[string]string{"default": "llama3"}},
		},
		adapters: map[string]*fakeAdapter{
			"cerebras": {id: "cerebras", resp: &domain.ChatCompletionResponse{
				ID: "resp-1",
				Choices: []domain.Choice{{
					Message:      domain.ResponseMessage{Role: "assistant", Content: "hi"},
					FinishReason: "stop",
				}},
			}},
		},
	}
	logger := zap.NewNop()
	creds := credentials.NewMemoryStore()
	eventStore := events.NewMemoryStore(true, 2)
	sel := selector.New(reg, eventStore, logger)
	adminSvc := admin.New(reg, creds, eventStore)
	return NewServer(sel, adminSvc, nil, logger), reg
}

func TestHandleChatCompletions_Success(t *testing.T) {
	srv, _ := newTestServer()
	body := []byte(`{"model":"llama3","messages":[{"role":"user","content":"hi"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "resp-1", out["id"])
}

func TestHandleChatCompletions_InvalidBodyReturns400(t *testing.T) {
	srv, _ := newTestServer()
	body := []byte(`{"model":"llama3","messages":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChatCompletions_ProviderUnavailableReturns429(t *testing.T) {
	srv, reg := newTestServer()
	reg.adapters["cerebras"].err = domain.ProviderUnavailable("cerebras", "quota exceeded")

	body := []byte(`{"model":"llama3","messages":[{"role":"user","content":"hi"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHandleChatCompletions_AuthRequiredReturns401(t *testing.T) {
	srv, reg := newTestServer()
	reg.adapters["cerebras"].err = domain.AuthRequired("cerebras")

	body := []byte(`{"model":"llama3","messages":[{"role":"user","content":"hi"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleChatCompletions_RequestIDEchoed(t *testing.T) {
	srv, _ := newTestServer()
	body := []byte(`{"model":"llama3","messages":[{"role":"user","content":"hi"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	req.Header.Set("X-Request-Id", "req-abc")
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, "req-abc", rec.Header().Get("X-Request-Id"))
}

func TestHandleListProviders(t *testing.T) {
	srv, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/admin/providers/", nil)
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	providersList := out["providers"].([]any)
	require.Len(t, providersList, 1)
}

func TestHandleSetCredential_Success(t *testing.T) {
	srv, _ := newTestServer()
	body := []byte(`{"api_key":"sk-test"}`)
	req := httptest.NewRequest(http.MethodPut, "/admin/providers/cerebras/credentials", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleSetCredential_MissingAPIKeyReturns400(t *testing.T) {
	srv, _ := newTestServer()
	body := []byte(`{}`)
	req := httptest.NewRequest(http.MethodPut, "/admin/providers/cerebras/credentials", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDeleteCredential_NotFoundReturns404(t *testing.T) {
	srv, _ := newTestServer()
	req := httptest.NewRequest(http.MethodDelete, "/admin/providers/cerebras/credentials", nil)
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealthcheck_NotFoundReturns404(t *testing.T) {
	srv, _ := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/admin/providers/cerebras/healthcheck", nil)
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealthz_NoDBConfigured(t *testing.T) {
	srv, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNotFoundRoute(t *testing.T) {
	srv, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
