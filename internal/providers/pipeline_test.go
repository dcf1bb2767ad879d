package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/llm-gateway/internal/credentials"
	"github.com/upb/llm-gateway/internal/domain"
	"github.com/upb/llm-gateway/internal/tracelog"
)

func newTestPipeline() (*Pipeline, *credentials.MemoryStore, *tracelog.MemoryStore) {
	creds := credentials.NewMemoryStore()
	traces := tracelog.NewMemoryStore()
	return NewPipeline(creds, traces), creds, traces
}

func TestPipeline_Execute_AuthMissing(t *testing.T) {
	p, _, _ := newTestPipeline()
	_, err := p.Execute(context.Background(), Attempt{
		ProviderID:  "cerebras",
		Method:      "POST",
		URL:         "http://example.invalid/v1/chat/completions",
		Payload:     map[string]any{},
		TrackErrors: true,
	})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrorKindAuthMissing))
}

func TestPipeline_Execute_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc","choices":[]}`))
	}))
	defer srv.Close()

	p, creds, traces := newTestPipeline()
	require.NoError(t, creds.Upsert(context.Background(), "cerebras", "sk-test"))

	decoded, err := p.Execute(context.Background(), Attempt{
		ProviderID:  "cerebras",
		Method:      "POST",
		URL:         srv.URL,
		Payload:     map[string]any{"model": "x"},
		TrackErrors: true,
		RequestID:   "req-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", decoded["id"])

	logs, err := traces.ListProviderLogs(context.Background(), "cerebras", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "req-1", logs[0].RequestID)

	cred, ok, err := creds.Get(context.Background(), "cerebras")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, cred.LastError)
}

func TestPipeline_Execute_AuthRequiredRecordsCredentialError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid key"}`))
	}))
	defer srv.Close()

	p, creds, traces := newTestPipeline()
	require.NoError(t, creds.Upsert(context.Background(), "cerebras", "sk-bad"))

	_, err := p.Execute(context.Background(), Attempt{
		ProviderID:  "cerebras",
		Method:      "POST",
		URL:         srv.URL,
		Payload:     map[string]any{},
		TrackErrors: true,
	})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrorKindAuthRequired))

	cred, ok, err := creds.Get(context.Background(), "cerebras")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, cred.LastError)

	logs, err := traces.ListProviderLogs(context.Background(), "cerebras", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
}

func TestPipeline_Execute_RateLimitWithDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"status":"RESOURCE_EXHAUSTED","message":"quota hit"}}`))
	}))
	defer srv.Close()

	p, creds, _ := newTestPipeline()
	require.NoError(t, creds.Upsert(context.Background(), "gemini", "sk-test"))

	_, err := p.Execute(context.Background(), Attempt{
		ProviderID: "gemini",
		Method:     "POST",
		URL:        srv.URL,
		Payload:    map[string]any{},
		ErrorDetail: func(body map[string]any) string {
			errObj, _ := body["error"].(map[string]any)
			status, _ := errObj["status"].(string)
			message, _ := errObj["message"].(string)
			return status + " " + message
		},
		TrackErrors: true,
	})
	require.Error(t, err)
	var gwErr *domain.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Contains(t, gwErr.Message, "RESOURCE_EXHAUSTED quota hit")
}

func TestPipeline_Execute_ValidateAPIKeyDoesNotTrackErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, creds, traces := newTestPipeline()

	_, err := p.Execute(context.Background(), Attempt{
		ProviderID:     "cerebras",
		Method:         "POST",
		URL:            srv.URL,
		Payload:        map[string]any{},
		APIKeyOverride: "sk-probe",
		TrackErrors:    false,
	})
	require.Error(t, err)

	_, ok, err := creds.Get(context.Background(), "cerebras")
	require.NoError(t, err)
	assert.False(t, ok)

	logs, err := traces.ListProviderLogs(context.Background(), "cerebras", 10)
	require.NoError(t, err)
	assert.Len(t, logs, 0)
}

func TestPipeline_Execute_NonObjectResponseIsBadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[1,2,3]`))
	}))
	defer srv.Close()

	p, creds, _ := newTestPipeline()
	require.NoError(t, creds.Upsert(context.Background(), "cerebras", "sk-test"))

	_, err := p.Execute(context.Background(), Attempt{
		ProviderID:  "cerebras",
		Method:      "POST",
		URL:         srv.URL,
		Payload:     map[string]any{},
		TrackErrors: true,
	})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrorKindProviderUnavailable))
}
