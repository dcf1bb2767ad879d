package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/upb/llm-gateway/internal/domain"
)

// CallTimeout is the per-call HTTP timeout every vendor adapter uses.
const CallTimeout = 30 * time.Second

// AuthHeader names the header and value an adapter attaches for
// authentication. Every vendor but Gemini uses Bearer; Gemini uses
// x-goog-api-key.
type AuthHeader func(apiKey string) (header, value string)

// BearerAuth is the default AuthHeader used by every vendor but Gemini.
func BearerAuth(apiKey string) (string, string) {
	return "Authorization", "Bearer " + apiKey
}

// DetailExtractor pulls a vendor-specific detail string out of a decoded
// error body, appended to the "Provider quota exhausted" message. Gemini
// is the only vendor that supplies one; every other adapter passes nil.
type DetailExtractor func(body map[string]any) string

// Attempt describes one HTTP call through the shared pipeline.
type Attempt struct {
	ProviderID  string
	Method      string
	URL         string
	Payload     any // marshaled to JSON for the request body
	Auth        AuthHeader
	ErrorDetail DetailExtractor

	// APIKeyOverride, when set, bypasses the credential store entirely
	// (used by ValidateAPIKey). TrackErrors must be false whenever this
	// is set.
	APIKeyOverride string

	// TrackErrors selects the real chat_completions call path: true
	// mutates credential state and writes trace entries; false (used by
	// ValidateAPIKey) suppresses both.
	TrackErrors bool

	RequestID string
}

// Pipeline implements the shared HTTP request/classify/trace flow every
// vendor adapter runs through, per the five-step contract: read the
// credential, build and send the request, classify the outcome, and
// record credential/trace state accordingly.
type Pipeline struct {
	Credentials CredentialSource
	Traces      TraceSink
	HTTPClient  *http.Client
}

// NewPipeline builds a Pipeline with a client timed to CallTimeout.
func NewPipeline(creds CredentialSource, traces TraceSink) *Pipeline {
	return &Pipeline{
		Credentials: creds,
		Traces:      traces,
		HTTPClient:  &http.Client{Timeout: CallTimeout},
	}
}

// Execute runs one attempt and returns the decoded 2xx JSON object, or a
// *domain.GatewayError classified per the shared contract.
func (p *Pipeline) Execute(ctx context.Context, a Attempt) (map[string]any, error) {
	apiKey := a.APIKeyOverride
	if apiKey == "" {
		cred, ok, err := p.Credentials.Get(ctx, a.ProviderID)
		if err != nil {
			return nil, domain.NewGatewayError(domain.ErrorKindInternal, a.ProviderID, "failed to read credential", err)
		}
		if !ok || !cred.HasAPIKey() {
			return nil, domain.AuthMissing(a.ProviderID)
		}
		apiKey = cred.APIKey
	}

	body, err := json.Marshal(a.Payload)
	if err != nil {
		return nil, domain.NewGatewayError(domain.ErrorKindInternal, a.ProviderID, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, a.Method, a.URL, bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewGatewayError(domain.ErrorKindInternal, a.ProviderID, "failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	auth := a.Auth
	if auth == nil {
		auth = BearerAuth
	}
	name, value := auth(apiKey)
	httpReq.Header.Set(name, value)

	resp, err := p.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, p.fail(ctx, a, "network", domain.ProviderUnavailable(a.ProviderID, "Provider request failed"), body, nil, 0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, p.fail(ctx, a, "network", domain.ProviderUnavailable(a.ProviderID, "Provider request failed"), body, nil, resp.StatusCode, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, p.fail(ctx, a, "auth", domain.AuthRequired(a.ProviderID), body, respBody, resp.StatusCode, nil)

	case resp.StatusCode == 402 || resp.StatusCode == 403 || resp.StatusCode == 429:
		message := "Provider quota exhausted"
		if a.ErrorDetail != nil {
			if decoded, ok := decodeObject(respBody); ok {
				if detail := a.ErrorDetail(decoded); detail != "" {
					message += ": " + detail
				}
			}
		}
		return nil, p.fail(ctx, a, "rate_limit", domain.ProviderUnavailable(a.ProviderID, message), body, respBody, resp.StatusCode, nil)

	case resp.StatusCode >= 400:
		return nil, p.fail(ctx, a, fmt.Sprintf("http_%d", resp.StatusCode), domain.ProviderUnavailable(a.ProviderID, "Provider error"), body, respBody, resp.StatusCode, nil)
	}

	decoded, ok := decodeObject(respBody)
	if !ok {
		return nil, p.fail(ctx, a, "bad_response", domain.ProviderUnavailable(a.ProviderID, "Unexpected response format"), body, respBody, resp.StatusCode, nil)
	}

	if a.TrackErrors {
		if err := p.Credentials.ClearError(ctx, a.ProviderID); err != nil {
			// clearing a credential error is best-effort; a store hiccup
			// here must not fail an otherwise successful call.
		}
		_ = p.Traces.RecordProviderLog(ctx, a.ProviderID, a.Payload, decoded, a.RequestID)
	}
	return decoded, nil
}

// fail centralizes credential mutation and trace-writing for every
// failure classification, gated by TrackErrors per the shared contract.
func (p *Pipeline) fail(ctx context.Context, a Attempt, label string, gwErr *domain.GatewayError, reqBody, respBody []byte, statusCode int, transportErr error) error {
	if a.TrackErrors {
		_ = p.Credentials.RecordError(ctx, a.ProviderID, label)

		traceBody := map[string]any{
			"error": map[string]any{
				"type":    label,
				"message": gwErr.Message,
			},
		}
		if statusCode != 0 {
			traceBody["error"].(map[string]any)["status_code"] = statusCode
		}
		if decoded, ok := decodeObject(respBody); ok {
			traceBody["response"] = decoded
		} else if len(respBody) > 0 {
			traceBody["response"] = string(respBody)
		}
		_ = p.Traces.RecordProviderLog(ctx, a.ProviderID, a.Payload, traceBody, a.RequestID)
	}
	if transportErr != nil {
		return fmt.Errorf("%w: %v", gwErr, transportErr)
	}
	return gwErr
}

func decodeObject(raw []byte) (map[string]any, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var v map[string]any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return v, true
}
