package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/upb/llm-gateway/internal/domain"
)

// errorBody is the wire shape every error response uses:
// {"error": {"message", "type", "code"}}.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, errType, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Message: message, Type: errType, Code: code}})
}

// writeGatewayError maps a chat-completions failure to its HTTP status and
// error code: auth_missing/auth_required -> 401 provider_auth_required,
// everything else from the selector -> 429 provider_unavailable,
// uncaught errors -> 500 internal_error.
func writeGatewayError(w http.ResponseWriter, err error) {
	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) {
		switch gwErr.Kind {
		case domain.ErrorKindAuthMissing, domain.ErrorKindAuthRequired:
			writeError(w, http.StatusUnauthorized, "invalid_request_error", "provider_auth_required", gwErr.Message)
		case domain.ErrorKindProviderUnavailable, domain.ErrorKindConfig:
			writeError(w, http.StatusTooManyRequests, "provider_error", "provider_unavailable", gwErr.Message)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "internal_error", "An internal error occurred")
		}
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", "internal_error", "An internal error occurred")
}

// writeAdminError maps an admin-operation failure to 400 or 503 per the
// validation outcome it wraps.
func writeAdminError(w http.ResponseWriter, err error) {
	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) {
		switch gwErr.Kind {
		case domain.ErrorKindAuthRequired, domain.ErrorKindAuthMissing:
			writeError(w, http.StatusBadRequest, "invalid_request_error", "credentials_rejected", gwErr.Message)
		default:
			writeError(w, http.StatusServiceUnavailable, "provider_error", "provider_unavailable", gwErr.Message)
		}
		return
	}
	writeError(w, http.StatusServiceUnavailable, "provider_error", "provider_unavailable", err.Error())
}
