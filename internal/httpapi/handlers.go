package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/upb/llm-gateway/internal/admin"
)

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid_request", "Failed to read request body")
		return
	}

	req, err := decodeChatCompletionRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid_request", err.Error())
		return
	}
	providerOverride := r.Header.Get("X-Provider-Id")

	resp, err := s.selector.Execute(r.Context(), req, providerOverride)
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeChatCompletionResponse(resp))
}

type setCredentialRequest struct {
	APIKey string `json:"api_key"`
}

func (s *Server) handleSetCredential(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	var body setCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.APIKey == "" {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid_request", "api_key is required")
		return
	}

	if err := s.admin.SetCredential(r.Context(), providerID, body.APIKey); err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	if err := s.admin.DeleteCredential(r.Context(), providerID); err != nil {
		if errors.Is(err, admin.ErrNotFound) {
			writeError(w, http.StatusNotFound, "invalid_request_error", "not_found", "No credential on record for this provider")
			return
		}
		writeAdminError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	if err := s.admin.Healthcheck(r.Context(), providerID); err != nil {
		if errors.Is(err, admin.ErrNotFound) {
			writeError(w, http.StatusNotFound, "invalid_request_error", "not_found", "No credential on record for this provider")
			return
		}
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	views, err := s.admin.ListProviders(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal_error", "Failed to list providers")
		return
	}

	out := make([]map[string]any, 0, len(views))
	for _, v := range views {
		entry := map[string]any{
			"provider_id": v.ProviderID,
			"name":        v.Name,
			"priority":    v.Priority,
			"has_api_key": v.HasAPIKey,
		}
		if v.LastError != nil {
			entry["last_error"] = *v.LastError
		}
		if v.LastErrorAt != nil {
			entry["last_error_at"] = v.LastErrorAt.Format("2006-01-02T15:04:05Z07:00")
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}
