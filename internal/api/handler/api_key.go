package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/torvik/resellerpanel/internal/api/request"
	"github.com/torvik/resellerpanel/internal/api/response"
	"github.com/torvik/resellerpanel/internal/core"
)

// APIKey handles API key management endpoints.
type APIKey struct {
	svc *core.APIKeyService
}

// NewAPIKey creates a new APIKey handler.
func NewAPIKey(svc *core.APIKeyService) *APIKey {
	return &APIKey{svc: svc}
}

// Create generates a new API key. The raw key is returned once in the response.
func (h *APIKey) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateAPIKey
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, rawKey, err := h.svc.Create(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Build the response with the raw key included (shown only once).
	resp := map[string]any{
		"id":         key.ID,
		"name":       key.Name,
		"key":        rawKey,
		"key_prefix": key.KeyPrefix,
		"created_at": key.CreatedAt,
	}
	response.WriteJSON(w, http.StatusCreated, resp)
}

// List lists all API keys, newest first.
func (h *APIKey) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, keys)
}

// Revoke soft-deletes an API key by setting revoked_at.
func (h *APIKey) Revoke(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Revoke(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
