package handler

import (
	"errors"
	"net/http"

	"github.com/torvik/resellerpanel/internal/api/response"
	"github.com/torvik/resellerpanel/internal/cloudflare"
	"github.com/torvik/resellerpanel/internal/core"
	"github.com/torvik/resellerpanel/internal/eab"
	"github.com/torvik/resellerpanel/internal/model"
)

// Diagnostics exposes read-only credential checks so an operator can
// validate the configured integrations before issuing certificates.
type Diagnostics struct {
	settings *core.SettingsService

	newCloudflare func(apiToken string) *cloudflare.Client
	newEAB        func(credentialJSON string) *eab.Provider
}

func NewDiagnostics(settings *core.SettingsService) *Diagnostics {
	return &Diagnostics{
		settings:      settings,
		newCloudflare: cloudflare.NewClient,
		newEAB:        eab.NewProvider,
	}
}

// Cloudflare verifies the stored API token against the Cloudflare API.
func (h *Diagnostics) Cloudflare(w http.ResponseWriter, r *http.Request) {
	token, err := h.settings.Get(r.Context(), model.SettingCloudflareAPIToken)
	if errors.Is(err, core.ErrNotFound) {
		response.WriteError(w, http.StatusBadRequest, "CLOUDFLARE_API_TOKEN is not configured")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status, err := h.newCloudflare(token).TestConnection(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, status)
}

// GoogleCA verifies the stored service account against the Google Public CA
// API without minting an EAB key.
func (h *Diagnostics) GoogleCA(w http.ResponseWriter, r *http.Request) {
	saJSON, err := h.settings.Get(r.Context(), model.SettingGoogleServiceAccountJSON)
	if errors.Is(err, core.ErrNotFound) {
		response.WriteError(w, http.StatusBadRequest, "GOOGLE_SERVICE_ACCOUNT_JSON is not configured")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status, err := h.newEAB(saJSON).TestServiceAccount(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, eab.ErrNotConfigured), errors.Is(err, eab.ErrInvalidCredential):
			response.WriteError(w, http.StatusBadRequest, err.Error())
		default:
			response.WriteError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	response.WriteJSON(w, http.StatusOK, status)
}
