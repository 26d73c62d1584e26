package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/torvik/resellerpanel/internal/api/request"
	"github.com/torvik/resellerpanel/internal/api/response"
	"github.com/torvik/resellerpanel/internal/core"
	"github.com/torvik/resellerpanel/internal/model"
)

// secretSettings lists keys whose values never leave the panel once stored.
var secretSettings = map[string]bool{
	model.SettingCloudflareAPIToken:       true,
	model.SettingGoogleEABHMACKey:         true,
	model.SettingGoogleServiceAccountJSON: true,
}

type Setting struct {
	svc *core.SettingsService
}

func NewSetting(svc *core.SettingsService) *Setting {
	return &Setting{svc: svc}
}

// List returns all settings with secret values masked.
func (h *Setting) List(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	for i := range settings {
		if secretSettings[settings[i].Key] && settings[i].Value != "" {
			settings[i].Value = "********"
		}
	}
	response.WriteJSON(w, http.StatusOK, settings)
}

// Put upserts one setting.
func (h *Setting) Put(w http.ResponseWriter, r *http.Request) {
	key, err := request.RequireID(chi.URLParam(r, "key"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.PutSetting
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Set(r.Context(), key, req.Value); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
