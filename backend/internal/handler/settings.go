package handler

import (
	"net/http"

	"github.com/catalyst-codex/codex/shared/api"
	mw "github.com/catalyst-codex/codex/shared/middleware"
	"github.com/catalyst-codex/codex/shared/utils"
)

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Fetch(r.Context(), mw.GetSessionFromContext(r))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.SettingsResponse{UserSettings: s})
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var body api.SettingsRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	s, err := h.settings.Write(r.Context(), mw.GetSessionFromContext(r), body.Settings())
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.SettingsResponse{UserSettings: s})
}

// RefreshSettings pulls preferences saved from another device into the cache.
func (h *Handler) RefreshSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Refresh(r.Context(), mw.GetSessionFromContext(r))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.SettingsResponse{UserSettings: s})
}
