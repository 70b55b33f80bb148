package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/service"
)

// MeHandler serves the caller's notification inbox and preferences.
type MeHandler struct {
	svc *service.UserService
}

// NewMeHandler creates a new MeHandler.
func NewMeHandler(svc *service.UserService) *MeHandler {
	return &MeHandler{svc: svc}
}

type pushTokenRequest struct {
	Token *string `json:"token"`
}

type languageRequest struct {
	Language string `json:"language" validate:"required,len=2"`
}

type favoriteTeamsRequest struct {
	TeamIDs []uuid.UUID `json:"team_ids" validate:"max=20"`
}

// ListNotifications handles GET /me/notifications?unread=true&limit=50.
func (h *MeHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	caller, err := CallerFrom(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	unread := r.URL.Query().Get("unread") == "true"
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			RespondError(w, domain.ErrValidation("limit must be a non-negative integer"))
			return
		}
	}

	list, err := h.svc.ListNotifications(r.Context(), caller, unread, limit)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, list)
}

// MarkRead handles POST /me/notifications/{id}/read.
func (h *MeHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	caller, err := CallerFrom(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	id, err := URLParamUUID(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	if err := h.svc.MarkRead(r.Context(), caller, id); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusNoContent, nil)
}

// SetPushToken handles PUT /me/push-token. A null token unregisters the device.
func (h *MeHandler) SetPushToken(w http.ResponseWriter, r *http.Request) {
	caller, err := CallerFrom(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var req pushTokenRequest
	if err := DecodeAndValidate(w, r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if err := h.svc.SetPushToken(r.Context(), caller, req.Token); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusNoContent, nil)
}

// SetLanguage handles PUT /me/language.
func (h *MeHandler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	caller, err := CallerFrom(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var req languageRequest
	if err := DecodeAndValidate(w, r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if err := h.svc.SetLanguage(r.Context(), caller, req.Language); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusNoContent, nil)
}

// SetFavoriteTeams handles PUT /me/favorites/teams.
func (h *MeHandler) SetFavoriteTeams(w http.ResponseWriter, r *http.Request) {
	caller, err := CallerFrom(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var req favoriteTeamsRequest
	if err := DecodeAndValidate(w, r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if err := h.svc.SetFavoriteTeams(r.Context(), caller, req.TeamIDs); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusNoContent, nil)
}

// FavoriteMatch handles PUT /me/favorites/matches/{id}.
func (h *MeHandler) FavoriteMatch(w http.ResponseWriter, r *http.Request) {
	caller, err := CallerFrom(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	matchID, err := URLParamUUID(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	if err := h.svc.FavoriteMatch(r.Context(), caller, matchID); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusNoContent, nil)
}

// UnfavoriteMatch handles DELETE /me/favorites/matches/{id}.
func (h *MeHandler) UnfavoriteMatch(w http.ResponseWriter, r *http.Request) {
	caller, err := CallerFrom(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	matchID, err := URLParamUUID(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	if err := h.svc.UnfavoriteMatch(r.Context(), caller, matchID); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusNoContent, nil)
}
