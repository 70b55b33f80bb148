package admin

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/futsalhub/platform/internal/handler"
	"github.com/futsalhub/platform/internal/service"
)

// FixtureAdminHandler handles teams, players, matches, lineups and operator assignments.
type FixtureAdminHandler struct {
	svc *service.AdminService
}

// NewFixtureAdminHandler creates a new FixtureAdminHandler.
func NewFixtureAdminHandler(svc *service.AdminService) *FixtureAdminHandler {
	return &FixtureAdminHandler{svc: svc}
}

type operatorRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

// CreateTeam handles POST /admin/teams.
func (h *FixtureAdminHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	caller, err := handler.CallerFrom(r)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	var input service.CreateTeamInput
	if err := handler.DecodeAndValidate(w, r, &input); err != nil {
		handler.RespondError(w, err)
		return
	}
	team, err := h.svc.CreateTeam(r.Context(), caller, input)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusCreated, team)
}

// CreatePlayer handles POST /admin/players.
func (h *FixtureAdminHandler) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	caller, err := handler.CallerFrom(r)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	var input service.CreatePlayerInput
	if err := handler.DecodeAndValidate(w, r, &input); err != nil {
		handler.RespondError(w, err)
		return
	}
	player, err := h.svc.CreatePlayer(r.Context(), caller, input)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusCreated, player)
}

// CreateMatch handles POST /admin/matches.
func (h *FixtureAdminHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	caller, err := handler.CallerFrom(r)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	var input service.CreateMatchInput
	if err := handler.DecodeAndValidate(w, r, &input); err != nil {
		handler.RespondError(w, err)
		return
	}
	m, err := h.svc.CreateMatch(r.Context(), caller, input)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusCreated, m)
}

// SetLineup handles PUT /admin/matches/{id}/lineups.
func (h *FixtureAdminHandler) SetLineup(w http.ResponseWriter, r *http.Request) {
	caller, err := handler.CallerFrom(r)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	matchID, err := handler.URLParamUUID(r, "id")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	var input service.SetLineupInput
	if err := handler.DecodeAndValidate(w, r, &input); err != nil {
		handler.RespondError(w, err)
		return
	}
	entries, err := h.svc.SetLineup(r.Context(), caller, matchID, input)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, entries)
}

// AssignOperator handles POST /admin/matches/{id}/operators.
func (h *FixtureAdminHandler) AssignOperator(w http.ResponseWriter, r *http.Request) {
	caller, err := handler.CallerFrom(r)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	matchID, err := handler.URLParamUUID(r, "id")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	var req operatorRequest
	if err := handler.DecodeAndValidate(w, r, &req); err != nil {
		handler.RespondError(w, err)
		return
	}
	if err := h.svc.AssignOperator(r.Context(), caller, matchID, req.UserID); err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusNoContent, nil)
}

// UnassignOperator handles DELETE /admin/matches/{id}/operators/{userID}.
func (h *FixtureAdminHandler) UnassignOperator(w http.ResponseWriter, r *http.Request) {
	caller, err := handler.CallerFrom(r)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	matchID, err := handler.URLParamUUID(r, "id")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	userID, err := handler.URLParamUUID(r, "userID")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	if err := h.svc.UnassignOperator(r.Context(), caller, matchID, userID); err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusNoContent, nil)
}

