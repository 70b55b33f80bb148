package handler

import (
	"net/http"

	"github.com/futsalhub/platform/internal/auth"
	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/policy"
	"github.com/futsalhub/platform/internal/service"
)

// MatchHandler serves live match reads and operator writes.
type MatchHandler struct {
	svc *service.MatchService
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(svc *service.MatchService) *MatchHandler {
	return &MatchHandler{svc: svc}
}

type transitionRequest struct {
	Action policy.PhaseAction `json:"action" validate:"required,oneof=start end_half start_second_half start_extra_time end_extra_time_first_half start_extra_time_second_half start_penalties finish"`
}

type possessionRequest struct {
	Team domain.Side `json:"team" validate:"required,oneof=home away none"`
}

type stoppageRequest struct {
	Minutes int `json:"minutes" validate:"min=1,max=30"`
}

// CallerFrom returns the authenticated caller or an UNAUTHORIZED error.
func CallerFrom(r *http.Request) (domain.Caller, error) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		return domain.Caller{}, domain.ErrUnauthorized("authentication required")
	}
	return caller, nil
}

// GetLive handles GET /matches/{id}/live.
func (h *MatchHandler) GetLive(w http.ResponseWriter, r *http.Request) {
	matchID, err := URLParamUUID(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	state, err := h.svc.GetLiveState(r.Context(), matchID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, state)
}

// GetMinute handles GET /matches/{id}/minute.
func (h *MatchHandler) GetMinute(w http.ResponseWriter, r *http.Request) {
	matchID, err := URLParamUUID(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	minute, err := h.svc.GetMinute(r.Context(), matchID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, minute)
}

// GetPossession handles GET /matches/{id}/possession.
func (h *MatchHandler) GetPossession(w http.ResponseWriter, r *http.Request) {
	matchID, err := URLParamUUID(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	read, err := h.svc.GetPossession(r.Context(), matchID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, read)
}

// RecordEvent handles POST /operator/matches/{id}/events.
// An Idempotency-Key header deduplicates client retries.
func (h *MatchHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
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
	var input domain.EventInput
	if err := DecodeAndValidate(w, r, &input); err != nil {
		RespondError(w, err)
		return
	}

	ev, err := h.svc.RecordEvent(r.Context(), caller, matchID, input, r.Header.Get("Idempotency-Key"))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, ev)
}

// RecordSubstitution handles POST /operator/matches/{id}/substitutions.
func (h *MatchHandler) RecordSubstitution(w http.ResponseWriter, r *http.Request) {
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
	var input domain.SubstitutionInput
	if err := DecodeAndValidate(w, r, &input); err != nil {
		RespondError(w, err)
		return
	}

	ev, err := h.svc.RecordSubstitution(r.Context(), caller, matchID, input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, ev)
}

// Transition handles POST /operator/matches/{id}/transitions.
func (h *MatchHandler) Transition(w http.ResponseWriter, r *http.Request) {
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
	var req transitionRequest
	if err := DecodeAndValidate(w, r, &req); err != nil {
		RespondError(w, err)
		return
	}

	m, err := h.svc.Transition(r.Context(), caller, matchID, req.Action)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, m)
}

// TogglePossession handles POST /operator/matches/{id}/possession.
func (h *MatchHandler) TogglePossession(w http.ResponseWriter, r *http.Request) {
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
	var req possessionRequest
	if err := DecodeAndValidate(w, r, &req); err != nil {
		RespondError(w, err)
		return
	}

	read, err := h.svc.TogglePossession(r.Context(), caller, matchID, req.Team)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, read)
}

// AnnounceStoppage handles POST /operator/matches/{id}/stoppage.
func (h *MatchHandler) AnnounceStoppage(w http.ResponseWriter, r *http.Request) {
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
	var req stoppageRequest
	if err := DecodeAndValidate(w, r, &req); err != nil {
		RespondError(w, err)
		return
	}

	if err := h.svc.AnnounceStoppage(r.Context(), caller, matchID, req.Minutes); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusAccepted, map[string]int{"minutes": req.Minutes})
}

// DeleteEvent handles DELETE /admin/events/{id}.
func (h *MatchHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	caller, err := CallerFrom(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	eventID, err := URLParamUUID(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	if err := h.svc.DeleteEvent(r.Context(), caller, eventID); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusNoContent, nil)
}

// AuditScore handles GET /admin/matches/{id}/audit.
func (h *MatchHandler) AuditScore(w http.ResponseWriter, r *http.Request) {
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
	audit, err := h.svc.AuditScore(r.Context(), caller, matchID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, audit)
}
