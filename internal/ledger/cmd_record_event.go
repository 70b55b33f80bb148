package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/policy"
	"github.com/futsalhub/platform/internal/repository"
)

// RecordEventParams holds the inputs for ExecuteRecordEvent.
type RecordEventParams struct {
	MatchID  uuid.UUID
	CallerID uuid.UUID
	Input    domain.EventInput
}

// ExecuteRecordEvent appends a generic event. The minute is computed from the
// locked match row; any client minute is discarded. A goal for a participating
// team increments that team's score and records the side it scored for.
func (e *Engine) ExecuteRecordEvent(ctx context.Context, tx repository.DBTX, params RecordEventParams) (*Result, error) {
	if err := domain.ValidateEventInput(params.Input); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	m, err := e.LockMatchForUpdate(ctx, tx, params.MatchID)
	if err != nil {
		return nil, fmt.Errorf("record event: %w", err)
	}
	if !m.Status.IsActive() {
		return nil, domain.ErrConflict(fmt.Sprintf("match is %s, events can only be recorded while in play", m.Status))
	}

	side := domain.SideNone
	if params.Input.TeamID != nil {
		side = m.SideOf(*params.Input.TeamID)
		if side == domain.SideNone {
			return nil, domain.ErrValidation("team is not playing in this match")
		}
	}

	now := e.now()
	in := params.Input
	ev := newEvent(m.ID, params.CallerID, in.Type, policy.CurrentMinute(m, now), now)
	ev.ExtraTime = in.ExtraTime
	ev.TeamID = in.TeamID
	ev.PlayerID = in.PlayerID
	ev.SecondaryPlayerID = in.SecondaryPlayerID
	ev.Position = in.Position
	ev.Detail = in.Detail

	var delta repository.ScoreDelta
	if in.Type == domain.EventGoal {
		ev.ScoredSide = side
		delta = goalDelta(side, 1)
	}

	updated, draft, err := e.PostMatchEvent(ctx, tx, m.ID, ev, delta)
	if err != nil {
		return nil, fmt.Errorf("record event post: %w", err)
	}

	return &Result{Match: updated, Event: ev, From: m.Status, Events: []domain.OutboxDraft{draft}}, nil
}
