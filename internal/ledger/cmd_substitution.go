package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/policy"
	"github.com/futsalhub/platform/internal/repository"
)

// SubstitutionParams holds the inputs for ExecuteSubstitution.
type SubstitutionParams struct {
	MatchID  uuid.UUID
	CallerID uuid.UUID
	Input    domain.SubstitutionInput
}

// ExecuteSubstitution swaps a player on the pitch for one on the bench and
// records the substitution event in the same transaction. The event's
// PlayerID is the incoming player, SecondaryPlayerID the outgoing one.
func (e *Engine) ExecuteSubstitution(ctx context.Context, tx repository.DBTX, params SubstitutionParams) (*Result, error) {
	in := params.Input
	if in.PlayerInID == in.PlayerOutID {
		return nil, domain.ErrValidation("player_in and player_out must differ")
	}

	m, err := e.LockMatchForUpdate(ctx, tx, params.MatchID)
	if err != nil {
		return nil, fmt.Errorf("substitution: %w", err)
	}
	if !m.Status.IsActive() {
		return nil, domain.ErrConflict(fmt.Sprintf("match is %s, substitutions need a match in play", m.Status))
	}
	if m.SideOf(in.TeamID) == domain.SideNone {
		return nil, domain.ErrValidation("team is not playing in this match")
	}

	out, err := e.lineups.Find(ctx, tx, m.ID, in.PlayerOutID)
	if err != nil {
		return nil, fmt.Errorf("substitution find player out: %w", err)
	}
	if out == nil || out.TeamID != in.TeamID || !out.OnPitch {
		return nil, domain.ErrValidation("player_out is not on the pitch for this team")
	}
	incoming, err := e.lineups.Find(ctx, tx, m.ID, in.PlayerInID)
	if err != nil {
		return nil, fmt.Errorf("substitution find player in: %w", err)
	}
	if incoming == nil || incoming.TeamID != in.TeamID || incoming.OnPitch {
		return nil, domain.ErrValidation("player_in is not on the bench for this team")
	}

	if err := e.lineups.SetOnPitch(ctx, tx, m.ID, in.PlayerOutID, false); err != nil {
		return nil, fmt.Errorf("substitution swap out: %w", err)
	}
	if err := e.lineups.SetOnPitch(ctx, tx, m.ID, in.PlayerInID, true); err != nil {
		return nil, fmt.Errorf("substitution swap in: %w", err)
	}

	now := e.now()
	teamID, playerIn, playerOut := in.TeamID, in.PlayerInID, in.PlayerOutID
	ev := newEvent(m.ID, params.CallerID, domain.EventSubstitution, policy.CurrentMinute(m, now), now)
	ev.ExtraTime = in.ExtraTime
	ev.TeamID = &teamID
	ev.PlayerID = &playerIn
	ev.SecondaryPlayerID = &playerOut

	updated, draft, err := e.PostMatchEvent(ctx, tx, m.ID, ev, repository.ScoreDelta{})
	if err != nil {
		return nil, fmt.Errorf("substitution post: %w", err)
	}

	lineupDraft := domain.NewLineupChangedEvent(m.ID, teamID, playerOut, playerIn)
	if err := e.outbox.Insert(ctx, tx, lineupDraft); err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}

	return &Result{Match: updated, Event: ev, From: m.Status, Events: []domain.OutboxDraft{draft, lineupDraft}}, nil
}
