package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/policy"
	"github.com/futsalhub/platform/internal/repository"
)

// TransitionParams holds the inputs for ExecuteTransition.
type TransitionParams struct {
	MatchID  uuid.UUID
	CallerID uuid.UUID
	Action   policy.PhaseAction
}

// ExecuteTransition moves the match to its next phase, writes the minute
// anchors, appends the lifecycle event and, on finish, adds the result to
// both teams' aggregates. Finishing is only legal from an active status, so
// aggregates are written exactly once per match.
func (e *Engine) ExecuteTransition(ctx context.Context, tx repository.DBTX, params TransitionParams) (*Result, error) {
	m, err := e.LockMatchForUpdate(ctx, tx, params.MatchID)
	if err != nil {
		return nil, fmt.Errorf("transition: %w", err)
	}

	now := e.now()
	plan, err := policy.PlanTransition(*m, params.Action, now)
	if err != nil {
		return nil, err
	}

	updated, err := e.matches.UpdatePhase(ctx, tx, &plan.Next)
	if err != nil {
		return nil, fmt.Errorf("update phase: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrNotFound("match", m.ID.String())
	}

	ev := newEvent(m.ID, params.CallerID, plan.Lifecycle, plan.Minute, now)
	if err := e.events.Insert(ctx, tx, ev); err != nil {
		return nil, fmt.Errorf("insert lifecycle event: %w", err)
	}

	if updated.Status == domain.MatchFinished {
		for _, res := range domain.ResultsFor(updated) {
			if err := e.teams.ApplyResult(ctx, tx, res); err != nil {
				return nil, fmt.Errorf("apply team result: %w", err)
			}
		}
	}

	drafts := []domain.OutboxDraft{
		domain.NewPhaseChangedEvent(updated, plan.From),
		domain.NewEventRecordedEvent(updated, ev),
	}
	for _, d := range drafts {
		if err := e.outbox.Insert(ctx, tx, d); err != nil {
			return nil, fmt.Errorf("insert outbox event: %w", err)
		}
	}

	return &Result{Match: updated, Event: ev, From: plan.From, Events: drafts}, nil
}
