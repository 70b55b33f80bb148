package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/policy"
	"github.com/futsalhub/platform/internal/repository"
)

// ExecuteDeleteEvent removes an event and reverses the score change it
// recorded. Non-goal events never touch the score. Goals of a finished match
// are final, since team aggregates were settled from that score.
func (e *Engine) ExecuteDeleteEvent(ctx context.Context, tx repository.DBTX, eventID uuid.UUID) (*Result, error) {
	target, err := e.events.FindByID(ctx, tx, eventID)
	if err != nil {
		return nil, fmt.Errorf("delete event find target: %w", err)
	}
	if target == nil {
		return nil, domain.ErrNotFound("event", eventID.String())
	}

	m, err := e.LockMatchForUpdate(ctx, tx, target.MatchID)
	if err != nil {
		return nil, fmt.Errorf("delete event: %w", err)
	}

	delta := goalDelta(target.ScoredSide, -1)
	if m.Status == domain.MatchFinished && !delta.IsZero() {
		return nil, domain.ErrConflict("goals of a finished match cannot be deleted")
	}

	// If a concurrent delete won the lock, Delete reports NotFound and the
	// command aborts without touching the score.
	if err := e.events.Delete(ctx, tx, target.ID); err != nil {
		return nil, fmt.Errorf("delete event: %w", err)
	}

	updated, err := e.matches.ApplyScoreDelta(ctx, tx, m.ID, delta, policy.CurrentMinute(m, e.now()))
	if err != nil {
		return nil, fmt.Errorf("reverse score: %w", err)
	}

	draft := domain.NewEventDeletedEvent(updated, target)
	if err := e.outbox.Insert(ctx, tx, draft); err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}

	return &Result{Match: updated, Event: target, From: m.Status, Events: []domain.OutboxDraft{draft}}, nil
}
