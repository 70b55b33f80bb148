package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/repository"
)

// Engine provides the foundational match ledger operations:
//  1. LockMatchForUpdate: row-level pessimistic lock on the match
//  2. PostMatchEvent: score delta + minute cache + append-only insert + outbox event
//
// Every command runs inside the caller's transaction, so two writers on the
// same match serialize on the row lock.
type Engine struct {
	matches repository.MatchRepository
	events  repository.EventRepository
	lineups repository.LineupRepository
	teams   repository.TeamRepository
	outbox  repository.OutboxRepository
	now     func() time.Time
}

// NewEngine creates a ledger engine with the given repositories.
func NewEngine(
	matches repository.MatchRepository,
	events repository.EventRepository,
	lineups repository.LineupRepository,
	teams repository.TeamRepository,
	outbox repository.OutboxRepository,
) *Engine {
	return &Engine{
		matches: matches,
		events:  events,
		lineups: lineups,
		teams:   teams,
		outbox:  outbox,
		now:     time.Now,
	}
}

// SetClock overrides the time source used for minute computation.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Result is the outcome of a ledger command.
type Result struct {
	Match  *domain.Match
	Event  *domain.MatchEvent
	From   domain.MatchStatus
	Events []domain.OutboxDraft
}

// LockMatchForUpdate acquires a row-level lock and returns the match.
// Must be called within a transaction.
func (e *Engine) LockMatchForUpdate(ctx context.Context, tx repository.DBTX, matchID uuid.UUID) (*domain.Match, error) {
	m, err := e.matches.LockForUpdate(ctx, tx, matchID)
	if err != nil {
		return nil, fmt.Errorf("lock match: %w", err)
	}
	if m == nil {
		return nil, domain.ErrNotFound("match", matchID.String())
	}
	return m, nil
}

// PostMatchEvent atomically applies the score delta, refreshes the minute
// cache to ev.Minute and appends ev to the ledger.
//
// Steps:
//  1. Update the score with server-side arithmetic
//  2. Insert the event row
//  3. Insert the outbox event
//
// All 3 steps run within the caller's transaction.
func (e *Engine) PostMatchEvent(ctx context.Context, tx repository.DBTX, matchID uuid.UUID, ev *domain.MatchEvent, delta repository.ScoreDelta) (*domain.Match, domain.OutboxDraft, error) {
	updated, err := e.matches.ApplyScoreDelta(ctx, tx, matchID, delta, ev.Minute)
	if err != nil {
		return nil, domain.OutboxDraft{}, fmt.Errorf("apply score delta: %w", err)
	}
	if updated == nil {
		return nil, domain.OutboxDraft{}, domain.ErrNotFound("match", matchID.String())
	}

	if err := e.events.Insert(ctx, tx, ev); err != nil {
		return nil, domain.OutboxDraft{}, fmt.Errorf("insert event: %w", err)
	}

	draft := domain.NewEventRecordedEvent(updated, ev)
	if err := e.outbox.Insert(ctx, tx, draft); err != nil {
		return nil, domain.OutboxDraft{}, fmt.Errorf("insert outbox event: %w", err)
	}
	return updated, draft, nil
}

func newEvent(matchID, callerID uuid.UUID, typ domain.MatchEventType, minute int, now time.Time) *domain.MatchEvent {
	return &domain.MatchEvent{
		ID:          uuid.New(),
		MatchID:     matchID,
		Type:        typ,
		Minute:      minute,
		ScoredSide:  domain.SideNone,
		CreatedByID: callerID,
		CreatedAt:   now,
	}
}

// goalDelta returns the score change for a goal on side, negated when reversing.
func goalDelta(side domain.Side, sign int) repository.ScoreDelta {
	switch side {
	case domain.SideHome:
		return repository.ScoreDelta{Home: sign}
	case domain.SideAway:
		return repository.ScoreDelta{Away: sign}
	}
	return repository.ScoreDelta{}
}
