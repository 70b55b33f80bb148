package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/guard"
	"github.com/futsalhub/platform/internal/ledger"
	"github.com/futsalhub/platform/internal/notify"
	"github.com/futsalhub/platform/internal/policy"
	"github.com/futsalhub/platform/internal/possession"
	"github.com/futsalhub/platform/internal/projection"
	"github.com/futsalhub/platform/internal/repository"
)

// Room event names pushed to viewers.
const (
	WSMatchEvent       = "match_event"
	WSEventDeleted     = "event_deleted"
	WSMinuteUpdate     = "minute_update"
	WSStatusChange     = "status_change"
	WSPossessionUpdate = "possession_update"
	WSStoppageTime     = "stoppage_time"
)

// Broadcaster fans committed changes out to connected viewers.
type Broadcaster interface {
	PublishMatch(matchID uuid.UUID, event string, data interface{})
	PublishGlobal(event string, data interface{})
}

// Notifier queues push notifications without blocking the caller.
type Notifier interface {
	DispatchAsync(occ notify.Occurrence)
}

// MatchRepos groups the repositories MatchService reads directly.
type MatchRepos struct {
	Matches     repository.MatchRepository
	Events      repository.EventRepository
	Teams       repository.TeamRepository
	Assignments repository.AssignmentRepository
}

// MatchService orchestrates live match operations: authorization, the ledger
// transaction, then broadcast and notification once the write committed.
// Writes for one match run under a per-match lock held across commit and
// broadcast, so viewers receive a match's events in commit order.
type MatchService struct {
	db          repository.DBTX
	tx          repository.Transactor
	engine      *ledger.Engine
	repos       MatchRepos
	possession  *possession.Tracker
	hub         Broadcaster
	notifier    Notifier
	writeLock   *guard.KeyedMutex
	idempotency *guard.IdempotencyGuard
	history     *projection.EventHistory
	logger      *slog.Logger
	now         func() time.Time
}

// NewMatchService creates a MatchService.
func NewMatchService(
	db repository.DBTX,
	tx repository.Transactor,
	engine *ledger.Engine,
	repos MatchRepos,
	tracker *possession.Tracker,
	hub Broadcaster,
	notifier Notifier,
	logger *slog.Logger,
) *MatchService {
	return &MatchService{
		db:          db,
		tx:          tx,
		engine:      engine,
		repos:       repos,
		possession:  tracker,
		hub:         hub,
		notifier:    notifier,
		writeLock:   guard.NewKeyedMutex(),
		idempotency: guard.NewIdempotencyGuard(10 * time.Minute),
		history:     projection.NewEventHistory(projection.NewInMemoryStore(), projection.DefaultHistoryTTL),
		logger:      logger,
		now:         time.Now,
	}
}

// SetClock overrides the time source for minute reads.
func (s *MatchService) SetClock(now func() time.Time) { s.now = now }

// MinuteUpdate is the payload of minute_update.
type MinuteUpdate struct {
	MatchID   uuid.UUID          `json:"match_id"`
	Minute    int                `json:"minute"`
	Status    domain.MatchStatus `json:"status"`
	HomeScore int                `json:"home_score"`
	AwayScore int                `json:"away_score"`
}

// StatusChange is the payload of status_change.
type StatusChange struct {
	MatchID   uuid.UUID          `json:"match_id"`
	From      domain.MatchStatus `json:"from"`
	Status    domain.MatchStatus `json:"status"`
	Minute    int                `json:"minute"`
	HomeScore int                `json:"home_score"`
	AwayScore int                `json:"away_score"`
	Match     *domain.Match      `json:"match"`
}

// EventDeleted is the payload of event_deleted.
type EventDeleted struct {
	MatchID   uuid.UUID `json:"match_id"`
	EventID   uuid.UUID `json:"event_id"`
	HomeScore int       `json:"home_score"`
	AwayScore int       `json:"away_score"`
}

// PossessionUpdate is the payload of possession_update.
type PossessionUpdate struct {
	MatchID uuid.UUID `json:"match_id"`
	domain.PossessionRead
}

// StoppageTime is the payload of stoppage_time.
type StoppageTime struct {
	MatchID uuid.UUID `json:"match_id"`
	Minutes int       `json:"minutes"`
	Minute  int       `json:"minute"`
}

// authorize admits admins and operators assigned to the match.
func (s *MatchService) authorize(ctx context.Context, caller domain.Caller, matchID uuid.UUID) error {
	switch caller.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleOperator:
		ok, err := s.repos.Assignments.IsAssigned(ctx, s.db, matchID, caller.ID)
		if err != nil {
			return domain.ErrInternal("check operator assignment", err)
		}
		if ok {
			return nil
		}
		return domain.ErrForbidden("operator is not assigned to this match")
	}
	return domain.ErrForbidden("only operators and admins can edit matches")
}

// RecordEvent authorizes the caller, writes the event and broadcasts it.
// A non-empty idemKey makes retries of the same submission a conflict.
func (s *MatchService) RecordEvent(ctx context.Context, caller domain.Caller, matchID uuid.UUID, in domain.EventInput, idemKey string) (*domain.MatchEvent, error) {
	if err := s.authorize(ctx, caller, matchID); err != nil {
		return nil, err
	}

	if idemKey != "" {
		idemKey = caller.ID.String() + ":" + idemKey
		if res := s.idempotency.Check(ctx, idemKey); !res.Allowed {
			return nil, &domain.AppError{Code: "DUPLICATE_REQUEST", Message: res.Reason, Status: 409}
		}
	}

	unlock := s.writeLock.Lock(matchID)
	defer unlock()

	var result *ledger.Result
	err := s.tx.WithTx(ctx, func(tx repository.DBTX) error {
		var err error
		result, err = s.engine.ExecuteRecordEvent(ctx, tx, ledger.RecordEventParams{
			MatchID:  matchID,
			CallerID: caller.ID,
			Input:    in,
		})
		return err
	})
	if err != nil {
		if idemKey != "" {
			s.idempotency.Remove(idemKey)
		}
		return nil, mapError("record event", err)
	}

	s.logger.Info("match event recorded", "match_id", matchID, "event_id", result.Event.ID,
		"type", result.Event.Type, "minute", result.Event.Minute)
	s.afterEvent(ctx, result)
	return result.Event, nil
}

// RecordSubstitution swaps a lineup slot and records the substitution event.
func (s *MatchService) RecordSubstitution(ctx context.Context, caller domain.Caller, matchID uuid.UUID, in domain.SubstitutionInput) (*domain.MatchEvent, error) {
	if err := s.authorize(ctx, caller, matchID); err != nil {
		return nil, err
	}

	unlock := s.writeLock.Lock(matchID)
	defer unlock()

	var result *ledger.Result
	err := s.tx.WithTx(ctx, func(tx repository.DBTX) error {
		var err error
		result, err = s.engine.ExecuteSubstitution(ctx, tx, ledger.SubstitutionParams{
			MatchID:  matchID,
			CallerID: caller.ID,
			Input:    in,
		})
		return err
	})
	if err != nil {
		return nil, mapError("record substitution", err)
	}

	s.logger.Info("substitution recorded", "match_id", matchID, "event_id", result.Event.ID)
	s.afterEvent(ctx, result)
	return result.Event, nil
}

// DeleteEvent removes an event and reverses its score effect. Admin only.
func (s *MatchService) DeleteEvent(ctx context.Context, caller domain.Caller, eventID uuid.UUID) error {
	if !caller.IsAdmin() {
		return domain.ErrForbidden("only admins can delete events")
	}

	target, err := s.repos.Events.FindByID(ctx, s.db, eventID)
	if err != nil {
		return domain.ErrInternal("find event", err)
	}
	if target == nil {
		return domain.ErrNotFound("event", eventID.String())
	}

	unlock := s.writeLock.Lock(target.MatchID)
	defer unlock()

	var result *ledger.Result
	err = s.tx.WithTx(ctx, func(tx repository.DBTX) error {
		var err error
		result, err = s.engine.ExecuteDeleteEvent(ctx, tx, eventID)
		return err
	})
	if err != nil {
		return mapError("delete event", err)
	}

	m := result.Match
	s.invalidateHistory(ctx, m.ID)
	s.logger.Info("match event deleted", "match_id", m.ID, "event_id", eventID, "type", result.Event.Type)

	payload := EventDeleted{MatchID: m.ID, EventID: eventID, HomeScore: m.HomeScore, AwayScore: m.AwayScore}
	s.hub.PublishMatch(m.ID, WSEventDeleted, payload)
	s.hub.PublishGlobal(WSEventDeleted, payload)
	s.publishMinute(m)
	return nil
}

// Transition applies a phase action, then broadcasts the status change and
// the lifecycle event.
func (s *MatchService) Transition(ctx context.Context, caller domain.Caller, matchID uuid.UUID, action policy.PhaseAction) (*domain.Match, error) {
	if err := s.authorize(ctx, caller, matchID); err != nil {
		return nil, err
	}

	unlock := s.writeLock.Lock(matchID)
	defer unlock()

	var result *ledger.Result
	err := s.tx.WithTx(ctx, func(tx repository.DBTX) error {
		var err error
		result, err = s.engine.ExecuteTransition(ctx, tx, ledger.TransitionParams{
			MatchID:  matchID,
			CallerID: caller.ID,
			Action:   action,
		})
		return err
	})
	if err != nil {
		return nil, mapError("transition", err)
	}

	m := result.Match
	switch {
	case action == policy.ActionStart:
		s.possession.Reset(m.ID)
	case m.Status == domain.MatchFinished:
		s.possession.Toggle(m.ID, domain.SideNone)
	}

	s.logger.Info("match phase changed", "match_id", m.ID, "action", action, "from", result.From, "to", m.Status)

	change := StatusChange{
		MatchID:   m.ID,
		From:      result.From,
		Status:    m.Status,
		Minute:    result.Event.Minute,
		HomeScore: m.HomeScore,
		AwayScore: m.AwayScore,
		Match:     m,
	}
	s.hub.PublishMatch(m.ID, WSStatusChange, change)
	s.hub.PublishGlobal(WSStatusChange, change)
	s.afterEvent(ctx, result)
	return m, nil
}

// TogglePossession switches the side in possession and broadcasts the new split.
func (s *MatchService) TogglePossession(ctx context.Context, caller domain.Caller, matchID uuid.UUID, side domain.Side) (domain.PossessionRead, error) {
	if !side.Valid() {
		return domain.PossessionRead{}, domain.ErrValidation("team must be home, away or none")
	}
	if err := s.authorize(ctx, caller, matchID); err != nil {
		return domain.PossessionRead{}, err
	}

	unlock := s.writeLock.Lock(matchID)
	defer unlock()

	m, err := s.findMatch(ctx, matchID)
	if err != nil {
		return domain.PossessionRead{}, err
	}
	if !m.Status.IsActive() {
		return domain.PossessionRead{}, domain.ErrConflict(fmt.Sprintf("match is %s, possession is only tracked in play", m.Status))
	}

	read := s.possession.Toggle(matchID, side)
	s.hub.PublishMatch(matchID, WSPossessionUpdate, PossessionUpdate{MatchID: matchID, PossessionRead: read})
	return read, nil
}

// AnnounceStoppage broadcasts added time. It is informational only and
// never changes the clock.
func (s *MatchService) AnnounceStoppage(ctx context.Context, caller domain.Caller, matchID uuid.UUID, minutes int) error {
	if minutes < 1 || minutes > 30 {
		return domain.ErrValidation("stoppage minutes must be between 1 and 30")
	}
	if err := s.authorize(ctx, caller, matchID); err != nil {
		return err
	}

	m, err := s.findMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if !m.Status.IsActive() {
		return domain.ErrConflict(fmt.Sprintf("match is %s, stoppage time needs a match in play", m.Status))
	}

	s.hub.PublishMatch(matchID, WSStoppageTime, StoppageTime{
		MatchID: matchID,
		Minutes: minutes,
		Minute:  policy.CurrentMinute(m, s.now()),
	})
	return nil
}

// GetLiveState returns the match, its computed minute, possession and ledger.
func (s *MatchService) GetLiveState(ctx context.Context, matchID uuid.UUID) (*domain.LiveState, error) {
	m, err := s.findMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	events, err := s.eventHistory(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return &domain.LiveState{
		Match:      m,
		Minute:     policy.CurrentMinute(m, s.now()),
		Possession: s.possession.Read(matchID),
		Events:     events,
	}, nil
}

// eventHistory serves the ledger from the projection cache, filling it under
// the match's write lock on a miss.
func (s *MatchService) eventHistory(ctx context.Context, matchID uuid.UUID) ([]domain.MatchEvent, error) {
	if events, ok := s.history.Get(ctx, matchID); ok {
		return events, nil
	}

	unlock := s.writeLock.Lock(matchID)
	defer unlock()
	if events, ok := s.history.Get(ctx, matchID); ok {
		return events, nil
	}

	events, err := s.repos.Events.ListByMatch(ctx, s.db, matchID)
	if err != nil {
		return nil, domain.ErrInternal("list events", err)
	}
	if events == nil {
		events = []domain.MatchEvent{}
	}
	if err := s.history.Put(ctx, matchID, events); err != nil {
		s.logger.Warn("cache event history failed", "match_id", matchID, "error", err)
	}
	return events, nil
}

func (s *MatchService) invalidateHistory(ctx context.Context, matchID uuid.UUID) {
	if err := s.history.Invalidate(ctx, matchID); err != nil {
		s.logger.Warn("invalidate event history failed", "match_id", matchID, "error", err)
	}
}

// GetMinute returns the server-authoritative minute.
func (s *MatchService) GetMinute(ctx context.Context, matchID uuid.UUID) (*MinuteUpdate, error) {
	m, err := s.findMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return &MinuteUpdate{
		MatchID:   m.ID,
		Minute:    policy.CurrentMinute(m, s.now()),
		Status:    m.Status,
		HomeScore: m.HomeScore,
		AwayScore: m.AwayScore,
	}, nil
}

// GetPossession returns the possession split of a known match.
func (s *MatchService) GetPossession(ctx context.Context, matchID uuid.UUID) (domain.PossessionRead, error) {
	if _, err := s.findMatch(ctx, matchID); err != nil {
		return domain.PossessionRead{}, err
	}
	return s.possession.Read(matchID), nil
}

// AuditScore checks the stored score against the extant goal events. Admin only.
func (s *MatchService) AuditScore(ctx context.Context, caller domain.Caller, matchID uuid.UUID) (*ledger.ScoreAudit, error) {
	if !caller.IsAdmin() {
		return nil, domain.ErrForbidden("only admins can audit matches")
	}
	audit, err := s.engine.AuditScore(ctx, s.db, matchID)
	if err != nil {
		return nil, mapError("audit score", err)
	}
	return audit, nil
}

func (s *MatchService) findMatch(ctx context.Context, matchID uuid.UUID) (*domain.Match, error) {
	m, err := s.repos.Matches.FindByID(ctx, s.db, matchID)
	if err != nil {
		return nil, domain.ErrInternal("find match", err)
	}
	if m == nil {
		return nil, domain.ErrNotFound("match", matchID.String())
	}
	return m, nil
}

// afterEvent drops the cached ledger, broadcasts a committed event to the
// match room and the global feed, resyncs the minute, and queues a notification when the type qualifies.
// Runs under the match's write lock.
func (s *MatchService) afterEvent(ctx context.Context, result *ledger.Result) {
	m, ev := result.Match, result.Event
	s.invalidateHistory(ctx, m.ID)
	home, away := s.enrich(ctx, m, ev)

	s.hub.PublishMatch(m.ID, WSMatchEvent, ev)
	s.hub.PublishGlobal(WSMatchEvent, ev)
	s.publishMinute(m)

	kind, ok := policy.NotificationKindFor(ev.Type, m)
	if !ok || s.notifier == nil {
		return
	}
	occ := notify.Occurrence{Kind: kind, Match: *m, Minute: ev.Minute}
	if home != nil {
		occ.HomeTeam = home.Name
	}
	if away != nil {
		occ.AwayTeam = away.Name
	}
	if ev.Team != nil {
		occ.Team = ev.Team.Name
	}
	if ev.Player != nil {
		occ.Player = ev.Player.Name
	}
	s.notifier.DispatchAsync(occ)
}

func (s *MatchService) publishMinute(m *domain.Match) {
	s.hub.PublishMatch(m.ID, WSMinuteUpdate, MinuteUpdate{
		MatchID:   m.ID,
		Minute:    policy.CurrentMinute(m, s.now()),
		Status:    m.Status,
		HomeScore: m.HomeScore,
		AwayScore: m.AwayScore,
	})
}

// enrich resolves the event's team and players for broadcast and returns
// both sides of the match. Lookup failures are logged and leave the detail empty.
func (s *MatchService) enrich(ctx context.Context, m *domain.Match, ev *domain.MatchEvent) (home, away *domain.Team) {
	team := func(id uuid.UUID) *domain.Team {
		t, err := s.repos.Teams.FindByID(ctx, s.db, id)
		if err != nil {
			s.logger.Warn("enrich team failed", "match_id", m.ID, "team_id", id, "error", err)
		}
		return t
	}
	player := func(id *uuid.UUID) *domain.Player {
		if id == nil {
			return nil
		}
		p, err := s.repos.Teams.FindPlayer(ctx, s.db, *id)
		if err != nil {
			s.logger.Warn("enrich player failed", "match_id", m.ID, "player_id", *id, "error", err)
		}
		return p
	}

	home, away = team(m.HomeTeamID), team(m.AwayTeamID)
	if ev.TeamID != nil {
		switch *ev.TeamID {
		case m.HomeTeamID:
			ev.Team = home
		case m.AwayTeamID:
			ev.Team = away
		}
	}
	ev.Player = player(ev.PlayerID)
	ev.SecondaryPlayer = player(ev.SecondaryPlayerID)
	return home, away
}

// mapError passes domain errors through and wraps everything else as internal.
func mapError(op string, err error) error {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return domain.ErrInternal(op, err)
}
