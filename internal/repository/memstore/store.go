// Package memstore is an in-memory implementation of the repository
// interfaces. WithTx serializes transactions and restores a snapshot when the
// callback fails, so ledger atomicity can be exercised without Postgres.
package memstore

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/repository"
)

type pair [2]uuid.UUID

type data struct {
	matches       map[uuid.UUID]domain.Match
	events        map[uuid.UUID]domain.MatchEvent
	eventSeq      map[uuid.UUID]int64
	teams         map[uuid.UUID]domain.Team
	players       map[uuid.UUID]domain.Player
	lineups       map[pair]domain.LineupEntry
	operators     map[pair]bool
	users         map[uuid.UUID]domain.User
	favMatches    map[pair]bool
	notifications map[uuid.UUID]domain.Notification
	notifSeq      map[uuid.UUID]int64
	outbox        []repository.OutboxRow
	published     map[int64]bool
	seq           int64
}

func (d data) clone() data {
	c := d
	c.matches = maps.Clone(d.matches)
	c.events = maps.Clone(d.events)
	c.eventSeq = maps.Clone(d.eventSeq)
	c.teams = maps.Clone(d.teams)
	c.players = maps.Clone(d.players)
	c.lineups = maps.Clone(d.lineups)
	c.operators = maps.Clone(d.operators)
	c.users = maps.Clone(d.users)
	c.favMatches = maps.Clone(d.favMatches)
	c.notifications = maps.Clone(d.notifications)
	c.notifSeq = maps.Clone(d.notifSeq)
	c.outbox = append([]repository.OutboxRow(nil), d.outbox...)
	c.published = maps.Clone(d.published)
	return c
}

// Store holds every table in memory.
type Store struct {
	txMu   sync.Mutex
	mu     sync.Mutex
	d      data
	faults map[string]error
	now    func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		d: data{
			matches:       make(map[uuid.UUID]domain.Match),
			events:        make(map[uuid.UUID]domain.MatchEvent),
			eventSeq:      make(map[uuid.UUID]int64),
			teams:         make(map[uuid.UUID]domain.Team),
			players:       make(map[uuid.UUID]domain.Player),
			lineups:       make(map[pair]domain.LineupEntry),
			operators:     make(map[pair]bool),
			users:         make(map[uuid.UUID]domain.User),
			favMatches:    make(map[pair]bool),
			notifications: make(map[uuid.UUID]domain.Notification),
			notifSeq:      make(map[uuid.UUID]int64),
			published:     make(map[int64]bool),
		},
		faults: make(map[string]error),
		now:    time.Now,
	}
}

// WithTx implements repository.Transactor.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.DBTX) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := s.d.clone()
	s.mu.Unlock()

	if err := fn(nil); err != nil {
		s.mu.Lock()
		s.d = snap
		s.mu.Unlock()
		return err
	}
	return nil
}

// Fail makes the named operation return err until cleared with Fail(op, nil).
// Operation names are "<table>.<method>", e.g. "outbox.insert".
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

func (s *Store) fault(op string) error {
	return s.faults[op]
}

func (s *Store) nextSeq() int64 {
	s.d.seq++
	return s.d.seq
}

// Repository views.

func (s *Store) Matches() repository.MatchRepository             { return matchRepo{s} }
func (s *Store) Events() repository.EventRepository               { return eventRepo{s} }
func (s *Store) Teams() repository.TeamRepository                 { return teamRepo{s} }
func (s *Store) Lineups() repository.LineupRepository             { return lineupRepo{s} }
func (s *Store) Assignments() repository.AssignmentRepository     { return assignmentRepo{s} }
func (s *Store) Users() repository.UserRepository                 { return userRepo{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }
func (s *Store) Outbox() repository.OutboxRepository              { return outboxRepo{s} }

// Inspection helpers for tests.

// Match returns a copy of the stored match.
func (s *Store) Match(id uuid.UUID) domain.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.matches[id]
}

// Team returns a copy of the stored team.
func (s *Store) Team(id uuid.UUID) domain.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.teams[id]
}

// User returns a copy of the stored user.
func (s *Store) User(id uuid.UUID) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.users[id]
}

// AllNotifications returns every notification in insert order.
func (s *Store) AllNotifications() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Notification, 0, len(s.d.notifications))
	for _, n := range s.d.notifications {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return s.d.notifSeq[out[i].ID] < s.d.notifSeq[out[j].ID] })
	return out
}

// OutboxRows returns every outbox row, published or not.
func (s *Store) OutboxRows() []repository.OutboxRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]repository.OutboxRow(nil), s.d.outbox...)
}

// Published reports whether the outbox row was marked published.
func (s *Store) Published(seq int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.published[seq]
}
