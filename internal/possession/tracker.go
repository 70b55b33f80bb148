// Package possession accumulates time-weighted ball possession per match.
// State is held in process memory only and is lost on restart.
package possession

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/futsalhub/platform/internal/domain"
)

type state struct {
	current    domain.Side
	lastSwitch time.Time
	home       time.Duration
	away       time.Duration
}

// Tracker owns every match's possession accumulator.
type Tracker struct {
	mu      sync.Mutex
	matches map[uuid.UUID]*state
	now     func() time.Time
}

// NewTracker creates an empty tracker using the wall clock.
func NewTracker() *Tracker {
	return NewTrackerWithClock(time.Now)
}

// NewTrackerWithClock creates a tracker that reads time from now.
func NewTrackerWithClock(now func() time.Time) *Tracker {
	return &Tracker{matches: make(map[uuid.UUID]*state), now: now}
}

// Toggle hands possession to side. Toggling to the side already in
// possession is a no-op. SideNone pauses accumulation.
func (t *Tracker) Toggle(matchID uuid.UUID, side domain.Side) domain.PossessionRead {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	st, ok := t.matches[matchID]
	if !ok {
		st = &state{current: domain.SideNone, lastSwitch: now}
		t.matches[matchID] = st
	}
	if st.current != side {
		st.commit(now)
		st.current = side
		st.lastSwitch = now
	}
	return st.read(now)
}

// Read returns the projected split including the in-flight segment. It never mutates.
func (t *Tracker) Read(matchID uuid.UUID) domain.PossessionRead {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.matches[matchID]
	if !ok {
		return domain.PossessionRead{HomePct: 50, AwayPct: 50, CurrentTeam: domain.SideNone}
	}
	return st.read(t.now())
}

// Reset clears the match's accumulator.
func (t *Tracker) Reset(matchID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.matches, matchID)
}

func (s *state) commit(now time.Time) {
	elapsed := now.Sub(s.lastSwitch)
	if elapsed < 0 {
		return
	}
	switch s.current {
	case domain.SideHome:
		s.home += elapsed
	case domain.SideAway:
		s.away += elapsed
	}
}

func (s *state) read(now time.Time) domain.PossessionRead {
	home, away := s.home, s.away
	if elapsed := now.Sub(s.lastSwitch); elapsed > 0 {
		switch s.current {
		case domain.SideHome:
			home += elapsed
		case domain.SideAway:
			away += elapsed
		}
	}

	total := home + away
	if total <= 0 {
		return domain.PossessionRead{HomePct: 50, AwayPct: 50, CurrentTeam: s.current}
	}
	homePct := int(math.Round(float64(home) / float64(total) * 100))
	return domain.PossessionRead{HomePct: homePct, AwayPct: 100 - homePct, CurrentTeam: s.current}
}
