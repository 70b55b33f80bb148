package possession

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/futsalhub/platform/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTracker() (*Tracker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)}
	return NewTrackerWithClock(clock.Now), clock
}

func TestTracker_NeverToggledIsEven(t *testing.T) {
	tr, _ := newTestTracker()
	got := tr.Read(uuid.New())
	assert.Equal(t, domain.PossessionRead{HomePct: 50, AwayPct: 50, CurrentTeam: domain.SideNone}, got)
}

func TestTracker_TimeWeightedSplit(t *testing.T) {
	tr, clock := newTestTracker()
	match := uuid.New()
	tr.Reset(match)

	tr.Toggle(match, domain.SideHome)
	clock.Advance(10 * time.Second)
	tr.Toggle(match, domain.SideAway)
	clock.Advance(5 * time.Second)

	got := tr.Read(match)
	assert.Equal(t, 67, got.HomePct)
	assert.Equal(t, 33, got.AwayPct)
	assert.Equal(t, domain.SideAway, got.CurrentTeam)
}

func TestTracker_ToggleSameSideIsNoop(t *testing.T) {
	tr, clock := newTestTracker()
	match := uuid.New()

	tr.Toggle(match, domain.SideHome)
	clock.Advance(10 * time.Second)
	tr.Toggle(match, domain.SideAway)
	clock.Advance(5 * time.Second)
	before := tr.Read(match)

	tr.Toggle(match, domain.SideAway)
	after := tr.Read(match)
	assert.Equal(t, before, after)

	// the in-flight away segment keeps growing from the original switch
	clock.Advance(5 * time.Second)
	got := tr.Read(match)
	assert.Equal(t, 50, got.HomePct)
}

func TestTracker_ReadDoesNotCommit(t *testing.T) {
	tr, clock := newTestTracker()
	match := uuid.New()

	tr.Toggle(match, domain.SideHome)
	clock.Advance(30 * time.Second)
	tr.Read(match)
	tr.Read(match)
	tr.Toggle(match, domain.SideAway)
	clock.Advance(30 * time.Second)

	got := tr.Read(match)
	assert.Equal(t, 50, got.HomePct)
	assert.Equal(t, 50, got.AwayPct)
}

func TestTracker_PauseStopsAccumulation(t *testing.T) {
	tr, clock := newTestTracker()
	match := uuid.New()

	tr.Toggle(match, domain.SideHome)
	clock.Advance(20 * time.Second)
	tr.Toggle(match, domain.SideNone)
	clock.Advance(time.Hour)
	tr.Toggle(match, domain.SideAway)
	clock.Advance(20 * time.Second)

	got := tr.Read(match)
	assert.Equal(t, 50, got.HomePct)
}

func TestTracker_PercentagesAlwaysSumTo100(t *testing.T) {
	tr, clock := newTestTracker()
	match := uuid.New()
	sides := []domain.Side{domain.SideHome, domain.SideAway}

	for i := 1; i <= 40; i++ {
		tr.Toggle(match, sides[i%2])
		clock.Advance(time.Duration(i*7%13+1) * time.Second)
		got := tr.Read(match)
		assert.Equal(t, 100, got.HomePct+got.AwayPct)
	}
}

func TestTracker_ResetClearsState(t *testing.T) {
	tr, clock := newTestTracker()
	match := uuid.New()

	tr.Toggle(match, domain.SideHome)
	clock.Advance(time.Minute)
	tr.Reset(match)

	assert.Equal(t, 50, tr.Read(match).HomePct)
	assert.Equal(t, domain.SideNone, tr.Read(match).CurrentTeam)
}

func TestTracker_MatchesAreIndependent(t *testing.T) {
	tr, clock := newTestTracker()
	a, b := uuid.New(), uuid.New()

	tr.Toggle(a, domain.SideHome)
	tr.Toggle(b, domain.SideAway)
	clock.Advance(10 * time.Second)

	assert.Equal(t, 100, tr.Read(a).HomePct)
	assert.Equal(t, 100, tr.Read(b).AwayPct)
}

func TestTracker_ConcurrentToggles(t *testing.T) {
	tr := NewTracker()
	match := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				tr.Toggle(match, domain.SideHome)
			} else {
				tr.Toggle(match, domain.SideAway)
			}
			got := tr.Read(match)
			assert.Equal(t, 100, got.HomePct+got.AwayPct)
		}(i)
	}
	wg.Wait()
}
