package projection

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futsalhub/platform/internal/domain"
)

func TestInMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 4, 2, 19, 0, 0, 0, time.UTC)
	s := NewInMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Second))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	now = now.Add(2 * time.Second)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, 0, s.Len())
}

func TestInMemoryStore_NoTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := NewInMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	now = now.Add(24 * time.Hour)
	_, err := s.Get(ctx, "k")
	assert.NoError(t, err)
}

func TestEventHistory_PutGetInvalidate(t *testing.T) {
	ctx := context.Background()
	h := NewEventHistory(NewInMemoryStore(), 0)
	matchID := uuid.New()

	_, ok := h.Get(ctx, matchID)
	assert.False(t, ok)

	events := []domain.MatchEvent{
		{ID: uuid.New(), MatchID: matchID, Type: domain.EventStartHalf, Minute: 1, ScoredSide: domain.SideNone},
		{ID: uuid.New(), MatchID: matchID, Type: domain.EventGoal, Minute: 7, ScoredSide: domain.SideHome},
	}
	require.NoError(t, h.Put(ctx, matchID, events))

	got, ok := h.Get(ctx, matchID)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, events[1].ID, got[1].ID)
	assert.Equal(t, domain.SideHome, got[1].ScoredSide)

	_, ok = h.Get(ctx, uuid.New())
	assert.False(t, ok, "other matches are not affected")

	require.NoError(t, h.Invalidate(ctx, matchID))
	_, ok = h.Get(ctx, matchID)
	assert.False(t, ok)
}

func TestEventHistory_EmptyLedgerIsAHit(t *testing.T) {
	ctx := context.Background()
	h := NewEventHistory(NewInMemoryStore(), time.Minute)
	matchID := uuid.New()

	require.NoError(t, h.Put(ctx, matchID, []domain.MatchEvent{}))
	got, ok := h.Get(ctx, matchID)
	assert.True(t, ok)
	assert.Empty(t, got)
}
