package projection

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/futsalhub/platform/internal/domain"
)

// DefaultHistoryTTL bounds how long a match's cached ledger survives without a write.
const DefaultHistoryTTL = time.Minute

// EventHistory caches each match's ordered ledger for the public live read.
// Writers invalidate after commit while holding the match's write lock; fills
// must happen under the same lock so a fill never races a write.
type EventHistory struct {
	store Store
	ttl   time.Duration
}

// NewEventHistory creates an EventHistory over store.
func NewEventHistory(store Store, ttl time.Duration) *EventHistory {
	if ttl <= 0 {
		ttl = DefaultHistoryTTL
	}
	return &EventHistory{store: store, ttl: ttl}
}

func historyKey(matchID uuid.UUID) string {
	return fmt.Sprintf("projection:history:%s", matchID)
}

// Get returns the cached ledger, or ok=false on a miss.
func (h *EventHistory) Get(ctx context.Context, matchID uuid.UUID) ([]domain.MatchEvent, bool) {
	var events []domain.MatchEvent
	if err := GetJSON(ctx, h.store, historyKey(matchID), &events); err != nil {
		return nil, false
	}
	return events, true
}

// Put caches the full ledger of a match.
func (h *EventHistory) Put(ctx context.Context, matchID uuid.UUID, events []domain.MatchEvent) error {
	return SetJSON(ctx, h.store, historyKey(matchID), events, h.ttl)
}

// Invalidate drops a match's cached ledger.
func (h *EventHistory) Invalidate(ctx context.Context, matchID uuid.UUID) error {
	return h.store.Delete(ctx, historyKey(matchID))
}
