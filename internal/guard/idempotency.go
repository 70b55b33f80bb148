package guard

import (
	"context"
	"sync"
	"time"

	"github.com/futsalhub/platform/internal/domain"
)

// IdempotencyGuard deduplicates client retries by Idempotency-Key for a
// bounded window. Keys are scoped by the caller, so two operators can reuse
// the same key string.
type IdempotencyGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewIdempotencyGuard creates a new in-memory idempotency guard.
func NewIdempotencyGuard(ttl time.Duration) *IdempotencyGuard {
	return &IdempotencyGuard{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Check records key and reports whether it was already seen within the window.
func (ig *IdempotencyGuard) Check(_ context.Context, key string) domain.GuardResult {
	if key == "" {
		return domain.GuardResult{Allowed: true}
	}

	ig.mu.Lock()
	defer ig.mu.Unlock()

	now := ig.now()
	for k, at := range ig.seen {
		if now.Sub(at) > ig.ttl {
			delete(ig.seen, k)
		}
	}

	if _, ok := ig.seen[key]; ok {
		return domain.GuardResult{
			Allowed: false,
			Reason:  "duplicate request: idempotency key already processed",
			Guard:   "idempotency",
		}
	}

	ig.seen[key] = now
	return domain.GuardResult{Allowed: true}
}

// Remove forgets key so a failed request can be retried with it.
func (ig *IdempotencyGuard) Remove(key string) {
	ig.mu.Lock()
	defer ig.mu.Unlock()
	delete(ig.seen, key)
}
