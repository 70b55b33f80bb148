package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/futsalhub/platform/internal/domain"
)

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token bucket for public reads and websocket
// handshakes.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyLimiter
	r        rate.Limit
	burst    int
	idle     time.Duration
}

// NewRateLimiter allows r events per second per key with the given burst.
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*keyLimiter),
		r:        r,
		burst:    burst,
		idle:     10 * time.Minute,
	}
}

// Check consumes one token for key.
func (rl *RateLimiter) Check(_ context.Context, key string) domain.GuardResult {
	rl.mu.Lock()
	kl, ok := rl.limiters[key]
	if !ok {
		kl = &keyLimiter{limiter: rate.NewLimiter(rl.r, rl.burst)}
		rl.limiters[key] = kl
	}
	kl.lastSeen = time.Now()
	rl.mu.Unlock()

	if !kl.limiter.Allow() {
		return domain.GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("rate limit exceeded: %.0f/s burst %d", float64(rl.r), rl.burst),
			Guard:   "rate_limiter",
		}
	}
	return domain.GuardResult{Allowed: true}
}

// StartCleanup evicts idle keys every interval until ctx is cancelled.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.sweep()
			}
		}
	}()
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for k, v := range rl.limiters {
		if time.Since(v.lastSeen) > rl.idle {
			delete(rl.limiters, k)
		}
	}
}
