package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/futsalhub/platform/internal/guard"
)

// ErrInvalidToken marks a push token the provider will never deliver to again.
// Callers clear the token from the recipient's profile.
var ErrInvalidToken = errors.New("push token invalid or unregistered")

// ErrCircuitOpen is returned without calling the provider while the circuit is open.
var ErrCircuitOpen = errors.New("push provider circuit open")

// Push is one message to one device token.
type Push struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
	// Silent pushes carry data only and raise no alert on the device.
	Silent bool
}

// Pusher delivers push messages to device tokens.
type Pusher interface {
	Send(ctx context.Context, p Push) error
}

// LogPusher logs pushes instead of sending them. Used when push is disabled.
type LogPusher struct {
	logger *slog.Logger
}

// NewLogPusher creates a pusher that only logs.
func NewLogPusher(logger *slog.Logger) *LogPusher {
	return &LogPusher{logger: logger}
}

// Send implements Pusher.
func (p *LogPusher) Send(_ context.Context, push Push) error {
	p.logger.Debug("push (disabled)", "token_suffix", TokenSuffix(push.Token), "title", push.Title, "silent", push.Silent)
	return nil
}

// BreakerPusher guards a Pusher with a circuit breaker. Invalid-token
// failures are the recipient's fault and do not count against the circuit.
type BreakerPusher struct {
	next    Pusher
	breaker *guard.CircuitBreaker
	key     string
}

// NewBreakerPusher wraps next with breaker under the given circuit key.
func NewBreakerPusher(next Pusher, breaker *guard.CircuitBreaker, key string) *BreakerPusher {
	return &BreakerPusher{next: next, breaker: breaker, key: key}
}

// Send implements Pusher.
func (b *BreakerPusher) Send(ctx context.Context, p Push) error {
	if res := b.breaker.Check(ctx, b.key); !res.Allowed {
		return fmt.Errorf("%w: %s", ErrCircuitOpen, res.Reason)
	}
	err := b.next.Send(ctx, p)
	switch {
	case err == nil, errors.Is(err, ErrInvalidToken):
		b.breaker.RecordSuccess(b.key)
	default:
		b.breaker.RecordFailure(b.key)
	}
	return err
}

// TokenSuffix returns the last characters of a token for logging.
func TokenSuffix(token string) string {
	if len(token) <= 6 {
		return token
	}
	return token[len(token)-6:]
}
