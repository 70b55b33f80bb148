package notify

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/provider"
	"github.com/futsalhub/platform/internal/repository"
)

// Occurrence is something notification-worthy that happened in a match.
type Occurrence struct {
	Kind     domain.NotificationKind
	Match    domain.Match
	HomeTeam string
	AwayTeam string
	// Team and Player name the acting side and player, when known.
	Team   string
	Player string
	Minute int
}

// Report summarizes one dispatch.
type Report struct {
	Recipients    int
	Delivered     int
	Failed        int
	InvalidTokens int
}

// Dispatcher sends localized pushes to a match's interested parties and
// records a Notification per recipient whether or not the push landed.
type Dispatcher struct {
	db            repository.DBTX
	resolver      *Resolver
	users         repository.UserRepository
	notifications repository.NotificationRepository
	pusher        provider.Pusher
	logger        *slog.Logger
	timeout       time.Duration
	concurrency   int
	now           func() time.Time

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
	baseCtx  context.Context
	cancel   context.CancelFunc
}

// DispatcherConfig bounds provider calls.
type DispatcherConfig struct {
	// Timeout caps a single provider call.
	Timeout time.Duration
	// Concurrency caps simultaneous provider calls within one dispatch.
	Concurrency int
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(
	db repository.DBTX,
	resolver *Resolver,
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	pusher provider.Pusher,
	cfg DispatcherConfig,
	logger *slog.Logger,
) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 16
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		db:            db,
		resolver:      resolver,
		users:         users,
		notifications: notifications,
		pusher:        pusher,
		logger:        logger,
		timeout:       cfg.Timeout,
		concurrency:   cfg.Concurrency,
		now:           time.Now,
		baseCtx:       ctx,
		cancel:        cancel,
	}
}

// SetClock overrides the time source for notification timestamps.
func (d *Dispatcher) SetClock(now func() time.Time) { d.now = now }

// Notifies reports whether kind is on the allow-list of pushed occurrences.
func Notifies(kind domain.NotificationKind) bool {
	_, ok := templates[DefaultLanguage][kind]
	return ok
}

// Dispatch resolves recipients and sends to each of them concurrently.
// Per-recipient failures are logged and counted, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, occ Occurrence) (Report, error) {
	if !Notifies(occ.Kind) {
		return Report{}, nil
	}

	recipients, err := d.resolver.Resolve(ctx, &occ.Match)
	if err != nil {
		return Report{}, err
	}

	var delivered, failed, invalid atomic.Int64
	var g errgroup.Group
	g.SetLimit(d.concurrency)

	for _, rc := range recipients {
		g.Go(func() error {
			title, body := Render(rc.Language, occ.Kind, occ)
			err := d.send(ctx, provider.Push{
				Token: rc.PushToken,
				Title: title,
				Body:  body,
				Data:  pushData(occ),
			})
			switch {
			case err == nil:
				delivered.Add(1)
			case errors.Is(err, provider.ErrInvalidToken):
				invalid.Add(1)
				failed.Add(1)
				d.dropToken(ctx, rc.PushToken)
			default:
				failed.Add(1)
				d.logger.Warn("push send failed", "match_id", occ.Match.ID, "user_id", rc.UserID,
					"token_suffix", provider.TokenSuffix(rc.PushToken), "error", err)
			}

			d.record(ctx, rc, occ, title, body, err == nil)
			return nil
		})
	}
	_ = g.Wait()

	rep := Report{
		Recipients:    len(recipients),
		Delivered:     int(delivered.Load()),
		Failed:        int(failed.Load()),
		InvalidTokens: int(invalid.Load()),
	}
	d.logger.Info("notification dispatched", "match_id", occ.Match.ID, "kind", occ.Kind,
		"recipients", rep.Recipients, "delivered", rep.Delivered, "failed", rep.Failed)
	return rep, nil
}

// DispatchAsync runs Dispatch detached from the caller's lifetime. Once the
// dispatcher is draining or closed, new work is dropped.
func (d *Dispatcher) DispatchAsync(occ Occurrence) {
	if !Notifies(occ.Kind) {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("dispatcher closed, notification dropped", "match_id", occ.Match.ID, "kind", occ.Kind)
		return
	}
	d.inflight.Add(1)
	d.mu.Unlock()
	go func() {
		defer d.inflight.Done()
		if _, err := d.Dispatch(d.baseCtx, occ); err != nil {
			d.logger.Error("notification dispatch failed", "match_id", occ.Match.ID, "kind", occ.Kind, "error", err)
		}
	}()
}

// Refresh sends a silent data-only push with the current score and minute.
// No Notification rows are written.
func (d *Dispatcher) Refresh(ctx context.Context, m domain.Match, minute int) (Report, error) {
	recipients, err := d.resolver.Resolve(ctx, &m)
	if err != nil {
		return Report{}, err
	}

	data := pushData(Occurrence{Kind: "live_refresh", Match: m, Minute: minute})
	data["status"] = string(m.Status)

	var delivered, failed, invalid atomic.Int64
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for _, rc := range recipients {
		g.Go(func() error {
			err := d.send(ctx, provider.Push{Token: rc.PushToken, Data: data, Silent: true})
			switch {
			case err == nil:
				delivered.Add(1)
			case errors.Is(err, provider.ErrInvalidToken):
				invalid.Add(1)
				failed.Add(1)
				d.dropToken(ctx, rc.PushToken)
			default:
				failed.Add(1)
				d.logger.Debug("silent push failed", "match_id", m.ID, "token_suffix", provider.TokenSuffix(rc.PushToken), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return Report{
		Recipients:    len(recipients),
		Delivered:     int(delivered.Load()),
		Failed:        int(failed.Load()),
		InvalidTokens: int(invalid.Load()),
	}, nil
}

// Drain stops accepting async work and waits for in-flight dispatches. When
// ctx expires first, the remaining dispatches are cancelled; their
// notification history is still written.
func (d *Dispatcher) Drain(ctx context.Context) error {
	d.stop()
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

// Close cancels in-flight async dispatches and waits for them to return.
func (d *Dispatcher) Close() {
	d.stop()
	d.cancel()
	d.inflight.Wait()
}

func (d *Dispatcher) stop() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

// Wait blocks until every async dispatch has finished.
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}

func (d *Dispatcher) send(ctx context.Context, p provider.Push) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.pusher.Send(ctx, p)
}

func (d *Dispatcher) dropToken(ctx context.Context, token string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()
	n, err := d.users.ClearPushToken(ctx, d.db, token)
	if err != nil {
		d.logger.Error("clear push token failed", "token_suffix", provider.TokenSuffix(token), "error", err)
		return
	}
	d.logger.Info("push token cleared", "token_suffix", provider.TokenSuffix(token), "users", n)
}

func (d *Dispatcher) record(ctx context.Context, rc domain.Recipient, occ Occurrence, title, body string, delivered bool) {
	n := &domain.Notification{
		ID:        uuid.New(),
		UserID:    rc.UserID,
		MatchID:   occ.Match.ID,
		Kind:      occ.Kind,
		Title:     title,
		Body:      body,
		Delivered: delivered,
		CreatedAt: d.now(),
	}
	// History outlives a cancelled send.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()
	if err := d.notifications.Insert(ctx, d.db, n); err != nil {
		d.logger.Error("persist notification failed", "match_id", occ.Match.ID, "user_id", rc.UserID, "error", err)
	}
}

func pushData(occ Occurrence) map[string]string {
	return map[string]string{
		"type":       string(occ.Kind),
		"match_id":   occ.Match.ID.String(),
		"home_score": strconv.Itoa(occ.Match.HomeScore),
		"away_score": strconv.Itoa(occ.Match.AwayScore),
		"minute":     strconv.Itoa(occ.Minute),
	}
}
