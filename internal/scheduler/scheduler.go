// Package scheduler runs the time-driven notification jobs: pre-match
// reminders and silent live-state refreshes.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/notify"
	"github.com/futsalhub/platform/internal/policy"
	"github.com/futsalhub/platform/internal/repository"
)

// Notifier is the part of the dispatcher the scheduler drives.
type Notifier interface {
	Dispatch(ctx context.Context, occ notify.Occurrence) (notify.Report, error)
	Refresh(ctx context.Context, m domain.Match, minute int) (notify.Report, error)
}

// Config sets the two timers.
type Config struct {
	ReminderInterval    time.Duration
	ReminderLead        time.Duration
	LiveRefreshInterval time.Duration
	// Concurrency caps matches processed at once within one tick.
	Concurrency int
}

// TickReport summarizes one run of a job.
type TickReport struct {
	Matches int
	Sent    int
	Skipped int
	Failed  int
}

// Scheduler owns the reminder and live-refresh tickers.
type Scheduler struct {
	db            repository.DBTX
	matches       repository.MatchRepository
	teams         repository.TeamRepository
	notifications repository.NotificationRepository
	notifier      Notifier
	cfg           Config
	logger        *slog.Logger
	now           func() time.Time
}

// New creates a scheduler.
func New(
	db repository.DBTX,
	matches repository.MatchRepository,
	teams repository.TeamRepository,
	notifications repository.NotificationRepository,
	notifier Notifier,
	cfg Config,
	logger *slog.Logger,
) *Scheduler {
	if cfg.ReminderInterval <= 0 {
		cfg.ReminderInterval = time.Minute
	}
	if cfg.ReminderLead <= 0 {
		cfg.ReminderLead = 15 * time.Minute
	}
	if cfg.LiveRefreshInterval <= 0 {
		cfg.LiveRefreshInterval = 2 * time.Minute
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &Scheduler{
		db:            db,
		matches:       matches,
		teams:         teams,
		notifications: notifications,
		notifier:      notifier,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

// SetClock overrides the time source.
func (s *Scheduler) SetClock(now func() time.Time) { s.now = now }

// Start runs both jobs on their own tickers until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started",
		"reminder_interval", s.cfg.ReminderInterval,
		"reminder_lead", s.cfg.ReminderLead,
		"live_refresh_interval", s.cfg.LiveRefreshInterval)

	go s.loop(ctx, "reminders", s.cfg.ReminderInterval, s.RunReminders)
	go s.loop(ctx, "live_refresh", s.cfg.LiveRefreshInterval, s.RunLiveRefresh)
}

func (s *Scheduler) loop(ctx context.Context, job string, every time.Duration, run func(context.Context) (TickReport, error)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler job stopped", "job", job)
			return
		case <-ticker.C:
			rep, err := run(ctx)
			if err != nil {
				s.logger.Error("scheduler tick failed", "job", job, "error", err)
				continue
			}
			if rep.Matches > 0 {
				s.logger.Debug("scheduler tick", "job", job, "matches", rep.Matches,
					"sent", rep.Sent, "skipped", rep.Skipped, "failed", rep.Failed)
			}
		}
	}
}

// RunReminders sends one pre-match reminder per scheduled match starting
// within the lead window. A match that already has a pre_match notification
// is skipped, so repeated ticks never remind twice.
func (s *Scheduler) RunReminders(ctx context.Context) (TickReport, error) {
	now := s.now()
	upcoming, err := s.matches.ListScheduledBetween(ctx, s.db, now, now.Add(s.cfg.ReminderLead))
	if err != nil {
		return TickReport{}, fmt.Errorf("list upcoming matches: %w", err)
	}

	return s.forEach(ctx, "reminders", upcoming, func(ctx context.Context, m domain.Match) (bool, error) {
		sent, err := s.notifications.ExistsForMatch(ctx, s.db, m.ID, domain.NotifyPreMatch)
		if err != nil {
			return false, fmt.Errorf("check reminder: %w", err)
		}
		if sent {
			return false, nil
		}

		occ, err := s.occurrence(ctx, domain.NotifyPreMatch, m, 0)
		if err != nil {
			return false, err
		}
		if _, err := s.notifier.Dispatch(ctx, occ); err != nil {
			return false, fmt.Errorf("dispatch reminder: %w", err)
		}
		return true, nil
	})
}

// RunLiveRefresh sends a silent push with the current score and minute for
// every active match.
func (s *Scheduler) RunLiveRefresh(ctx context.Context) (TickReport, error) {
	active, err := s.matches.ListByStatus(ctx, s.db, domain.ActiveStatuses)
	if err != nil {
		return TickReport{}, fmt.Errorf("list active matches: %w", err)
	}

	now := s.now()
	return s.forEach(ctx, "live_refresh", active, func(ctx context.Context, m domain.Match) (bool, error) {
		if _, err := s.notifier.Refresh(ctx, m, policy.CurrentMinute(&m, now)); err != nil {
			return false, fmt.Errorf("refresh: %w", err)
		}
		return true, nil
	})
}

// forEach runs fn once per match concurrently. A failing or panicking match
// is counted and logged; it never cancels its siblings.
func (s *Scheduler) forEach(ctx context.Context, job string, ms []domain.Match, fn func(context.Context, domain.Match) (bool, error)) (TickReport, error) {
	var sent, skipped, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)

	for _, m := range ms {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic: %v", r)
				}
				if err != nil {
					failed.Add(1)
					s.logger.Error("scheduler match failed", "job", job, "match_id", m.ID, "error", err)
				}
			}()

			did, err := fn(ctx, m)
			if err != nil {
				return err
			}
			if did {
				sent.Add(1)
			} else {
				skipped.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return TickReport{
		Matches: len(ms),
		Sent:    int(sent.Load()),
		Skipped: int(skipped.Load()),
		Failed:  int(failed.Load()),
	}, nil
}

func (s *Scheduler) occurrence(ctx context.Context, kind domain.NotificationKind, m domain.Match, minute int) (notify.Occurrence, error) {
	occ := notify.Occurrence{Kind: kind, Match: m, Minute: minute}
	home, err := s.teams.FindByID(ctx, s.db, m.HomeTeamID)
	if err != nil {
		return occ, fmt.Errorf("load home team: %w", err)
	}
	away, err := s.teams.FindByID(ctx, s.db, m.AwayTeamID)
	if err != nil {
		return occ, fmt.Errorf("load away team: %w", err)
	}
	if home != nil {
		occ.HomeTeam = home.Name
	}
	if away != nil {
		occ.AwayTeam = away.Name
	}
	return occ, nil
}
