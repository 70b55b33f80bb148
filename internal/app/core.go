package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/futsalhub/platform/internal/guard"
	"github.com/futsalhub/platform/internal/infra"
	"github.com/futsalhub/platform/internal/ledger"
	"github.com/futsalhub/platform/internal/notify"
	"github.com/futsalhub/platform/internal/possession"
	"github.com/futsalhub/platform/internal/provider"
	"github.com/futsalhub/platform/internal/repository"
	"github.com/futsalhub/platform/internal/scheduler"
	"github.com/futsalhub/platform/internal/service"
)

// Repos bundles every repository the match core reads or writes.
type Repos struct {
	Matches       repository.MatchRepository
	Events        repository.EventRepository
	Teams         repository.TeamRepository
	Lineups       repository.LineupRepository
	Assignments   repository.AssignmentRepository
	Users         repository.UserRepository
	Notifications repository.NotificationRepository
	Outbox        repository.OutboxRepository
}

// PostgresRepos returns the pgx-backed repositories.
func PostgresRepos() Repos {
	return Repos{
		Matches:       repository.NewMatchRepository(),
		Events:        repository.NewEventRepository(),
		Teams:         repository.NewTeamRepository(),
		Lineups:       repository.NewLineupRepository(),
		Assignments:   repository.NewAssignmentRepository(),
		Users:         repository.NewUserRepository(),
		Notifications: repository.NewNotificationRepository(),
		Outbox:        repository.NewOutboxRepository(),
	}
}

// CoreConfig carries the tunables of the notification pipeline.
type CoreConfig struct {
	Dispatch notify.DispatcherConfig
	Schedule scheduler.Config
}

// CoreConfigFrom maps environment config onto the core's tunables.
func CoreConfigFrom(cfg *infra.Config) CoreConfig {
	return CoreConfig{
		Dispatch: notify.DispatcherConfig{
			Timeout:     cfg.PushTimeout,
			Concurrency: cfg.PushConcurrency,
		},
		Schedule: scheduler.Config{
			ReminderInterval:    cfg.ReminderInterval,
			ReminderLead:        cfg.ReminderLead,
			LiveRefreshInterval: cfg.LiveRefreshInterval,
		},
	}
}

// Core is the assembled live match core.
type Core struct {
	Hub        *infra.WSHub
	Engine     *ledger.Engine
	Match      *service.MatchService
	Admin      *service.AdminService
	Users      *service.UserService
	Dispatcher *notify.Dispatcher
	Scheduler  *scheduler.Scheduler
}

// NewCore wires the ledger, broadcaster, notification pipeline and services.
func NewCore(db repository.DBTX, tx repository.Transactor, repos Repos, pusher provider.Pusher, cfg CoreConfig, logger *slog.Logger) *Core {
	hub := infra.NewWSHub(logger)
	engine := ledger.NewEngine(repos.Matches, repos.Events, repos.Lineups, repos.Teams, repos.Outbox)

	resolver := notify.NewResolver(db, repos.Users)
	dispatcher := notify.NewDispatcher(db, resolver, repos.Users, repos.Notifications, pusher, cfg.Dispatch, logger)
	sched := scheduler.New(db, repos.Matches, repos.Teams, repos.Notifications, dispatcher, cfg.Schedule, logger)

	matchSvc := service.NewMatchService(db, tx, engine, service.MatchRepos{
		Matches:     repos.Matches,
		Events:      repos.Events,
		Teams:       repos.Teams,
		Assignments: repos.Assignments,
	}, possession.NewTracker(), hub, dispatcher, logger)

	return &Core{
		Hub:        hub,
		Engine:     engine,
		Match:      matchSvc,
		Admin:      service.NewAdminService(db, tx, repos.Matches, repos.Teams, repos.Lineups, repos.Assignments, repos.Users, logger),
		Users:      service.NewUserService(db, repos.Users, repos.Notifications, repos.Matches, repos.Teams),
		Dispatcher: dispatcher,
		Scheduler:  sched,
	}
}

// Shutdown drops viewer connections and drains in-flight pushes until ctx
// expires. Call it after the HTTP server has stopped taking requests.
func (c *Core) Shutdown(ctx context.Context) error {
	c.Hub.Shutdown(ctx)
	return c.Dispatcher.Drain(ctx)
}

// NewPusher returns the SNS pusher behind a circuit breaker when push is
// enabled, and a logging pusher otherwise.
func NewPusher(ctx context.Context, cfg *infra.Config, logger *slog.Logger) (provider.Pusher, error) {
	if !cfg.PushEnabled {
		logger.Info("push delivery disabled, notifications will be logged only")
		return provider.NewLogPusher(logger), nil
	}

	client, err := provider.NewSNSClient(ctx, provider.SNSConfig{
		Region:         cfg.AWSRegion,
		EndpointURL:    cfg.AWSEndpointURL,
		AccessKeyID:    cfg.AWSAccessKeyID,
		SecretKey:      cfg.AWSSecretKey,
		PlatformAppARN: cfg.SNSPlatformARN,
	})
	if err != nil {
		return nil, fmt.Errorf("create sns client: %w", err)
	}
	sns := provider.NewSNSPusher(client, cfg.SNSPlatformARN, logger)
	return provider.NewBreakerPusher(sns, guard.NewCircuitBreaker(5, 30*time.Second), "sns"), nil
}
