package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/futsalhub/platform/internal/app"
	"github.com/futsalhub/platform/internal/auth"
	"github.com/futsalhub/platform/internal/guard"
	"github.com/futsalhub/platform/internal/infra"
	"github.com/futsalhub/platform/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	// Load config
	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Connect to Postgres
	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to postgres")

	if cfg.RunMigrations {
		if err := infra.RunMigrations(cfg.DSN(), cfg.MigrationsDir, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTUserExpiry, cfg.JWTStaffExpiry)

	pusher, err := app.NewPusher(ctx, cfg, logger)
	if err != nil {
		return err
	}

	core := app.NewCore(pool, repository.NewTransactor(pool), app.PostgresRepos(), pusher, app.CoreConfigFrom(cfg), logger)
	core.Scheduler.Start(ctx)

	limiter := guard.NewRateLimiter(rate.Limit(cfg.PublicRateLimit), cfg.PublicRateBurst)
	limiter.StartCleanup(ctx, 5*time.Minute)

	r := app.NewRouter(app.RouterDeps{
		DB:          pool,
		JWTMgr:      jwtMgr,
		Core:        core,
		Limiter:     limiter,
		CORSOrigins: cfg.CORSAllowedOrigins,
		Logger:      logger,
	})

	// Start server. No WriteTimeout: websocket connections are long-lived.
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", addr, "push_enabled", cfg.PushEnabled)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := core.Shutdown(shutdownCtx); err != nil {
		logger.Warn("notification drain cut short", "error", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
