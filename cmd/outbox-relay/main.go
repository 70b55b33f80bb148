package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/futsalhub/platform/internal/infra"
	"github.com/futsalhub/platform/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("outbox relay failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("outbox-relay connected to postgres")

	producer := infra.NewKafkaProducer(infra.KafkaConfig{
		Brokers:      cfg.KafkaBrokers,
		Enabled:      cfg.KafkaEnabled,
		WriteTimeout: cfg.KafkaWriteTimeout,
	}, logger)
	defer producer.Close()

	poller := infra.NewOutboxPoller(repository.NewTransactor(pool), repository.NewOutboxRepository(), producer, logger).
		WithInterval(cfg.OutboxPollInterval, cfg.OutboxBatchSize)

	logger.Info("outbox-relay starting",
		"poll_interval", cfg.OutboxPollInterval,
		"batch_size", cfg.OutboxBatchSize,
		"kafka_enabled", producer.Enabled(),
	)
	poller.Start(ctx)

	<-ctx.Done()
	logger.Info("outbox-relay shutting down")
	return nil
}
