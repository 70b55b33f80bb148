package infra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig configures the outbox producer.
type KafkaConfig struct {
	Brokers      []string
	Enabled      bool
	WriteTimeout time.Duration
}

// KafkaProducer publishes outbox envelopes. Messages are hashed by key, and
// the key is the match id, so one match's events keep their order on one
// partition.
type KafkaProducer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewKafkaProducer creates a producer. With no brokers or Enabled unset,
// Publish is a no-op and the relay only marks rows published.
func NewKafkaProducer(cfg KafkaConfig, logger *slog.Logger) *KafkaProducer {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		logger.Info("kafka producer disabled")
		return &KafkaProducer{logger: logger}
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}

	logger.Info("kafka producer initialized", "brokers", cfg.Brokers)
	return &KafkaProducer{writer: w, logger: logger}
}

// Enabled reports whether messages actually leave the process.
func (p *KafkaProducer) Enabled() bool { return p.writer != nil }

// Publish writes one envelope to topic.
func (p *KafkaProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	if p.writer == nil {
		return nil
	}
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Headers: []kafka.Header{{Key: "content-type", Value: []byte("application/json")}},
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", topic, err)
	}
	return nil
}

// Close flushes pending writes and logs the writer's lifetime counters.
func (p *KafkaProducer) Close() error {
	if p.writer == nil {
		return nil
	}
	stats := p.writer.Stats()
	p.logger.Info("kafka producer closing", "messages", stats.Messages, "errors", stats.Errors)
	return p.writer.Close()
}
