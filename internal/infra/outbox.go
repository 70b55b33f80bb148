package infra

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/futsalhub/platform/internal/repository"
)

// Publisher delivers one keyed message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// OutboxPoller drains the event_outbox table into a Publisher. Rows are
// published in sequence order; a row that fails to publish stops the batch so
// later rows of the same match never overtake it.
type OutboxPoller struct {
	tx        repository.Transactor
	outbox    repository.OutboxRepository
	producer  Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// NewOutboxPoller creates a new outbox poller.
func NewOutboxPoller(tx repository.Transactor, outbox repository.OutboxRepository, producer Publisher, logger *slog.Logger) *OutboxPoller {
	return &OutboxPoller{
		tx:        tx,
		outbox:    outbox,
		producer:  producer,
		logger:    logger,
		interval:  500 * time.Millisecond,
		batchSize: 100,
	}
}

// WithInterval overrides the poll interval and batch size.
func (p *OutboxPoller) WithInterval(interval time.Duration, batchSize int) *OutboxPoller {
	if interval > 0 {
		p.interval = interval
	}
	if batchSize > 0 {
		p.batchSize = batchSize
	}
	return p
}

// Start begins polling in a goroutine. Stops when ctx is cancelled.
func (p *OutboxPoller) Start(ctx context.Context) {
	p.logger.Info("outbox poller started", "interval", p.interval, "batch_size", p.batchSize)

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Info("outbox poller stopped")
				return
			case <-ticker.C:
				if _, err := p.Poll(ctx); err != nil {
					p.logger.Error("outbox poll error", "error", err)
				}
			}
		}
	}()
}

// Poll publishes one batch and returns how many rows were marked published.
func (p *OutboxPoller) Poll(ctx context.Context) (int, error) {
	published := 0
	err := p.tx.WithTx(ctx, func(db repository.DBTX) error {
		rows, err := p.outbox.FetchUnpublished(ctx, db, p.batchSize)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		var done []int64
		for _, row := range rows {
			msg, err := json.Marshal(envelope(row))
			if err != nil {
				p.logger.Error("outbox marshal failed", "event_id", row.EventID, "error", err)
				done = append(done, row.SeqID)
				continue
			}
			if err := p.producer.Publish(ctx, string(row.EventType), []byte(row.PartitionKey), msg); err != nil {
				p.logger.Error("kafka publish failed", "event_id", row.EventID, "error", err)
				break
			}
			done = append(done, row.SeqID)
		}

		if err := p.outbox.MarkPublished(ctx, db, done); err != nil {
			return err
		}
		published = len(done)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if published > 0 {
		p.logger.Debug("outbox poll complete", "published", published)
	}
	return published, nil
}

func envelope(row repository.OutboxRow) map[string]interface{} {
	return map[string]interface{}{
		"event_id":       row.EventID,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID,
		"event_type":     row.EventType,
		"headers":        row.Headers,
		"payload":        row.Payload,
		"occurred_at":    row.OccurredAt,
	}
}
