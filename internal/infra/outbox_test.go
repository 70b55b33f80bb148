package infra

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/repository"
	"github.com/futsalhub/platform/internal/repository/memstore"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	keys   []string
	values [][]byte
	failAt int
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAt > 0 && len(p.topics)+1 == p.failAt {
		p.failAt = 0
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, string(key))
	p.values = append(p.values, value)
	return nil
}

func seedOutbox(t *testing.T, store *memstore.Store, matchID uuid.UUID, types ...domain.EventType) {
	t.Helper()
	err := store.WithTx(context.Background(), func(db repository.DBTX) error {
		for _, et := range types {
			err := store.Outbox().Insert(context.Background(), db, domain.OutboxDraft{
				EventID:       uuid.New(),
				AggregateType: domain.AggregateMatch,
				AggregateID:   matchID.String(),
				EventType:     et,
				PartitionKey:  matchID.String(),
				Payload:       json.RawMessage(`{}`),
				OccurredAt:    time.Now(),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestOutboxPoller_PublishesInOrderAndMarks(t *testing.T) {
	store := memstore.New()
	matchID := uuid.New()
	seedOutbox(t, store, matchID, domain.EventMatchPhaseChanged, domain.EventMatchEventRecorded)

	pub := &recordingPublisher{}
	poller := NewOutboxPoller(store, store.Outbox(), pub, testLogger())

	n, err := poller.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{string(domain.EventMatchPhaseChanged), string(domain.EventMatchEventRecorded)}, pub.topics)
	assert.Equal(t, []string{matchID.String(), matchID.String()}, pub.keys)

	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(pub.values[0], &env))
	assert.Equal(t, matchID.String(), env["aggregate_id"])

	for _, row := range store.OutboxRows() {
		assert.True(t, store.Published(row.SeqID))
	}

	n, err = poller.Poll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOutboxPoller_StopsBatchAtFirstFailure(t *testing.T) {
	store := memstore.New()
	seedOutbox(t, store, uuid.New(), domain.EventMatchEventRecorded, domain.EventMatchEventRecorded, domain.EventMatchEventDeleted)

	pub := &recordingPublisher{failAt: 2}
	poller := NewOutboxPoller(store, store.Outbox(), pub, testLogger())

	n, err := poller.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows := store.OutboxRows()
	assert.True(t, store.Published(rows[0].SeqID))
	assert.False(t, store.Published(rows[1].SeqID))
	assert.False(t, store.Published(rows[2].SeqID))

	n, err = poller.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, pub.topics, 3)
}

func TestOutboxPoller_FetchError(t *testing.T) {
	store := memstore.New()
	store.Fail("outbox.fetch", errors.New("db down"))

	poller := NewOutboxPoller(store, store.Outbox(), &recordingPublisher{}, testLogger())
	_, err := poller.Poll(context.Background())
	assert.Error(t, err)
}

func TestKafkaProducer_DisabledIsNoop(t *testing.T) {
	p := NewKafkaProducer(KafkaConfig{Enabled: true}, testLogger())
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Publish(context.Background(), "t", nil, nil))
	assert.NoError(t, p.Close())
}
