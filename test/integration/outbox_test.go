//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/infra"
	"github.com/futsalhub/platform/internal/repository"
	"github.com/futsalhub/platform/test/integration/testutil"
)

type recordedMessage struct {
	Topic string
	Key   string
	Value map[string]interface{}
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []recordedMessage
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, key, value []byte) error {
	var body map[string]interface{}
	if err := json.Unmarshal(value, &body); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, recordedMessage{Topic: topic, Key: string(key), Value: body})
	return nil
}

func TestOutbox_RelayPublishesLedgerWritesInOrder(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	goal := f.env.RecordGoal(f.operator, f.match, f.home)

	pending := testutil.CountUnpublishedOutbox(t, f.env)
	if pending < 2 {
		t.Fatalf("expected phase and goal rows in outbox, got %d", pending)
	}

	pub := &recordingPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	poller := infra.NewOutboxPoller(repository.NewTransactor(f.env.Pool), repository.NewOutboxRepository(), pub, logger)

	n, err := poller.Poll(context.Background())
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if n != pending {
		t.Errorf("expected %d published, got %d", pending, n)
	}
	if left := testutil.CountUnpublishedOutbox(t, f.env); left != 0 {
		t.Errorf("expected empty outbox, got %d", left)
	}

	if pub.msgs[0].Topic != string(domain.EventMatchPhaseChanged) {
		t.Errorf("first message: expected %s, got %s", domain.EventMatchPhaseChanged, pub.msgs[0].Topic)
	}
	last := pub.msgs[len(pub.msgs)-1]
	if last.Topic != string(domain.EventMatchEventRecorded) {
		t.Errorf("last message: expected %s, got %s", domain.EventMatchEventRecorded, last.Topic)
	}
	for _, m := range pub.msgs {
		if m.Key != f.match.String() {
			t.Errorf("partition key: expected %s, got %s", f.match, m.Key)
		}
	}
	payload, _ := last.Value["payload"].(map[string]interface{})
	event, _ := payload["event"].(map[string]interface{})
	if event["id"] != goal.ID.String() {
		t.Errorf("last message: expected goal %s, got %v", goal.ID, event["id"])
	}
	if payload["home_score"] != float64(1) {
		t.Errorf("last message: expected home_score 1, got %v", payload["home_score"])
	}

	n, err = poller.Poll(context.Background())
	if err != nil || n != 0 {
		t.Errorf("second poll: expected 0 published, got %d (err %v)", n, err)
	}
}
