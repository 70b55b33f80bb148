package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates outbox event types published to the stream.
type EventType string

const (
	EventMatchEventRecorded EventType = "futsal.match.event.recorded"
	EventMatchEventDeleted  EventType = "futsal.match.event.deleted"
	EventMatchPhaseChanged  EventType = "futsal.match.phase.changed"
	EventMatchLineupChanged EventType = "futsal.match.lineup.changed"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateMatch AggregateType = "match"
)

// OutboxDraft is the payload written to the event_outbox table.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"eventId"`
	AggregateType AggregateType   `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	EventType     EventType       `json:"eventType"`
	PartitionKey  string          `json:"partitionKey"`
	Headers       json.RawMessage `json:"headers"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// GuardResult is the outcome of an in-process guard check.
type GuardResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Guard   string `json:"guard,omitempty"`
}
