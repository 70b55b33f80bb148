package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

func matchDraft(matchID uuid.UUID, evtType EventType, payload any) OutboxDraft {
	body, _ := json.Marshal(payload)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateMatch,
		AggregateID:   matchID.String(),
		EventType:     evtType,
		PartitionKey:  matchID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       body,
		OccurredAt:    time.Now(),
	}
}

// NewEventRecordedEvent wraps a freshly written ledger row with the resulting score.
func NewEventRecordedEvent(m *Match, ev *MatchEvent) OutboxDraft {
	return matchDraft(m.ID, EventMatchEventRecorded, map[string]interface{}{
		"event":      ev,
		"home_score": m.HomeScore,
		"away_score": m.AwayScore,
	})
}

// NewEventDeletedEvent records a ledger removal and the reversed score.
func NewEventDeletedEvent(m *Match, ev *MatchEvent) OutboxDraft {
	return matchDraft(m.ID, EventMatchEventDeleted, map[string]interface{}{
		"event_id":    ev.ID.String(),
		"type":        ev.Type,
		"scored_side": ev.ScoredSide,
		"home_score":  m.HomeScore,
		"away_score":  m.AwayScore,
	})
}

// NewPhaseChangedEvent records a status transition.
func NewPhaseChangedEvent(m *Match, from MatchStatus) OutboxDraft {
	return matchDraft(m.ID, EventMatchPhaseChanged, map[string]interface{}{
		"from":           from,
		"to":             m.Status,
		"current_minute": m.CurrentMinute,
		"home_score":     m.HomeScore,
		"away_score":     m.AwayScore,
	})
}

// NewLineupChangedEvent records a substitution's lineup swap.
func NewLineupChangedEvent(matchID, teamID, out, in uuid.UUID) OutboxDraft {
	return matchDraft(matchID, EventMatchLineupChanged, map[string]string{
		"team_id":       teamID.String(),
		"player_out_id": out.String(),
		"player_in_id":  in.String(),
	})
}
