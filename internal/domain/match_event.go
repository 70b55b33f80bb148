package domain

import (
	"time"

	"github.com/google/uuid"
)

// MatchEventType is the closed set of in-match ledger entries.
type MatchEventType string

const (
	EventGoal         MatchEventType = "goal"
	EventFoul         MatchEventType = "foul"
	EventYellowCard   MatchEventType = "yellow_card"
	EventRedCard      MatchEventType = "red_card"
	EventSubstitution MatchEventType = "substitution"
	EventVARReview    MatchEventType = "var_review"
	EventPenalty      MatchEventType = "penalty"
	EventCorner       MatchEventType = "corner"
	EventOffside      MatchEventType = "offside"
	EventInjury       MatchEventType = "injury"
	EventStop         MatchEventType = "stop"
	EventStartHalf    MatchEventType = "start_half"
	EventEndHalf      MatchEventType = "end_half"
	EventEndMatch     MatchEventType = "end_match"
)

var matchEventTypes = map[MatchEventType]bool{
	EventGoal: true, EventFoul: true, EventYellowCard: true, EventRedCard: true,
	EventSubstitution: true, EventVARReview: true, EventPenalty: true, EventCorner: true,
	EventOffside: true, EventInjury: true, EventStop: true, EventStartHalf: true,
	EventEndHalf: true, EventEndMatch: true,
}

// Valid reports whether t is a known event type.
func (t MatchEventType) Valid() bool { return matchEventTypes[t] }

// IsLifecycle reports whether t is written only by phase transitions.
func (t MatchEventType) IsLifecycle() bool {
	return t == EventStartHalf || t == EventEndHalf || t == EventEndMatch
}

// FieldPosition is a pitch coordinate in percent of length and width.
type FieldPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MatchEvent is one ledger row. ScoredSide records which score a goal
// incremented so deleting it can apply the exact inverse.
type MatchEvent struct {
	ID                uuid.UUID      `json:"id"`
	MatchID           uuid.UUID      `json:"match_id"`
	Type              MatchEventType `json:"type"`
	Minute            int            `json:"minute"`
	ExtraTime         *int           `json:"extra_time,omitempty"`
	TeamID            *uuid.UUID     `json:"team_id,omitempty"`
	PlayerID          *uuid.UUID     `json:"player_id,omitempty"`
	SecondaryPlayerID *uuid.UUID     `json:"secondary_player_id,omitempty"`
	Position          *FieldPosition `json:"position,omitempty"`
	Detail            *string        `json:"detail,omitempty"`
	ScoredSide        Side           `json:"scored_side"`
	CreatedByID       uuid.UUID      `json:"created_by_id"`
	CreatedAt         time.Time      `json:"created_at"`

	Team            *Team   `json:"team,omitempty"`
	Player          *Player `json:"player,omitempty"`
	SecondaryPlayer *Player `json:"secondary_player,omitempty"`
}

// EventInput is the operator-supplied part of a new event. Minute is
// informational only and never stored.
type EventInput struct {
	Type              MatchEventType `json:"type" validate:"required"`
	Minute            *int           `json:"minute,omitempty"`
	ExtraTime         *int           `json:"extra_time,omitempty" validate:"omitempty,min=0,max=30"`
	TeamID            *uuid.UUID     `json:"team_id,omitempty"`
	PlayerID          *uuid.UUID     `json:"player_id,omitempty"`
	SecondaryPlayerID *uuid.UUID     `json:"secondary_player_id,omitempty"`
	Position          *FieldPosition `json:"position,omitempty"`
	Detail            *string        `json:"detail,omitempty" validate:"omitempty,max=500"`
}

// SubstitutionInput swaps a player on the pitch for one on the bench.
type SubstitutionInput struct {
	TeamID      uuid.UUID `json:"team_id" validate:"required"`
	PlayerOutID uuid.UUID `json:"player_out_id" validate:"required"`
	PlayerInID  uuid.UUID `json:"player_in_id" validate:"required"`
	ExtraTime   *int      `json:"extra_time,omitempty" validate:"omitempty,min=0,max=30"`
}
