package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind is the template family of a push notification.
type NotificationKind string

const (
	NotifyMatchStart NotificationKind = "match_start"
	NotifyHalfStart  NotificationKind = "half_start"
	NotifyHalfEnd    NotificationKind = "half_end"
	NotifyMatchEnd   NotificationKind = "match_end"
	NotifyGoal       NotificationKind = "goal"
	NotifyRedCard    NotificationKind = "red_card"
	NotifyPenalty    NotificationKind = "penalty"
	NotifyPreMatch   NotificationKind = "pre_match"
)

// Notification is a per-user delivery record, written whether or not the push landed.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	MatchID   uuid.UUID        `json:"match_id"`
	Kind      NotificationKind `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	IsRead    bool             `json:"is_read"`
	Delivered bool             `json:"delivered"`
	CreatedAt time.Time        `json:"created_at"`
}

// Recipient is one resolved push target.
type Recipient struct {
	UserID    uuid.UUID `json:"user_id"`
	PushToken string    `json:"push_token"`
	Language  string    `json:"language"`
}

// User is the part of an upstream account the match core reads and writes.
type User struct {
	ID              uuid.UUID   `json:"id"`
	Email           string      `json:"email"`
	Role            Role        `json:"role"`
	PushToken       *string     `json:"push_token,omitempty"`
	Language        string      `json:"language"`
	FavoriteTeamIDs []uuid.UUID `json:"favorite_team_ids"`
	CreatedAt       time.Time   `json:"created_at"`
}
