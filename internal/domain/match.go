package domain

import (
	"time"

	"github.com/google/uuid"
)

// MatchStatus is the phase a match is in.
type MatchStatus string

const (
	MatchScheduled         MatchStatus = "scheduled"
	MatchLive              MatchStatus = "live"
	MatchHalftime          MatchStatus = "halftime"
	MatchExtraTime         MatchStatus = "extra_time"
	MatchExtraTimeHalftime MatchStatus = "extra_time_halftime"
	MatchPenalties         MatchStatus = "penalties"
	MatchFinished          MatchStatus = "finished"
)

// IsActive reports whether the match has kicked off and is not yet finished.
func (s MatchStatus) IsActive() bool {
	switch s {
	case MatchLive, MatchHalftime, MatchExtraTime, MatchExtraTimeHalftime, MatchPenalties:
		return true
	}
	return false
}

// ActiveStatuses lists every in-play status, in phase order.
var ActiveStatuses = []MatchStatus{
	MatchLive, MatchHalftime, MatchExtraTime, MatchExtraTimeHalftime, MatchPenalties,
}

// Side identifies one of the two teams in a match.
type Side string

const (
	SideNone Side = "none"
	SideHome Side = "home"
	SideAway Side = "away"
)

// Valid reports whether s is one of the known sides.
func (s Side) Valid() bool {
	return s == SideNone || s == SideHome || s == SideAway
}

// Match is the persisted match row.
//
// CurrentMinute is a cache written on every ledger write and phase change; the
// authoritative minute is derived from the anchor timestamps while the match
// is active. ExtraTimeBase and ExtraTimeStartedAt are set by the transitions
// into an extra-time period.
type Match struct {
	ID                  uuid.UUID   `json:"id"`
	HomeTeamID          uuid.UUID   `json:"home_team_id"`
	AwayTeamID          uuid.UUID   `json:"away_team_id"`
	HomeScore           int         `json:"home_score"`
	AwayScore           int         `json:"away_score"`
	Status              MatchStatus `json:"status"`
	CurrentMinute       int         `json:"current_minute"`
	LiveStartedAt       *time.Time  `json:"live_started_at,omitempty"`
	SecondHalfStartedAt *time.Time  `json:"second_half_started_at,omitempty"`
	ExtraTimeBase       int         `json:"extra_time_base,omitempty"`
	ExtraTimeStartedAt  *time.Time  `json:"extra_time_started_at,omitempty"`
	StartTime           time.Time   `json:"start_time"`
	Venue               *string     `json:"venue,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// SideOf returns which side teamID plays on, or SideNone if it is not in the match.
func (m *Match) SideOf(teamID uuid.UUID) Side {
	switch teamID {
	case m.HomeTeamID:
		return SideHome
	case m.AwayTeamID:
		return SideAway
	}
	return SideNone
}

// TeamFor returns the team id playing on the given side.
func (m *Match) TeamFor(side Side) (uuid.UUID, bool) {
	switch side {
	case SideHome:
		return m.HomeTeamID, true
	case SideAway:
		return m.AwayTeamID, true
	}
	return uuid.Nil, false
}

// Team is a club with its running league aggregates.
type Team struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	ShortName    string    `json:"short_name"`
	LogoURL      *string   `json:"logo_url,omitempty"`
	Played       int       `json:"played"`
	Won          int       `json:"won"`
	Drawn        int       `json:"drawn"`
	Lost         int       `json:"lost"`
	GoalsFor     int       `json:"goals_for"`
	GoalsAgainst int       `json:"goals_against"`
	CreatedAt    time.Time `json:"created_at"`
}

// Points uses three for a win and one for a draw.
func (t *Team) Points() int { return t.Won*3 + t.Drawn }

// TeamResult is the per-team delta applied once when a match finishes.
type TeamResult struct {
	TeamID       uuid.UUID
	Won          int
	Drawn        int
	Lost         int
	GoalsFor     int
	GoalsAgainst int
}

// ResultsFor derives both teams' aggregate deltas from a final score.
func ResultsFor(m *Match) [2]TeamResult {
	home := TeamResult{TeamID: m.HomeTeamID, GoalsFor: m.HomeScore, GoalsAgainst: m.AwayScore}
	away := TeamResult{TeamID: m.AwayTeamID, GoalsFor: m.AwayScore, GoalsAgainst: m.HomeScore}
	switch {
	case m.HomeScore > m.AwayScore:
		home.Won, away.Lost = 1, 1
	case m.HomeScore < m.AwayScore:
		home.Lost, away.Won = 1, 1
	default:
		home.Drawn, away.Drawn = 1, 1
	}
	return [2]TeamResult{home, away}
}

// Player is a squad member.
type Player struct {
	ID       uuid.UUID `json:"id"`
	TeamID   uuid.UUID `json:"team_id"`
	Name     string    `json:"name"`
	Number   int       `json:"number"`
	Position string    `json:"position,omitempty"`
}

// LineupEntry is one player's slot in a match lineup.
type LineupEntry struct {
	MatchID   uuid.UUID `json:"match_id"`
	TeamID    uuid.UUID `json:"team_id"`
	PlayerID  uuid.UUID `json:"player_id"`
	IsStarter bool      `json:"is_starter"`
	OnPitch   bool      `json:"on_pitch"`
}

// LiveState is the pull view a reconnecting viewer fetches.
type LiveState struct {
	Match      *Match         `json:"match"`
	Minute     int            `json:"minute"`
	Possession PossessionRead `json:"possession"`
	Events     []MatchEvent   `json:"events"`
}

// PossessionRead is a normalized possession snapshot.
type PossessionRead struct {
	HomePct     int  `json:"home_pct"`
	AwayPct     int  `json:"away_pct"`
	CurrentTeam Side `json:"current_team"`
}
