package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/repository"
)

// InvariantCheck records a single invariant validation.
type InvariantCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// ScoreAudit compares the stored score against the extant goal events.
type ScoreAudit struct {
	MatchID    uuid.UUID        `json:"match_id"`
	EventCount int              `json:"event_count"`
	HomeScore  int              `json:"home_score"`
	AwayScore  int              `json:"away_score"`
	HomeGoals  int              `json:"home_goals"`
	AwayGoals  int              `json:"away_goals"`
	Invariants []InvariantCheck `json:"invariants"`
	AllPassed  bool             `json:"all_passed"`
}

// AuditScore replays the match's ledger and validates:
//  1. Home parity: homeScore equals extant home goals
//  2. Away parity: awayScore equals extant away goals
//  3. Attribution: every goal's recorded side matches its team
//  4. Non-goal neutrality: only goals carry a scored side
func (e *Engine) AuditScore(ctx context.Context, db repository.DBTX, matchID uuid.UUID) (*ScoreAudit, error) {
	m, err := e.matches.FindByID(ctx, db, matchID)
	if err != nil {
		return nil, fmt.Errorf("audit find match: %w", err)
	}
	if m == nil {
		return nil, domain.ErrNotFound("match", matchID.String())
	}
	events, err := e.events.ListByMatch(ctx, db, matchID)
	if err != nil {
		return nil, fmt.Errorf("audit list events: %w", err)
	}

	a := &ScoreAudit{MatchID: matchID, EventCount: len(events), HomeScore: m.HomeScore, AwayScore: m.AwayScore}
	misattributed, stray := 0, 0
	for _, ev := range events {
		if ev.Type != domain.EventGoal {
			if ev.ScoredSide != domain.SideNone && ev.ScoredSide != "" {
				stray++
			}
			continue
		}
		switch ev.ScoredSide {
		case domain.SideHome:
			a.HomeGoals++
		case domain.SideAway:
			a.AwayGoals++
		}
		if ev.TeamID == nil || m.SideOf(*ev.TeamID) != ev.ScoredSide {
			misattributed++
		}
	}

	a.Invariants = []InvariantCheck{
		{Name: "home_score_parity", Passed: a.HomeScore == a.HomeGoals, Detail: fmt.Sprintf("stored=%d ledger=%d", a.HomeScore, a.HomeGoals)},
		{Name: "away_score_parity", Passed: a.AwayScore == a.AwayGoals, Detail: fmt.Sprintf("stored=%d ledger=%d", a.AwayScore, a.AwayGoals)},
		{Name: "goal_attribution", Passed: misattributed == 0, Detail: fmt.Sprintf("misattributed=%d", misattributed)},
		{Name: "non_goal_neutral", Passed: stray == 0, Detail: fmt.Sprintf("stray=%d", stray)},
	}
	a.AllPassed = true
	for _, c := range a.Invariants {
		a.AllPassed = a.AllPassed && c.Passed
	}
	return a, nil
}
