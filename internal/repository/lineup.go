package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/futsalhub/platform/internal/domain"
)

type lineupRepo struct{}

// NewLineupRepository returns a pgx-backed LineupRepository.
func NewLineupRepository() LineupRepository {
	return &lineupRepo{}
}

func (r *lineupRepo) Find(ctx context.Context, db DBTX, matchID, playerID uuid.UUID) (*domain.LineupEntry, error) {
	var e domain.LineupEntry
	err := db.QueryRow(ctx, `
		SELECT match_id, team_id, player_id, is_starter, on_pitch
		FROM match_lineups WHERE match_id = $1 AND player_id = $2`, matchID, playerID).
		Scan(&e.MatchID, &e.TeamID, &e.PlayerID, &e.IsStarter, &e.OnPitch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan lineup entry: %w", err)
	}
	return &e, nil
}

func (r *lineupRepo) Upsert(ctx context.Context, db DBTX, e *domain.LineupEntry) error {
	_, err := db.Exec(ctx, `
		INSERT INTO match_lineups (match_id, team_id, player_id, is_starter, on_pitch)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (match_id, player_id)
		DO UPDATE SET team_id = EXCLUDED.team_id, is_starter = EXCLUDED.is_starter, on_pitch = EXCLUDED.on_pitch`,
		e.MatchID, e.TeamID, e.PlayerID, e.IsStarter, e.OnPitch)
	if err != nil {
		return fmt.Errorf("upsert lineup entry: %w", err)
	}
	return nil
}

func (r *lineupRepo) SetOnPitch(ctx context.Context, db DBTX, matchID, playerID uuid.UUID, onPitch bool) error {
	tag, err := db.Exec(ctx, `
		UPDATE match_lineups SET on_pitch = $3 WHERE match_id = $1 AND player_id = $2`,
		matchID, playerID, onPitch)
	if err != nil {
		return fmt.Errorf("update lineup entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("lineup entry", playerID.String())
	}
	return nil
}

func (r *lineupRepo) ListByMatch(ctx context.Context, db DBTX, matchID uuid.UUID) ([]domain.LineupEntry, error) {
	rows, err := db.Query(ctx, `
		SELECT match_id, team_id, player_id, is_starter, on_pitch
		FROM match_lineups WHERE match_id = $1
		ORDER BY team_id, is_starter DESC`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list lineup: %w", err)
	}
	defer rows.Close()

	var out []domain.LineupEntry
	for rows.Next() {
		var e domain.LineupEntry
		if err := rows.Scan(&e.MatchID, &e.TeamID, &e.PlayerID, &e.IsStarter, &e.OnPitch); err != nil {
			return nil, fmt.Errorf("scan lineup entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
