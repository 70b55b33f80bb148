package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/futsalhub/platform/internal/domain"
)

const eventColumns = `id, match_id, type, minute, extra_time, team_id, player_id, secondary_player_id,
	position_x, position_y, detail, scored_side, created_by_id, created_at`

type eventRepo struct{}

// NewEventRepository returns a pgx-backed EventRepository.
func NewEventRepository() EventRepository {
	return &eventRepo{}
}

func (r *eventRepo) Insert(ctx context.Context, db DBTX, ev *domain.MatchEvent) error {
	var x, y *float64
	if ev.Position != nil {
		x, y = &ev.Position.X, &ev.Position.Y
	}
	_, err := db.Exec(ctx, `
		INSERT INTO match_events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		ev.ID, ev.MatchID, string(ev.Type), ev.Minute, ev.ExtraTime, ev.TeamID, ev.PlayerID,
		ev.SecondaryPlayerID, x, y, ev.Detail, string(ev.ScoredSide), ev.CreatedByID, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert match event: %w", err)
	}
	return nil
}

func (r *eventRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.MatchEvent, error) {
	row := db.QueryRow(ctx, `SELECT `+eventColumns+` FROM match_events WHERE id = $1`, id)
	return scanEvent(row)
}

func (r *eventRepo) Delete(ctx context.Context, db DBTX, id uuid.UUID) error {
	tag, err := db.Exec(ctx, `DELETE FROM match_events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete match event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("event", id.String())
	}
	return nil
}

func (r *eventRepo) ListByMatch(ctx context.Context, db DBTX, matchID uuid.UUID) ([]domain.MatchEvent, error) {
	rows, err := db.Query(ctx, `
		SELECT `+eventColumns+` FROM match_events
		WHERE match_id = $1
		ORDER BY seq ASC`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list match events: %w", err)
	}
	defer rows.Close()

	var out []domain.MatchEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, rows.Err()
}

func scanEvent(row pgx.Row) (*domain.MatchEvent, error) {
	var ev domain.MatchEvent
	var x, y *float64
	err := row.Scan(&ev.ID, &ev.MatchID, &ev.Type, &ev.Minute, &ev.ExtraTime, &ev.TeamID,
		&ev.PlayerID, &ev.SecondaryPlayerID, &x, &y, &ev.Detail, &ev.ScoredSide,
		&ev.CreatedByID, &ev.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan match event: %w", err)
	}
	if x != nil && y != nil {
		ev.Position = &domain.FieldPosition{X: *x, Y: *y}
	}
	return &ev, nil
}
