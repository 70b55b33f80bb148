package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/futsalhub/platform/internal/domain"
)

const matchColumns = `id, home_team_id, away_team_id, home_score, away_score, status, current_minute,
	live_started_at, second_half_started_at, extra_time_base, extra_time_started_at,
	start_time, venue, created_at, updated_at`

type matchRepo struct{}

// NewMatchRepository returns a pgx-backed MatchRepository.
func NewMatchRepository() MatchRepository {
	return &matchRepo{}
}

func (r *matchRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Match, error) {
	row := db.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	return scanMatch(row)
}

func (r *matchRepo) LockForUpdate(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Match, error) {
	row := db.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, id)
	m, err := scanMatch(row)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
		return nil, domain.ErrConflict("match is busy with another write, retry")
	}
	return m, err
}

func (r *matchRepo) Create(ctx context.Context, db DBTX, m *domain.Match) error {
	_, err := db.Exec(ctx, `
		INSERT INTO matches (id, home_team_id, away_team_id, home_score, away_score, status,
		                     current_minute, start_time, venue, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.ID, m.HomeTeamID, m.AwayTeamID, m.HomeScore, m.AwayScore, string(m.Status),
		m.CurrentMinute, m.StartTime, m.Venue, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

func (r *matchRepo) UpdatePhase(ctx context.Context, db DBTX, m *domain.Match) (*domain.Match, error) {
	row := db.QueryRow(ctx, `
		UPDATE matches SET
		  status = $2, current_minute = $3, live_started_at = $4, second_half_started_at = $5,
		  extra_time_base = $6, extra_time_started_at = $7, updated_at = $8
		WHERE id = $1
		RETURNING `+matchColumns,
		m.ID, string(m.Status), m.CurrentMinute, m.LiveStartedAt, m.SecondHalfStartedAt,
		m.ExtraTimeBase, m.ExtraTimeStartedAt, m.UpdatedAt,
	)
	return scanMatch(row)
}

func (r *matchRepo) ApplyScoreDelta(ctx context.Context, db DBTX, id uuid.UUID, delta ScoreDelta, minute int) (*domain.Match, error) {
	row := db.QueryRow(ctx, `
		UPDATE matches SET
		  home_score = home_score + $2,
		  away_score = away_score + $3,
		  current_minute = $4,
		  updated_at = now()
		WHERE id = $1
		RETURNING `+matchColumns,
		id, delta.Home, delta.Away, minute,
	)
	return scanMatch(row)
}

func (r *matchRepo) ListByStatus(ctx context.Context, db DBTX, statuses []domain.MatchStatus) ([]domain.Match, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	rows, err := db.Query(ctx, `
		SELECT `+matchColumns+` FROM matches
		WHERE status = ANY($1)
		ORDER BY start_time ASC`, names)
	if err != nil {
		return nil, fmt.Errorf("list matches by status: %w", err)
	}
	return collectMatches(rows)
}

func (r *matchRepo) ListScheduledBetween(ctx context.Context, db DBTX, from, to time.Time) ([]domain.Match, error) {
	rows, err := db.Query(ctx, `
		SELECT `+matchColumns+` FROM matches
		WHERE status = 'scheduled' AND start_time > $1 AND start_time <= $2
		ORDER BY start_time ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list scheduled matches: %w", err)
	}
	return collectMatches(rows)
}

// pgLockNotAvailable is raised when lock_timeout expires.
const pgLockNotAvailable = "55P03"

func collectMatches(rows pgx.Rows) ([]domain.Match, error) {
	defer rows.Close()
	var out []domain.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func scanMatch(row pgx.Row) (*domain.Match, error) {
	var m domain.Match
	err := row.Scan(&m.ID, &m.HomeTeamID, &m.AwayTeamID, &m.HomeScore, &m.AwayScore, &m.Status,
		&m.CurrentMinute, &m.LiveStartedAt, &m.SecondHalfStartedAt, &m.ExtraTimeBase,
		&m.ExtraTimeStartedAt, &m.StartTime, &m.Venue, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan match: %w", err)
	}
	return &m, nil
}
