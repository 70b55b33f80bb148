package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/futsalhub/platform/internal/domain"
)

type teamRepo struct{}

// NewTeamRepository returns a pgx-backed TeamRepository.
func NewTeamRepository() TeamRepository {
	return &teamRepo{}
}

func (r *teamRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Team, error) {
	var t domain.Team
	err := db.QueryRow(ctx, `
		SELECT id, name, short_name, logo_url, played, won, drawn, lost, goals_for, goals_against, created_at
		FROM teams WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.ShortName, &t.LogoURL, &t.Played, &t.Won, &t.Drawn, &t.Lost,
			&t.GoalsFor, &t.GoalsAgainst, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan team: %w", err)
	}
	return &t, nil
}

func (r *teamRepo) Create(ctx context.Context, db DBTX, t *domain.Team) error {
	_, err := db.Exec(ctx, `
		INSERT INTO teams (id, name, short_name, logo_url, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.Name, t.ShortName, t.LogoURL, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert team: %w", err)
	}
	return nil
}

// ApplyResult uses server-side arithmetic so concurrent finishes of different
// matches for the same team cannot lose an update.
func (r *teamRepo) ApplyResult(ctx context.Context, db DBTX, res domain.TeamResult) error {
	tag, err := db.Exec(ctx, `
		UPDATE teams SET
		  played = played + 1,
		  won = won + $2,
		  drawn = drawn + $3,
		  lost = lost + $4,
		  goals_for = goals_for + $5,
		  goals_against = goals_against + $6
		WHERE id = $1`,
		res.TeamID, res.Won, res.Drawn, res.Lost, res.GoalsFor, res.GoalsAgainst)
	if err != nil {
		return fmt.Errorf("apply team result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("team", res.TeamID.String())
	}
	return nil
}

func (r *teamRepo) FindPlayer(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Player, error) {
	var p domain.Player
	err := db.QueryRow(ctx, `
		SELECT id, team_id, name, number, position FROM players WHERE id = $1`, id).
		Scan(&p.ID, &p.TeamID, &p.Name, &p.Number, &p.Position)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan player: %w", err)
	}
	return &p, nil
}

func (r *teamRepo) CreatePlayer(ctx context.Context, db DBTX, p *domain.Player) error {
	_, err := db.Exec(ctx, `
		INSERT INTO players (id, team_id, name, number, position)
		VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.TeamID, p.Name, p.Number, p.Position)
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}
