package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/futsalhub/platform/internal/domain"
)

type userRepo struct{}

// NewUserRepository returns a pgx-backed UserRepository.
func NewUserRepository() UserRepository {
	return &userRepo{}
}

func (r *userRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := db.QueryRow(ctx, `
		SELECT id, email, role, push_token, language, favorite_team_ids, created_at
		FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Role, &u.PushToken, &u.Language, &u.FavoriteTeamIDs, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, db DBTX, u *domain.User) error {
	teams := u.FavoriteTeamIDs
	if teams == nil {
		teams = []uuid.UUID{}
	}
	_, err := db.Exec(ctx, `
		INSERT INTO users (id, email, role, push_token, language, favorite_team_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.Role, u.PushToken, u.Language, teams, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepo) ListByFavoriteTeams(ctx context.Context, db DBTX, teamIDs []uuid.UUID) ([]domain.Recipient, error) {
	rows, err := db.Query(ctx, `
		SELECT id, push_token, language FROM users
		WHERE push_token IS NOT NULL AND favorite_team_ids && $1::uuid[]
		ORDER BY created_at ASC`, teamIDs)
	if err != nil {
		return nil, fmt.Errorf("list users by favorite teams: %w", err)
	}
	return collectRecipients(rows)
}

func (r *userRepo) ListByFavoriteMatch(ctx context.Context, db DBTX, matchID uuid.UUID) ([]domain.Recipient, error) {
	rows, err := db.Query(ctx, `
		SELECT u.id, u.push_token, u.language
		FROM favorite_matches f
		JOIN users u ON u.id = f.user_id
		WHERE f.match_id = $1 AND u.push_token IS NOT NULL
		ORDER BY u.created_at ASC`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list users by favorite match: %w", err)
	}
	return collectRecipients(rows)
}

func collectRecipients(rows pgx.Rows) ([]domain.Recipient, error) {
	defer rows.Close()
	var out []domain.Recipient
	for rows.Next() {
		var rc domain.Recipient
		if err := rows.Scan(&rc.UserID, &rc.PushToken, &rc.Language); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (r *userRepo) SetPushToken(ctx context.Context, db DBTX, userID uuid.UUID, token *string) error {
	return r.exec(ctx, db, "set push token", `UPDATE users SET push_token = $2 WHERE id = $1`, userID, token)
}

func (r *userRepo) ClearPushToken(ctx context.Context, db DBTX, token string) (int64, error) {
	tag, err := db.Exec(ctx, `UPDATE users SET push_token = NULL WHERE push_token = $1`, token)
	if err != nil {
		return 0, fmt.Errorf("clear push token: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *userRepo) SetLanguage(ctx context.Context, db DBTX, userID uuid.UUID, lang string) error {
	return r.exec(ctx, db, "set language", `UPDATE users SET language = $2 WHERE id = $1`, userID, lang)
}

func (r *userRepo) SetFavoriteTeams(ctx context.Context, db DBTX, userID uuid.UUID, teamIDs []uuid.UUID) error {
	if teamIDs == nil {
		teamIDs = []uuid.UUID{}
	}
	return r.exec(ctx, db, "set favorite teams", `UPDATE users SET favorite_team_ids = $2 WHERE id = $1`, userID, teamIDs)
}

func (r *userRepo) AddFavoriteMatch(ctx context.Context, db DBTX, userID, matchID uuid.UUID) error {
	_, err := db.Exec(ctx, `
		INSERT INTO favorite_matches (user_id, match_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, matchID)
	if err != nil {
		return fmt.Errorf("add favorite match: %w", err)
	}
	return nil
}

func (r *userRepo) RemoveFavoriteMatch(ctx context.Context, db DBTX, userID, matchID uuid.UUID) error {
	_, err := db.Exec(ctx, `DELETE FROM favorite_matches WHERE user_id = $1 AND match_id = $2`, userID, matchID)
	if err != nil {
		return fmt.Errorf("remove favorite match: %w", err)
	}
	return nil
}

func (r *userRepo) exec(ctx context.Context, db DBTX, op, sql string, userID uuid.UUID, arg interface{}) error {
	tag, err := db.Exec(ctx, sql, userID, arg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("user", userID.String())
	}
	return nil
}
