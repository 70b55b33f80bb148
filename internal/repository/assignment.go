package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type assignmentRepo struct{}

// NewAssignmentRepository returns a pgx-backed AssignmentRepository.
func NewAssignmentRepository() AssignmentRepository {
	return &assignmentRepo{}
}

func (r *assignmentRepo) IsAssigned(ctx context.Context, db DBTX, matchID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM match_operators WHERE match_id = $1 AND user_id = $2)`,
		matchID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check operator assignment: %w", err)
	}
	return ok, nil
}

func (r *assignmentRepo) Assign(ctx context.Context, db DBTX, matchID, userID uuid.UUID) error {
	_, err := db.Exec(ctx, `
		INSERT INTO match_operators (match_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, matchID, userID)
	if err != nil {
		return fmt.Errorf("assign operator: %w", err)
	}
	return nil
}

func (r *assignmentRepo) Unassign(ctx context.Context, db DBTX, matchID, userID uuid.UUID) error {
	_, err := db.Exec(ctx, `
		DELETE FROM match_operators WHERE match_id = $1 AND user_id = $2`, matchID, userID)
	if err != nil {
		return fmt.Errorf("unassign operator: %w", err)
	}
	return nil
}
