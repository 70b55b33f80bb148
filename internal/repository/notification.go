package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/futsalhub/platform/internal/domain"
)

const notificationColumns = `id, user_id, match_id, kind, title, body, is_read, delivered, created_at`

type notificationRepo struct{}

// NewNotificationRepository returns a pgx-backed NotificationRepository.
func NewNotificationRepository() NotificationRepository {
	return &notificationRepo{}
}

func (r *notificationRepo) Insert(ctx context.Context, db DBTX, n *domain.Notification) error {
	_, err := db.Exec(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.UserID, n.MatchID, string(n.Kind), n.Title, n.Body, n.IsRead, n.Delivered, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *notificationRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Notification, error) {
	n, err := scanNotification(db.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return n, err
}

func (r *notificationRepo) ExistsForMatch(ctx context.Context, db DBTX, matchID uuid.UUID, kind domain.NotificationKind) (bool, error) {
	var ok bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM notifications WHERE match_id = $1 AND kind = $2)`,
		matchID, string(kind)).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check notification existence: %w", err)
	}
	return ok, nil
}

func (r *notificationRepo) ListForUser(ctx context.Context, db DBTX, userID uuid.UUID, unreadOnly bool, limit int) ([]domain.Notification, error) {
	rows, err := db.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR is_read = false)
		ORDER BY created_at DESC
		LIMIT $3`, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (r *notificationRepo) MarkRead(ctx context.Context, db DBTX, id uuid.UUID) error {
	tag, err := db.Exec(ctx, `UPDATE notifications SET is_read = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("notification", id.String())
	}
	return nil
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	if err := row.Scan(&n.ID, &n.UserID, &n.MatchID, &n.Kind, &n.Title, &n.Body, &n.IsRead, &n.Delivered, &n.CreatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}
