package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/futsalhub/platform/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Transactor runs fn inside a single database transaction. fn's error rolls
// the transaction back; a nil return commits.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx DBTX) error) error
}

// ScoreDelta is the server-side increment applied to a match's score.
type ScoreDelta struct {
	Home int
	Away int
}

// IsZero reports whether the delta leaves the score unchanged.
func (d ScoreDelta) IsZero() bool { return d.Home == 0 && d.Away == 0 }

// MatchRepository provides access to matches.
type MatchRepository interface {
	// FindByID returns a match by ID, or nil if none exists.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Match, error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) and returns the match.
	LockForUpdate(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Match, error)

	// Create inserts a new match.
	Create(ctx context.Context, db DBTX, m *domain.Match) error

	// UpdatePhase writes status, minute cache and clock anchors.
	UpdatePhase(ctx context.Context, db DBTX, m *domain.Match) (*domain.Match, error)

	// ApplyScoreDelta increments the score with server-side arithmetic and
	// refreshes the minute cache. Returns the updated row.
	ApplyScoreDelta(ctx context.Context, db DBTX, id uuid.UUID, delta ScoreDelta, minute int) (*domain.Match, error)

	// ListByStatus returns matches in any of the given statuses.
	ListByStatus(ctx context.Context, db DBTX, statuses []domain.MatchStatus) ([]domain.Match, error)

	// ListScheduledBetween returns scheduled matches starting in (from, to].
	ListScheduledBetween(ctx context.Context, db DBTX, from, to time.Time) ([]domain.Match, error)
}

// EventRepository provides access to the match_events ledger.
type EventRepository interface {
	Insert(ctx context.Context, db DBTX, ev *domain.MatchEvent) error
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.MatchEvent, error)
	Delete(ctx context.Context, db DBTX, id uuid.UUID) error

	// ListByMatch returns a match's ledger in commit order.
	ListByMatch(ctx context.Context, db DBTX, matchID uuid.UUID) ([]domain.MatchEvent, error)
}

// TeamRepository provides access to teams and their players.
type TeamRepository interface {
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Team, error)
	Create(ctx context.Context, db DBTX, t *domain.Team) error

	// ApplyResult adds one finished match to the team's aggregates.
	ApplyResult(ctx context.Context, db DBTX, r domain.TeamResult) error

	FindPlayer(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Player, error)
	CreatePlayer(ctx context.Context, db DBTX, p *domain.Player) error
}

// LineupRepository provides access to match_lineups.
type LineupRepository interface {
	Find(ctx context.Context, db DBTX, matchID, playerID uuid.UUID) (*domain.LineupEntry, error)
	Upsert(ctx context.Context, db DBTX, e *domain.LineupEntry) error
	SetOnPitch(ctx context.Context, db DBTX, matchID, playerID uuid.UUID, onPitch bool) error
	ListByMatch(ctx context.Context, db DBTX, matchID uuid.UUID) ([]domain.LineupEntry, error)
}

// AssignmentRepository provides access to match_operators.
type AssignmentRepository interface {
	IsAssigned(ctx context.Context, db DBTX, matchID, userID uuid.UUID) (bool, error)
	Assign(ctx context.Context, db DBTX, matchID, userID uuid.UUID) error
	Unassign(ctx context.Context, db DBTX, matchID, userID uuid.UUID) error
}

// UserRepository provides access to the notification-relevant user columns.
type UserRepository interface {
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.User, error)
	Create(ctx context.Context, db DBTX, u *domain.User) error

	// ListByFavoriteTeams returns push-enabled users favoriting any of teamIDs.
	ListByFavoriteTeams(ctx context.Context, db DBTX, teamIDs []uuid.UUID) ([]domain.Recipient, error)

	// ListByFavoriteMatch returns push-enabled users who favorited the match.
	ListByFavoriteMatch(ctx context.Context, db DBTX, matchID uuid.UUID) ([]domain.Recipient, error)

	SetPushToken(ctx context.Context, db DBTX, userID uuid.UUID, token *string) error

	// ClearPushToken nulls the token on every user holding it.
	ClearPushToken(ctx context.Context, db DBTX, token string) (int64, error)

	SetLanguage(ctx context.Context, db DBTX, userID uuid.UUID, lang string) error
	SetFavoriteTeams(ctx context.Context, db DBTX, userID uuid.UUID, teamIDs []uuid.UUID) error
	AddFavoriteMatch(ctx context.Context, db DBTX, userID, matchID uuid.UUID) error
	RemoveFavoriteMatch(ctx context.Context, db DBTX, userID, matchID uuid.UUID) error
}

// NotificationRepository provides access to notifications.
type NotificationRepository interface {
	Insert(ctx context.Context, db DBTX, n *domain.Notification) error
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Notification, error)

	// ExistsForMatch reports whether any notification of kind was recorded for the match.
	ExistsForMatch(ctx context.Context, db DBTX, matchID uuid.UUID, kind domain.NotificationKind) (bool, error)

	// ListForUser returns a user's notifications, newest first.
	ListForUser(ctx context.Context, db DBTX, userID uuid.UUID, unreadOnly bool, limit int) ([]domain.Notification, error)

	MarkRead(ctx context.Context, db DBTX, id uuid.UUID) error
}

// OutboxRow is an unpublished outbox event with its sequence id.
type OutboxRow struct {
	SeqID int64
	domain.OutboxDraft
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the ledger entry).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error

	// FetchUnpublished returns unpublished events in sequence order.
	FetchUnpublished(ctx context.Context, db DBTX, limit int) ([]OutboxRow, error)

	// MarkPublished stamps publishedAt on the given sequence ids.
	MarkPublished(ctx context.Context, db DBTX, ids []int64) error
}
