package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/repository"
)

// UserService covers a viewer's notification inbox and interest settings.
type UserService struct {
	db            repository.DBTX
	users         repository.UserRepository
	notifications repository.NotificationRepository
	matches       repository.MatchRepository
	teams         repository.TeamRepository
}

// NewUserService creates a UserService.
func NewUserService(
	db repository.DBTX,
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	matches repository.MatchRepository,
	teams repository.TeamRepository,
) *UserService {
	return &UserService{db: db, users: users, notifications: notifications, matches: matches, teams: teams}
}

// Inbox page size bounds.
const (
	DefaultInboxLimit = 50
	MaxInboxLimit     = 200
)

// ListNotifications returns the caller's notifications, newest first.
func (s *UserService) ListNotifications(ctx context.Context, caller domain.Caller, unreadOnly bool, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = DefaultInboxLimit
	}
	if limit > MaxInboxLimit {
		limit = MaxInboxLimit
	}
	list, err := s.notifications.ListForUser(ctx, s.db, caller.ID, unreadOnly, limit)
	if err != nil {
		return nil, domain.ErrInternal("list notifications", err)
	}
	if list == nil {
		list = []domain.Notification{}
	}
	return list, nil
}

// MarkRead marks one of the caller's notifications as read.
func (s *UserService) MarkRead(ctx context.Context, caller domain.Caller, id uuid.UUID) error {
	n, err := s.notifications.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.ErrInternal("find notification", err)
	}
	if n == nil {
		return domain.ErrNotFound("notification", id.String())
	}
	if n.UserID != caller.ID {
		return domain.ErrForbidden("notification belongs to another user")
	}
	if err := s.notifications.MarkRead(ctx, s.db, id); err != nil {
		return mapError("mark notification read", err)
	}
	return nil
}

// SetPushToken registers the caller's device token; nil clears it.
func (s *UserService) SetPushToken(ctx context.Context, caller domain.Caller, token *string) error {
	if token != nil {
		if err := domain.ValidatePushToken(*token); err != nil {
			return domain.ErrValidation(err.Error())
		}
	}
	return mapError("set push token", s.users.SetPushToken(ctx, s.db, caller.ID, token))
}

// SetLanguage stores the caller's notification language.
func (s *UserService) SetLanguage(ctx context.Context, caller domain.Caller, lang string) error {
	if err := domain.ValidateLanguage(lang); err != nil {
		return domain.ErrValidation(err.Error())
	}
	return mapError("set language", s.users.SetLanguage(ctx, s.db, caller.ID, lang))
}

// SetFavoriteTeams replaces the caller's favorite teams.
func (s *UserService) SetFavoriteTeams(ctx context.Context, caller domain.Caller, teamIDs []uuid.UUID) error {
	seen := make(map[uuid.UUID]bool, len(teamIDs))
	unique := make([]uuid.UUID, 0, len(teamIDs))
	for _, id := range teamIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		t, err := s.teams.FindByID(ctx, s.db, id)
		if err != nil {
			return domain.ErrInternal("find team", err)
		}
		if t == nil {
			return domain.ErrNotFound("team", id.String())
		}
		unique = append(unique, id)
	}
	return mapError("set favorite teams", s.users.SetFavoriteTeams(ctx, s.db, caller.ID, unique))
}

// FavoriteMatch subscribes the caller to a match's notifications.
func (s *UserService) FavoriteMatch(ctx context.Context, caller domain.Caller, matchID uuid.UUID) error {
	m, err := s.matches.FindByID(ctx, s.db, matchID)
	if err != nil {
		return domain.ErrInternal("find match", err)
	}
	if m == nil {
		return domain.ErrNotFound("match", matchID.String())
	}
	return mapError("favorite match", s.users.AddFavoriteMatch(ctx, s.db, caller.ID, matchID))
}

// UnfavoriteMatch removes a match favorite.
func (s *UserService) UnfavoriteMatch(ctx context.Context, caller domain.Caller, matchID uuid.UUID) error {
	return mapError("unfavorite match", s.users.RemoveFavoriteMatch(ctx, s.db, caller.ID, matchID))
}
