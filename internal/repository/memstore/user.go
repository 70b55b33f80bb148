package memstore

import (
	"context"
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/repository"
)

type userRepo struct{ s *Store }

func (r userRepo) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.d.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r userRepo) Create(_ context.Context, _ repository.DBTX, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.s.now()
	}
	r.s.d.users[u.ID] = *u
	return nil
}

func (r userRepo) ListByFavoriteTeams(_ context.Context, _ repository.DBTX, teamIDs []uuid.UUID) ([]domain.Recipient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("users.list"); err != nil {
		return nil, err
	}
	return r.collect(func(u domain.User) bool {
		for _, t := range u.FavoriteTeamIDs {
			if slices.Contains(teamIDs, t) {
				return true
			}
		}
		return false
	}), nil
}

func (r userRepo) ListByFavoriteMatch(_ context.Context, _ repository.DBTX, matchID uuid.UUID) ([]domain.Recipient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("users.list"); err != nil {
		return nil, err
	}
	return r.collect(func(u domain.User) bool {
		return r.s.d.favMatches[pair{u.ID, matchID}]
	}), nil
}

func (r userRepo) collect(keep func(domain.User) bool) []domain.Recipient {
	users := make([]domain.User, 0, len(r.s.d.users))
	for _, u := range r.s.d.users {
		if u.PushToken != nil && keep(u) {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })

	out := make([]domain.Recipient, 0, len(users))
	for _, u := range users {
		out = append(out, domain.Recipient{UserID: u.ID, PushToken: *u.PushToken, Language: u.Language})
	}
	return out
}

func (r userRepo) SetPushToken(_ context.Context, _ repository.DBTX, userID uuid.UUID, token *string) error {
	return r.update(userID, func(u *domain.User) { u.PushToken = token })
}

func (r userRepo) ClearPushToken(_ context.Context, _ repository.DBTX, token string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, u := range r.s.d.users {
		if u.PushToken != nil && *u.PushToken == token {
			u.PushToken = nil
			r.s.d.users[id] = u
			n++
		}
	}
	return n, nil
}

func (r userRepo) SetLanguage(_ context.Context, _ repository.DBTX, userID uuid.UUID, lang string) error {
	return r.update(userID, func(u *domain.User) { u.Language = lang })
}

func (r userRepo) SetFavoriteTeams(_ context.Context, _ repository.DBTX, userID uuid.UUID, teamIDs []uuid.UUID) error {
	return r.update(userID, func(u *domain.User) { u.FavoriteTeamIDs = slices.Clone(teamIDs) })
}

func (r userRepo) AddFavoriteMatch(_ context.Context, _ repository.DBTX, userID, matchID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.d.favMatches[pair{userID, matchID}] = true
	return nil
}

func (r userRepo) RemoveFavoriteMatch(_ context.Context, _ repository.DBTX, userID, matchID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.d.favMatches, pair{userID, matchID})
	return nil
}

func (r userRepo) update(id uuid.UUID, fn func(*domain.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.d.users[id]
	if !ok {
		return domain.ErrNotFound("user", id.String())
	}
	fn(&u)
	r.s.d.users[id] = u
	return nil
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Insert(ctx context.Context, _ repository.DBTX, n *domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("notifications.insert"); err != nil {
		return err
	}
	r.s.d.notifications[n.ID] = *n
	r.s.d.notifSeq[n.ID] = r.s.nextSeq()
	return nil
}

func (r notificationRepo) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.d.notifications[id]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (r notificationRepo) ExistsForMatch(_ context.Context, _ repository.DBTX, matchID uuid.UUID, kind domain.NotificationKind) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("notifications.exists"); err != nil {
		return false, err
	}
	for _, n := range r.s.d.notifications {
		if n.MatchID == matchID && n.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

func (r notificationRepo) ListForUser(_ context.Context, _ repository.DBTX, userID uuid.UUID, unreadOnly bool, limit int) ([]domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Notification
	for _, n := range r.s.d.notifications {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.s.d.notifSeq[out[i].ID] > r.s.d.notifSeq[out[j].ID] })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r notificationRepo) MarkRead(_ context.Context, _ repository.DBTX, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.d.notifications[id]
	if !ok {
		return domain.ErrNotFound("notification", id.String())
	}
	n.IsRead = true
	r.s.d.notifications[id] = n
	return nil
}
