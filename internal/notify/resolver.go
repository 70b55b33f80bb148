// Package notify resolves who cares about a match and delivers localized
// pushes to them.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/repository"
)

// Resolver computes the interested parties of a match. Results are never
// cached: favorites may change between two occurrences.
type Resolver struct {
	db    repository.DBTX
	users repository.UserRepository
}

// NewResolver creates a resolver reading users through db.
func NewResolver(db repository.DBTX, users repository.UserRepository) *Resolver {
	return &Resolver{db: db, users: users}
}

// Resolve returns the union of users favoriting either team and users
// favoriting the match, restricted to push-enabled users and deduplicated
// by push token.
func (r *Resolver) Resolve(ctx context.Context, m *domain.Match) ([]domain.Recipient, error) {
	byTeam, err := r.users.ListByFavoriteTeams(ctx, r.db, []uuid.UUID{m.HomeTeamID, m.AwayTeamID})
	if err != nil {
		return nil, fmt.Errorf("list team favorites: %w", err)
	}
	byMatch, err := r.users.ListByFavoriteMatch(ctx, r.db, m.ID)
	if err != nil {
		return nil, fmt.Errorf("list match favorites: %w", err)
	}

	seen := make(map[string]struct{}, len(byTeam)+len(byMatch))
	out := make([]domain.Recipient, 0, len(byTeam)+len(byMatch))
	for _, list := range [][]domain.Recipient{byTeam, byMatch} {
		for _, rc := range list {
			if rc.PushToken == "" {
				continue
			}
			if _, dup := seen[rc.PushToken]; dup {
				continue
			}
			seen[rc.PushToken] = struct{}{}
			out = append(out, rc)
		}
	}
	return out, nil
}
