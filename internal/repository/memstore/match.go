package memstore

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/repository"
)

type matchRepo struct{ s *Store }

func (r matchRepo) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("matches.find"); err != nil {
		return nil, err
	}
	m, ok := r.s.d.matches[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r matchRepo) LockForUpdate(ctx context.Context, db repository.DBTX, id uuid.UUID) (*domain.Match, error) {
	return r.FindByID(ctx, db, id)
}

func (r matchRepo) Create(_ context.Context, _ repository.DBTX, m *domain.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.s.now()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	r.s.d.matches[m.ID] = *m
	return nil
}

func (r matchRepo) UpdatePhase(_ context.Context, _ repository.DBTX, m *domain.Match) (*domain.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("matches.update_phase"); err != nil {
		return nil, err
	}
	cur, ok := r.s.d.matches[m.ID]
	if !ok {
		return nil, nil
	}
	cur.Status = m.Status
	cur.CurrentMinute = m.CurrentMinute
	cur.LiveStartedAt = m.LiveStartedAt
	cur.SecondHalfStartedAt = m.SecondHalfStartedAt
	cur.ExtraTimeBase = m.ExtraTimeBase
	cur.ExtraTimeStartedAt = m.ExtraTimeStartedAt
	cur.UpdatedAt = m.UpdatedAt
	r.s.d.matches[m.ID] = cur
	return &cur, nil
}

func (r matchRepo) ApplyScoreDelta(_ context.Context, _ repository.DBTX, id uuid.UUID, delta repository.ScoreDelta, minute int) (*domain.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("matches.apply_score"); err != nil {
		return nil, err
	}
	cur, ok := r.s.d.matches[id]
	if !ok {
		return nil, nil
	}
	cur.HomeScore += delta.Home
	cur.AwayScore += delta.Away
	cur.CurrentMinute = minute
	cur.UpdatedAt = r.s.now()
	r.s.d.matches[id] = cur
	return &cur, nil
}

func (r matchRepo) ListByStatus(_ context.Context, _ repository.DBTX, statuses []domain.MatchStatus) ([]domain.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("matches.list"); err != nil {
		return nil, err
	}
	var out []domain.Match
	for _, m := range r.s.d.matches {
		if slices.Contains(statuses, m.Status) {
			out = append(out, m)
		}
	}
	sortByStart(out)
	return out, nil
}

func (r matchRepo) ListScheduledBetween(_ context.Context, _ repository.DBTX, from, to time.Time) ([]domain.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("matches.list"); err != nil {
		return nil, err
	}
	var out []domain.Match
	for _, m := range r.s.d.matches {
		if m.Status == domain.MatchScheduled && m.StartTime.After(from) && !m.StartTime.After(to) {
			out = append(out, m)
		}
	}
	sortByStart(out)
	return out, nil
}

func sortByStart(ms []domain.Match) {
	sort.Slice(ms, func(i, j int) bool { return ms[i].StartTime.Before(ms[j].StartTime) })
}
