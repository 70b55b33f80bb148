package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/repository"
)

type eventRepo struct{ s *Store }

func (r eventRepo) Insert(_ context.Context, _ repository.DBTX, ev *domain.MatchEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("events.insert"); err != nil {
		return err
	}
	r.s.d.events[ev.ID] = *ev
	r.s.d.eventSeq[ev.ID] = r.s.nextSeq()
	return nil
}

func (r eventRepo) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.MatchEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ev, ok := r.s.d.events[id]
	if !ok {
		return nil, nil
	}
	return &ev, nil
}

func (r eventRepo) Delete(_ context.Context, _ repository.DBTX, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("events.delete"); err != nil {
		return err
	}
	if _, ok := r.s.d.events[id]; !ok {
		return domain.ErrNotFound("event", id.String())
	}
	delete(r.s.d.events, id)
	delete(r.s.d.eventSeq, id)
	return nil
}

func (r eventRepo) ListByMatch(_ context.Context, _ repository.DBTX, matchID uuid.UUID) ([]domain.MatchEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.MatchEvent
	for _, ev := range r.s.d.events {
		if ev.MatchID == matchID {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.s.d.eventSeq[out[i].ID] < r.s.d.eventSeq[out[j].ID] })
	return out, nil
}

type teamRepo struct{ s *Store }

func (r teamRepo) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.d.teams[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r teamRepo) Create(_ context.Context, _ repository.DBTX, t *domain.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.d.teams[t.ID] = *t
	return nil
}

func (r teamRepo) ApplyResult(_ context.Context, _ repository.DBTX, res domain.TeamResult) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("teams.apply_result"); err != nil {
		return err
	}
	t, ok := r.s.d.teams[res.TeamID]
	if !ok {
		return domain.ErrNotFound("team", res.TeamID.String())
	}
	t.Played++
	t.Won += res.Won
	t.Drawn += res.Drawn
	t.Lost += res.Lost
	t.GoalsFor += res.GoalsFor
	t.GoalsAgainst += res.GoalsAgainst
	r.s.d.teams[t.ID] = t
	return nil
}

func (r teamRepo) FindPlayer(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.d.players[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r teamRepo) CreatePlayer(_ context.Context, _ repository.DBTX, p *domain.Player) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.d.players[p.ID] = *p
	return nil
}

type lineupRepo struct{ s *Store }

func (r lineupRepo) Find(_ context.Context, _ repository.DBTX, matchID, playerID uuid.UUID) (*domain.LineupEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.d.lineups[pair{matchID, playerID}]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r lineupRepo) Upsert(_ context.Context, _ repository.DBTX, e *domain.LineupEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.d.lineups[pair{e.MatchID, e.PlayerID}] = *e
	return nil
}

func (r lineupRepo) SetOnPitch(_ context.Context, _ repository.DBTX, matchID, playerID uuid.UUID, onPitch bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("lineups.set_on_pitch"); err != nil {
		return err
	}
	k := pair{matchID, playerID}
	e, ok := r.s.d.lineups[k]
	if !ok {
		return domain.ErrNotFound("lineup entry", playerID.String())
	}
	e.OnPitch = onPitch
	r.s.d.lineups[k] = e
	return nil
}

func (r lineupRepo) ListByMatch(_ context.Context, _ repository.DBTX, matchID uuid.UUID) ([]domain.LineupEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.LineupEntry
	for k, e := range r.s.d.lineups {
		if k[0] == matchID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID.String() < out[j].PlayerID.String() })
	return out, nil
}

type assignmentRepo struct{ s *Store }

func (r assignmentRepo) IsAssigned(_ context.Context, _ repository.DBTX, matchID, userID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.d.operators[pair{matchID, userID}], nil
}

func (r assignmentRepo) Assign(_ context.Context, _ repository.DBTX, matchID, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.d.operators[pair{matchID, userID}] = true
	return nil
}

func (r assignmentRepo) Unassign(_ context.Context, _ repository.DBTX, matchID, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.d.operators, pair{matchID, userID})
	return nil
}

type outboxRepo struct{ s *Store }

func (r outboxRepo) Insert(_ context.Context, _ repository.DBTX, draft domain.OutboxDraft) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("outbox.insert"); err != nil {
		return err
	}
	r.s.d.outbox = append(r.s.d.outbox, repository.OutboxRow{SeqID: r.s.nextSeq(), OutboxDraft: draft})
	return nil
}

func (r outboxRepo) FetchUnpublished(_ context.Context, _ repository.DBTX, limit int) ([]repository.OutboxRow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("outbox.fetch"); err != nil {
		return nil, err
	}
	var out []repository.OutboxRow
	for _, row := range r.s.d.outbox {
		if len(out) == limit {
			break
		}
		if !r.s.d.published[row.SeqID] {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r outboxRepo) MarkPublished(_ context.Context, _ repository.DBTX, ids []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		r.s.d.published[id] = true
	}
	return nil
}
