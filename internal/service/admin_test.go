package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/repository/memstore"
)

func newAdmin(store *memstore.Store) *AdminService {
	return NewAdminService(nil, store, store.Matches(), store.Teams(), store.Lineups(),
		store.Assignments(), store.Users(), testLogger())
}

func TestAdmin_RequiresAdminRole(t *testing.T) {
	store := memstore.New()
	svc := newAdmin(store)
	op := domain.Caller{ID: uuid.New(), Role: domain.RoleOperator}

	_, err := svc.CreateTeam(context.Background(), op, CreateTeamInput{Name: "X", ShortName: "X"})
	assert.Equal(t, "FORBIDDEN", appCode(t, err))
	err = svc.AssignOperator(context.Background(), op, uuid.New(), op.ID)
	assert.Equal(t, "FORBIDDEN", appCode(t, err))
}

func TestAdmin_CreateFixture(t *testing.T) {
	store := memstore.New()
	svc := newAdmin(store)
	ctx := context.Background()
	admin := domain.Caller{ID: uuid.New(), Role: domain.RoleAdmin}

	home, err := svc.CreateTeam(ctx, admin, CreateTeamInput{Name: "Lisboa FC", ShortName: "LIS"})
	require.NoError(t, err)
	away, err := svc.CreateTeam(ctx, admin, CreateTeamInput{Name: "Porto Sala", ShortName: "POR"})
	require.NoError(t, err)

	_, err = svc.CreatePlayer(ctx, admin, CreatePlayerInput{TeamID: uuid.New(), Name: "Ghost", Number: 9})
	assert.Equal(t, "NOT_FOUND", appCode(t, err))

	_, err = svc.CreateMatch(ctx, admin, CreateMatchInput{HomeTeamID: home.ID, AwayTeamID: home.ID, StartTime: time.Now()})
	assert.Equal(t, "VALIDATION_ERROR", appCode(t, err))

	_, err = svc.CreateMatch(ctx, admin, CreateMatchInput{HomeTeamID: home.ID, AwayTeamID: uuid.New(), StartTime: time.Now()})
	assert.Equal(t, "NOT_FOUND", appCode(t, err))

	m, err := svc.CreateMatch(ctx, admin, CreateMatchInput{HomeTeamID: home.ID, AwayTeamID: away.ID, StartTime: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	stored := store.Match(m.ID)
	assert.Equal(t, domain.MatchScheduled, stored.Status)
	assert.Equal(t, 0, stored.CurrentMinute)
}

func TestAdmin_SetLineup(t *testing.T) {
	store := memstore.New()
	svc := newAdmin(store)
	ctx := context.Background()
	admin := domain.Caller{ID: uuid.New(), Role: domain.RoleAdmin}

	home, _ := svc.CreateTeam(ctx, admin, CreateTeamInput{Name: "Lisboa FC", ShortName: "LIS"})
	away, _ := svc.CreateTeam(ctx, admin, CreateTeamInput{Name: "Porto Sala", ShortName: "POR"})
	m, err := svc.CreateMatch(ctx, admin, CreateMatchInput{HomeTeamID: home.ID, AwayTeamID: away.ID, StartTime: time.Now()})
	require.NoError(t, err)

	starter, err := svc.CreatePlayer(ctx, admin, CreatePlayerInput{TeamID: home.ID, Name: "Ricardinho", Number: 10})
	require.NoError(t, err)
	bench, err := svc.CreatePlayer(ctx, admin, CreatePlayerInput{TeamID: home.ID, Name: "Pany", Number: 7})
	require.NoError(t, err)
	rival, err := svc.CreatePlayer(ctx, admin, CreatePlayerInput{TeamID: away.ID, Name: "Tiago", Number: 4})
	require.NoError(t, err)

	_, err = svc.SetLineup(ctx, admin, m.ID, SetLineupInput{TeamID: home.ID, Players: []LineupSlot{{PlayerID: rival.ID}}})
	assert.Equal(t, "VALIDATION_ERROR", appCode(t, err))

	entries, err := svc.SetLineup(ctx, admin, m.ID, SetLineupInput{TeamID: home.ID, Players: []LineupSlot{
		{PlayerID: starter.ID, IsStarter: true},
		{PlayerID: bench.ID},
	}})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	got, err := store.Lineups().Find(ctx, nil, m.ID, starter.ID)
	require.NoError(t, err)
	assert.True(t, got.OnPitch)
	got, err = store.Lineups().Find(ctx, nil, m.ID, bench.ID)
	require.NoError(t, err)
	assert.False(t, got.OnPitch)

	live := store.Match(m.ID)
	live.Status = domain.MatchLive
	_, err = store.Matches().UpdatePhase(ctx, nil, &live)
	require.NoError(t, err)
	_, err = svc.SetLineup(ctx, admin, m.ID, SetLineupInput{TeamID: home.ID, Players: []LineupSlot{{PlayerID: bench.ID, IsStarter: true}}})
	assert.Equal(t, "CONFLICT", appCode(t, err))
}

func TestAdmin_AssignOperator(t *testing.T) {
	e := newEnv(t, domain.MatchLive)
	svc := newAdmin(e.store)
	ctx := context.Background()

	err := svc.AssignOperator(ctx, e.admin, e.match.ID, uuid.New())
	assert.Equal(t, "NOT_FOUND", appCode(t, err))

	newcomer := domain.User{ID: uuid.New(), Email: "op2@example.com", Role: domain.RoleOperator, Language: "en"}
	require.NoError(t, e.store.Users().Create(ctx, nil, &newcomer))
	caller := domain.Caller{ID: newcomer.ID, Role: domain.RoleOperator}

	_, err = e.svc.RecordEvent(ctx, caller, e.match.ID, domain.EventInput{Type: domain.EventFoul, TeamID: &e.home.ID}, "")
	assert.Equal(t, "FORBIDDEN", appCode(t, err))

	require.NoError(t, svc.AssignOperator(ctx, e.admin, e.match.ID, newcomer.ID))
	require.NoError(t, svc.AssignOperator(ctx, e.admin, e.match.ID, newcomer.ID))
	_, err = e.svc.RecordEvent(ctx, caller, e.match.ID, domain.EventInput{Type: domain.EventFoul, TeamID: &e.home.ID}, "")
	require.NoError(t, err)

	require.NoError(t, svc.UnassignOperator(ctx, e.admin, e.match.ID, newcomer.ID))
	_, err = e.svc.RecordEvent(ctx, caller, e.match.ID, domain.EventInput{Type: domain.EventFoul, TeamID: &e.home.ID}, "")
	assert.Equal(t, "FORBIDDEN", appCode(t, err))
}
