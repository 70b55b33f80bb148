package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futsalhub/platform/internal/domain"
)

func newUserEnv(t *testing.T) (*env, *UserService, domain.Caller) {
	t.Helper()
	e := newEnv(t, domain.MatchLive)
	u := domain.User{ID: uuid.New(), Email: "fan@example.com", Role: domain.RoleViewer, Language: "en"}
	require.NoError(t, e.store.Users().Create(context.Background(), nil, &u))
	svc := NewUserService(nil, e.store.Users(), e.store.Notifications(), e.store.Matches(), e.store.Teams())
	return e, svc, domain.Caller{ID: u.ID, Role: domain.RoleViewer}
}

func TestUser_Inbox(t *testing.T) {
	e, svc, caller := newUserEnv(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := range 3 {
		n := domain.Notification{
			ID: uuid.New(), UserID: caller.ID, MatchID: e.match.ID, Kind: domain.NotifyGoal,
			Title: "GOAL!", Delivered: true, CreatedAt: e.now.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, e.store.Notifications().Insert(ctx, nil, &n))
		ids = append(ids, n.ID)
	}
	other := domain.Notification{ID: uuid.New(), UserID: uuid.New(), MatchID: e.match.ID, Kind: domain.NotifyGoal}
	require.NoError(t, e.store.Notifications().Insert(ctx, nil, &other))

	list, err := svc.ListNotifications(ctx, caller, false, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID)

	assert.Equal(t, "FORBIDDEN", appCode(t, svc.MarkRead(ctx, caller, other.ID)))
	assert.Equal(t, "NOT_FOUND", appCode(t, svc.MarkRead(ctx, caller, uuid.New())))
	require.NoError(t, svc.MarkRead(ctx, caller, ids[1]))

	unread, err := svc.ListNotifications(ctx, caller, true, 10)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	limited, err := svc.ListNotifications(ctx, caller, false, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestUser_EmptyInboxIsNotNil(t *testing.T) {
	_, svc, caller := newUserEnv(t)
	list, err := svc.ListNotifications(context.Background(), caller, false, 20)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestUser_Preferences(t *testing.T) {
	e, svc, caller := newUserEnv(t)
	ctx := context.Background()

	bad := "short"
	assert.Equal(t, "VALIDATION_ERROR", appCode(t, svc.SetPushToken(ctx, caller, &bad)))
	token := "ExponentPushToken[abcdefghijklmnop]"
	require.NoError(t, svc.SetPushToken(ctx, caller, &token))
	assert.Equal(t, token, *e.store.User(caller.ID).PushToken)

	assert.Equal(t, "VALIDATION_ERROR", appCode(t, svc.SetLanguage(ctx, caller, "english")))
	require.NoError(t, svc.SetLanguage(ctx, caller, "pt"))
	assert.Equal(t, "pt", e.store.User(caller.ID).Language)

	assert.Equal(t, "NOT_FOUND", appCode(t, svc.SetFavoriteTeams(ctx, caller, []uuid.UUID{uuid.New()})))
	require.NoError(t, svc.SetFavoriteTeams(ctx, caller, []uuid.UUID{e.home.ID, e.home.ID}))
	assert.Equal(t, []uuid.UUID{e.home.ID}, e.store.User(caller.ID).FavoriteTeamIDs)

	require.NoError(t, svc.SetPushToken(ctx, caller, nil))
	assert.Nil(t, e.store.User(caller.ID).PushToken)

	ghost := domain.Caller{ID: uuid.New(), Role: domain.RoleViewer}
	assert.Equal(t, "NOT_FOUND", appCode(t, svc.SetLanguage(ctx, ghost, "es")))
}

func TestUser_FavoriteMatch(t *testing.T) {
	e, svc, caller := newUserEnv(t)
	ctx := context.Background()
	token := "ExponentPushToken[abcdefghijklmnop]"
	require.NoError(t, svc.SetPushToken(ctx, caller, &token))

	assert.Equal(t, "NOT_FOUND", appCode(t, svc.FavoriteMatch(ctx, caller, uuid.New())))
	require.NoError(t, svc.FavoriteMatch(ctx, caller, e.match.ID))

	recips, err := e.store.Users().ListByFavoriteMatch(ctx, nil, e.match.ID)
	require.NoError(t, err)
	require.Len(t, recips, 1)
	assert.Equal(t, caller.ID, recips[0].UserID)

	require.NoError(t, svc.UnfavoriteMatch(ctx, caller, e.match.ID))
	recips, err = e.store.Users().ListByFavoriteMatch(ctx, nil, e.match.ID)
	require.NoError(t, err)
	assert.Empty(t, recips)
}
