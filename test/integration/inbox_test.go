//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/test/integration/testutil"
)

func TestInbox_GoalReachesFavoritingFans(t *testing.T) {
	f := newFixture(t)
	push := "ExponentPushToken[integration-device-01]"
	teamFan := f.env.SeedUser(domain.RoleViewer, "es", &push)
	push2 := "ExponentPushToken[integration-device-02]"
	matchFan := f.env.SeedUser(domain.RoleViewer, "en", &push2)
	bystander := f.env.SeedUser(domain.RoleViewer, "en", nil)

	resp := f.env.AuthPUT("/me/favorites/teams", map[string][]uuid.UUID{"team_ids": {f.home}}, f.env.UserToken(teamFan.ID))
	testutil.AssertStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()
	resp = f.env.AuthPUT("/me/favorites/matches/"+f.match.String(), nil, f.env.UserToken(matchFan.ID))
	testutil.AssertStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	f.start(t)
	f.env.RecordGoal(f.operator, f.match, f.home)
	f.env.Core.Dispatcher.Wait()

	if n := testutil.CountNotifications(t, f.env, bystander.ID); n != 0 {
		t.Errorf("bystander: expected 0 notifications, got %d", n)
	}

	resp = f.env.AuthGET("/me/notifications", f.env.UserToken(teamFan.ID))
	testutil.AssertStatus(t, resp, http.StatusOK)
	var inbox []domain.Notification
	testutil.DecodeJSON(t, resp, &inbox)
	if len(inbox) == 0 {
		t.Fatal("team fan: expected notifications")
	}
	var goal *domain.Notification
	for i := range inbox {
		if inbox[i].Kind == domain.NotifyGoal {
			goal = &inbox[i]
		}
	}
	if goal == nil {
		t.Fatal("team fan: expected a goal notification")
	}
	if !goal.Delivered {
		t.Error("expected goal push to be delivered")
	}

	resp = f.env.AuthPOST("/me/notifications/"+goal.ID.String()+"/read", nil, f.env.UserToken(matchFan.ID))
	testutil.AssertStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = f.env.AuthPOST("/me/notifications/"+goal.ID.String()+"/read", nil, f.env.UserToken(teamFan.ID))
	testutil.AssertStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	resp = f.env.AuthGET("/me/notifications?unread=true", f.env.UserToken(teamFan.ID))
	var unread []domain.Notification
	testutil.DecodeJSON(t, resp, &unread)
	for _, n := range unread {
		if n.ID == goal.ID {
			t.Error("read notification still listed as unread")
		}
	}

	if n := testutil.CountNotifications(t, f.env, matchFan.ID); n == 0 {
		t.Error("match fan: expected notifications")
	}
}

func TestInbox_PreferenceValidation(t *testing.T) {
	env := testutil.NewTestEnv(t)
	fan := env.SeedUser(domain.RoleViewer, "en", nil)
	token := env.UserToken(fan.ID)

	resp := env.AuthPUT("/me/language", map[string]string{"language": "english"}, token)
	testutil.AssertStatus(t, resp, http.StatusBadRequest)
	testutil.AssertErrorCode(t, resp, "VALIDATION_ERROR")

	resp = env.AuthPUT("/me/favorites/teams", map[string][]uuid.UUID{"team_ids": {uuid.New()}}, token)
	testutil.AssertStatus(t, resp, http.StatusNotFound)
	testutil.AssertErrorCode(t, resp, "NOT_FOUND")

	resp = env.AuthPUT("/me/push-token", map[string]string{"token": "bogus"}, token)
	testutil.AssertStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}
