//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/test/integration/testutil"
)

func TestSecurity_RealmAndRoleBoundaries(t *testing.T) {
	f := newFixture(t)
	fan := f.env.SeedUser(domain.RoleViewer, "en", nil)
	fanToken := f.env.UserToken(fan.ID)
	stranger, _ := f.env.StaffToken(domain.RoleOperator)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		status int
		code   string
	}{
		{"operator route without token", http.MethodPost, f.path("/transitions"), "", map[string]string{"action": "start"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"operator route with user realm", http.MethodPost, f.path("/transitions"), fanToken, map[string]string{"action": "start"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unassigned operator", http.MethodPost, f.path("/transitions"), stranger, map[string]string{"action": "start"}, http.StatusForbidden, "FORBIDDEN"},
		{"operator on admin route", http.MethodPost, "/admin/teams", f.operator, map[string]string{"name": "X", "short_name": "X"}, http.StatusForbidden, "FORBIDDEN"},
		{"staff on inbox", http.MethodGet, "/me/notifications", f.admin, nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage token", http.MethodGet, "/me/notifications", "not-a-jwt", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var resp *http.Response
			switch tc.method {
			case http.MethodGet:
				resp = f.env.AuthGET(tc.path, tc.token)
			default:
				resp = f.env.AuthPOST(tc.path, tc.body, tc.token)
			}
			testutil.AssertStatus(t, resp, tc.status)
			testutil.AssertErrorCode(t, resp, tc.code)
		})
	}

	testutil.AssertScore(t, f.env, f.match, 0, 0)
}

func TestSecurity_PublicReadsNeedNoToken(t *testing.T) {
	f := newFixture(t)

	for _, suffix := range []string{"/live", "/minute", "/possession"} {
		resp := f.env.GET("/matches/" + f.match.String() + suffix)
		testutil.AssertStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}

	resp := f.env.GET("/matches/not-a-uuid/live")
	testutil.AssertStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestSecurity_CORSPreflight(t *testing.T) {
	env := testutil.NewTestEnv(t)

	resp := env.OPTIONS("/operator/matches/x/events", "https://app.futsal.test", http.MethodPost)
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("expected Access-Control-Allow-Origin on preflight")
	}
}
