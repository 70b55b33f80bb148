//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/futsalhub/platform/internal/auth"
	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/repository"
)

// StaffToken seeds a staff user with the given role and mints a staff-realm token for it.
func (env *TestEnv) StaffToken(role domain.Role) (token string, staffID uuid.UUID) {
	env.t.Helper()
	u := env.SeedUser(role, "en", nil)
	token, err := env.JWTMgr.GenerateToken(auth.RealmStaff, u.ID, u.Email, role)
	if err != nil {
		env.t.Fatalf("StaffToken: %v", err)
	}
	return token, u.ID
}

// UserToken mints a user-realm token for userID.
func (env *TestEnv) UserToken(userID uuid.UUID) string {
	env.t.Helper()
	token, err := env.JWTMgr.GenerateToken(auth.RealmUser, userID, "fan@futsal.test", domain.RoleViewer)
	if err != nil {
		env.t.Fatalf("UserToken: %v", err)
	}
	return token
}

// SeedUser inserts a user row directly and returns it.
func (env *TestEnv) SeedUser(role domain.Role, language string, pushToken *string) *domain.User {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id := uuid.New()
	u := &domain.User{
		ID:        id,
		Email:     id.String()[:8] + "@futsal.test",
		Role:      role,
		PushToken: pushToken,
		Language:  language,
		CreatedAt: time.Now().UTC(),
	}
	if err := repository.NewUserRepository().Create(ctx, env.Pool, u); err != nil {
		env.t.Fatalf("SeedUser: %v", err)
	}
	return u
}

// CreateTeam creates a team through the admin API.
func (env *TestEnv) CreateTeam(adminToken, name, short string) uuid.UUID {
	env.t.Helper()
	resp := env.AuthPOST("/admin/teams", map[string]string{"name": name, "short_name": short}, adminToken)
	var team domain.Team
	env.decodeCreated("CreateTeam", resp, &team)
	return team.ID
}

// CreateMatch creates a scheduled match through the admin API.
func (env *TestEnv) CreateMatch(adminToken string, home, away uuid.UUID, start time.Time) uuid.UUID {
	env.t.Helper()
	resp := env.AuthPOST("/admin/matches", map[string]interface{}{
		"home_team_id": home,
		"away_team_id": away,
		"start_time":   start,
	}, adminToken)
	var m domain.Match
	env.decodeCreated("CreateMatch", resp, &m)
	return m.ID
}

// AssignOperator gives operatorID write access to matchID.
func (env *TestEnv) AssignOperator(adminToken string, matchID, operatorID uuid.UUID) {
	env.t.Helper()
	resp := env.AuthPOST("/admin/matches/"+matchID.String()+"/operators",
		map[string]uuid.UUID{"user_id": operatorID}, adminToken)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		env.t.Fatalf("AssignOperator: expected 204, got %d", resp.StatusCode)
	}
}

// Transition applies a phase action as the given staff member.
func (env *TestEnv) Transition(token string, matchID uuid.UUID, action string) *http.Response {
	env.t.Helper()
	return env.AuthPOST("/operator/matches/"+matchID.String()+"/transitions",
		map[string]string{"action": action}, token)
}

// RecordGoal records a goal for teamID and returns the created event.
func (env *TestEnv) RecordGoal(token string, matchID, teamID uuid.UUID) domain.MatchEvent {
	env.t.Helper()
	resp := env.AuthPOST("/operator/matches/"+matchID.String()+"/events", map[string]interface{}{
		"type":    "goal",
		"team_id": teamID,
	}, token)
	var ev domain.MatchEvent
	env.decodeCreated("RecordGoal", resp, &ev)
	return ev
}

func (env *TestEnv) decodeCreated(op string, resp *http.Response, dst interface{}) {
	env.t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		env.t.Fatalf("%s: expected 201, got %d", op, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		env.t.Fatalf("%s: decode: %v", op, err)
	}
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	resp, err := http.Get(env.Server.URL + path)
	if err != nil {
		env.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// POST performs a POST request with an optional bearer token.
func (env *TestEnv) POST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodPost, path, body, token, nil)
}

// AuthGET performs an authenticated GET request.
func (env *TestEnv) AuthGET(path, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodGet, path, nil, token, nil)
}

// AuthPOST performs an authenticated POST request with a JSON body.
func (env *TestEnv) AuthPOST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodPost, path, body, token, nil)
}

// AuthPOSTWithKey performs an authenticated POST carrying an Idempotency-Key.
func (env *TestEnv) AuthPOSTWithKey(path string, body interface{}, token, key string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodPost, path, body, token, map[string]string{"Idempotency-Key": key})
}

// AuthPUT performs an authenticated PUT request with a JSON body.
func (env *TestEnv) AuthPUT(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodPut, path, body, token, nil)
}

// AuthDELETE performs an authenticated DELETE request.
func (env *TestEnv) AuthDELETE(path, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodDelete, path, nil, token, nil)
}

// OPTIONS performs a CORS preflight request.
func (env *TestEnv) OPTIONS(path, origin, method string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodOptions, path, nil, "", map[string]string{
		"Origin":                        origin,
		"Access-Control-Request-Method": method,
	})
}

func (env *TestEnv) do(method, path string, body interface{}, token string, headers map[string]string) *http.Response {
	env.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			env.t.Fatalf("%s %s: marshal: %v", method, path, err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, reader)
	if err != nil {
		env.t.Fatalf("%s %s: new request: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}
