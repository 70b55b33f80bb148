package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/futsalhub/platform/internal/auth"
	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/guard"
	"github.com/futsalhub/platform/internal/infra"
	"github.com/futsalhub/platform/internal/provider"
	"github.com/futsalhub/platform/internal/repository/memstore"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type harness struct {
	t      *testing.T
	store  *memstore.Store
	core   *Core
	server *httptest.Server
	jwt    *auth.JWTManager

	admin    string
	operator string
	fan      string
	fanID    uuid.UUID
	opID     uuid.UUID
}

func newHarness(t *testing.T, ping pingFunc) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.New()
	repos := Repos{
		Matches:       store.Matches(),
		Events:        store.Events(),
		Teams:         store.Teams(),
		Lineups:       store.Lineups(),
		Assignments:   store.Assignments(),
		Users:         store.Users(),
		Notifications: store.Notifications(),
		Outbox:        store.Outbox(),
	}
	core := NewCore(nil, store, repos, provider.NewLogPusher(logger), CoreConfig{}, logger)
	t.Cleanup(core.Dispatcher.Close)

	jwtMgr := auth.NewJWTManager("test-secret-that-is-long-enough-1234", time.Hour, time.Hour)
	h := &harness{t: t, store: store, core: core, jwt: jwtMgr, fanID: uuid.New(), opID: uuid.New()}

	token := func(realm auth.Realm, id uuid.UUID, role domain.Role) string {
		s, err := jwtMgr.GenerateToken(realm, id, "x@example.com", role)
		require.NoError(t, err)
		return s
	}
	h.admin = token(auth.RealmStaff, uuid.New(), domain.RoleAdmin)
	h.operator = token(auth.RealmStaff, h.opID, domain.RoleOperator)
	h.fan = token(auth.RealmUser, h.fanID, domain.RoleViewer)

	ctx := context.Background()
	push := "ExponentPushToken[fan-device-000001]"
	require.NoError(t, store.Users().Create(ctx, nil, &domain.User{ID: h.fanID, Email: "fan@example.com", Role: domain.RoleViewer, Language: "es", PushToken: &push}))
	require.NoError(t, store.Users().Create(ctx, nil, &domain.User{ID: h.opID, Email: "op@example.com", Role: domain.RoleOperator, Language: "en"}))

	router := NewRouter(RouterDeps{
		DB:          ping,
		JWTMgr:      jwtMgr,
		Core:        core,
		Limiter:     guard.NewRateLimiter(rate.Limit(1000), 1000),
		CORSOrigins: []string{"*"},
		Logger:      logger,
	})
	h.server = httptest.NewServer(router)
	t.Cleanup(h.server.Close)
	return h
}

func (h *harness) do(method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.server.URL+path, &buf)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(h.t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func (h *harness) created(method, path string, body interface{}) string {
	h.t.Helper()
	resp, out := h.do(method, path, h.admin, body)
	require.Equal(h.t, http.StatusCreated, resp.StatusCode, out)
	return out["id"].(string)
}

func (h *harness) dialWS() *websocket.Conn {
	h.t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { ws.Close() })
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) infra.WSMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg infra.WSMessage
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func TestHealth(t *testing.T) {
	h := newHarness(t, func(context.Context) error { return nil })
	resp, body := h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	down := newHarness(t, func(context.Context) error { return errors.New("connection refused") })
	resp, body = down.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "unhealthy", body["status"])
}

func TestRouter_AuthBoundaries(t *testing.T) {
	h := newHarness(t, func(context.Context) error { return nil })
	path := "/operator/matches/" + uuid.NewString() + "/events"
	body := map[string]string{"type": "goal"}

	resp, _ := h.do(http.MethodPost, path, "", body)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = h.do(http.MethodPost, path, h.fan, body)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "user realm tokens never reach staff routes")

	resp, _ = h.do(http.MethodPost, "/admin/teams", h.operator, map[string]string{"name": "X", "short_name": "X"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = h.do(http.MethodGet, "/me/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = h.do(http.MethodGet, "/matches/not-a-uuid/live", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = h.do(http.MethodGet, "/matches/"+uuid.NewString()+"/live", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = h.do(http.MethodGet, "/matches/"+uuid.NewString()+"/live", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_MatchDayFlow(t *testing.T) {
	h := newHarness(t, func(context.Context) error { return nil })

	home := h.created(http.MethodPost, "/admin/teams", map[string]string{"name": "Lisboa FC", "short_name": "LIS"})
	away := h.created(http.MethodPost, "/admin/teams", map[string]string{"name": "Porto Sala", "short_name": "POR"})
	matchID := h.created(http.MethodPost, "/admin/matches", map[string]interface{}{
		"home_team_id": home, "away_team_id": away, "start_time": time.Now().Add(time.Hour),
	})

	resp, _ := h.do(http.MethodPut, "/me/favorites/teams", h.fan, map[string]interface{}{"team_ids": []string{home}})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	ops := "/operator/matches/" + matchID
	resp, _ = h.do(http.MethodPost, ops+"/transitions", h.operator, map[string]string{"action": "start"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode, "unassigned operator")

	resp, _ = h.do(http.MethodPost, "/admin/matches/"+matchID+"/operators", h.admin, map[string]string{"user_id": h.opID.String()})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	viewer := h.dialWS()
	require.NoError(t, viewer.WriteJSON(infra.ClientFrame{Action: "join", MatchID: matchID}))
	assert.Equal(t, "joined", readEvent(t, viewer).Event)

	resp, _ = h.do(http.MethodPost, ops+"/transitions", h.operator, map[string]string{"action": "warp"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, body := h.do(http.MethodPost, ops+"/transitions", h.operator, map[string]string{"action": "start"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "live", body["status"])

	assert.Equal(t, "status_change", readEvent(t, viewer).Event)
	assert.Equal(t, "match_event", readEvent(t, viewer).Event)
	assert.Equal(t, "minute_update", readEvent(t, viewer).Event)

	req := map[string]string{"type": "goal", "team_id": home}
	resp, body = h.do(http.MethodPost, ops+"/events", h.operator, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	goalID := body["id"].(string)

	msg := readEvent(t, viewer)
	assert.Equal(t, "match_event", msg.Event)
	assert.Equal(t, "match:"+matchID, msg.Room)
	minute := readEvent(t, viewer)
	assert.Equal(t, "minute_update", minute.Event)
	assert.EqualValues(t, 1, minute.Data.(map[string]interface{})["home_score"])

	resp, body = h.do(http.MethodGet, "/matches/"+matchID+"/live", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["match"].(map[string]interface{})["home_score"])
	assert.Len(t, body["events"], 2)

	resp, _ = h.do(http.MethodPost, ops+"/possession", h.operator, map[string]string{"team": "home"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "possession_update", readEvent(t, viewer).Event)

	resp, _ = h.do(http.MethodPost, ops+"/stoppage", h.operator, map[string]int{"minutes": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = h.do(http.MethodDelete, "/admin/events/"+goalID, h.operator, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = h.do(http.MethodDelete, "/admin/events/"+goalID, h.admin, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "event_deleted", readEvent(t, viewer).Event)

	resp, body = h.do(http.MethodGet, "/admin/matches/"+matchID+"/audit", h.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["all_passed"])

	// match_start and goal pushes were recorded for the fan
	h.core.Dispatcher.Wait()
	resp, _ = h.do(http.MethodGet, "/me/notifications", h.fan, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, h.store.AllNotifications(), 2)
	for _, n := range h.store.AllNotifications() {
		assert.Equal(t, h.fanID, n.UserID)
		assert.True(t, n.Delivered)
	}
}
