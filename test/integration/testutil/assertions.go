//go:build integration

package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
)

// DecodeJSON reads and decodes a JSON response body into dst.
func DecodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
}

// AssertStatus checks that the response has the expected HTTP status code.
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertErrorCode checks that the response body contains the expected error code.
func AssertErrorCode(t *testing.T, resp *http.Response, expectedCode string) {
	t.Helper()
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	DecodeJSON(t, resp, &errResp)
	if errResp.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, errResp.Code, errResp.Message)
	}
}

// AssertScore queries the matches table and asserts the stored score.
func AssertScore(t *testing.T, env *TestEnv, matchID uuid.UUID, home, away int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var h, a int
	err := env.Pool.QueryRow(ctx,
		"SELECT home_score, away_score FROM matches WHERE id = $1", matchID).Scan(&h, &a)
	if err != nil {
		t.Fatalf("AssertScore: query: %v", err)
	}
	if h != home || a != away {
		t.Errorf("score: expected %d-%d, got %d-%d", home, away, h, a)
	}
}

// CountEvents returns the number of ledger rows for a match.
func CountEvents(t *testing.T, env *TestEnv, matchID uuid.UUID) int {
	t.Helper()
	return countRows(t, env, "SELECT COUNT(*) FROM match_events WHERE match_id = $1", matchID)
}

// CountNotifications returns the number of inbox rows for a user.
func CountNotifications(t *testing.T, env *TestEnv, userID uuid.UUID) int {
	t.Helper()
	return countRows(t, env, "SELECT COUNT(*) FROM notifications WHERE user_id = $1", userID)
}

// CountUnpublishedOutbox returns the number of outbox rows not yet relayed.
func CountUnpublishedOutbox(t *testing.T, env *TestEnv) int {
	t.Helper()
	return countRows(t, env, `SELECT COUNT(*) FROM event_outbox WHERE "publishedAt" IS NULL`)
}

func countRows(t *testing.T, env *TestEnv, query string, args ...interface{}) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var n int
	if err := env.Pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		t.Fatalf("countRows: %v", err)
	}
	return n
}
