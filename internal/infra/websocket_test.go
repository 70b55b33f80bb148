package infra

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func drain(t *testing.T, c *WSConn) []WSMessage {
	t.Helper()
	var out []WSMessage
	for {
		select {
		case raw := <-c.Send:
			var m WSMessage
			require.NoError(t, json.Unmarshal(raw, &m))
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestWSHub_MatchRoomIsolation(t *testing.T) {
	hub := NewWSHub(testLogger())
	m1, m2 := uuid.New(), uuid.New()
	a, b := NewWSConn("a"), NewWSConn("b")

	hub.JoinMatch(a, m1)
	hub.JoinMatch(b, m2)

	hub.PublishMatch(m1, "match_event", map[string]int{"minute": 3})

	got := drain(t, a)
	require.Len(t, got, 1)
	assert.Equal(t, "match_event", got[0].Event)
	assert.Equal(t, MatchRoom(m1), got[0].Room)
	assert.Empty(t, drain(t, b))
}

func TestWSHub_GlobalFeed(t *testing.T) {
	hub := NewWSHub(testLogger())
	a, b := NewWSConn("a"), NewWSConn("b")
	hub.JoinGlobal(a)
	hub.JoinMatch(b, uuid.New())

	hub.PublishGlobal("match_event", nil)

	assert.Len(t, drain(t, a), 1)
	assert.Empty(t, drain(t, b))
}

func TestWSHub_MultipleRoomsAndDisconnect(t *testing.T) {
	hub := NewWSHub(testLogger())
	m1, m2 := uuid.New(), uuid.New()
	a := NewWSConn("a")

	hub.JoinMatch(a, m1)
	hub.JoinMatch(a, m2)
	hub.JoinGlobal(a)
	assert.ElementsMatch(t, []string{MatchRoom(m1), MatchRoom(m2), GlobalRoom}, hub.Rooms("a"))
	assert.Equal(t, 3, hub.RoomCount())
	assert.Equal(t, 1, hub.ConnectionCount())

	hub.Disconnect("a")

	assert.Equal(t, 0, hub.RoomCount())
	assert.Equal(t, 0, hub.ConnectionCount())
	assert.Nil(t, hub.Rooms("a"))
	select {
	case <-a.Done():
	default:
		t.Fatal("connection not closed on disconnect")
	}

	hub.PublishMatch(m1, "match_event", nil)
	assert.Empty(t, drain(t, a))
}

func TestWSHub_LeaveMatch(t *testing.T) {
	hub := NewWSHub(testLogger())
	m := uuid.New()
	a := NewWSConn("a")
	hub.JoinMatch(a, m)
	hub.LeaveMatch(a, m)

	hub.PublishMatch(m, "match_event", nil)
	assert.Empty(t, drain(t, a))
	assert.Equal(t, 0, hub.RoomCount())
	assert.Equal(t, 1, hub.ConnectionCount())
}

func TestWSHub_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	hub := NewWSHub(testLogger())
	m := uuid.New()
	a := NewWSConn("a")
	hub.JoinMatch(a, m)

	for i := 0; i < clientSendBuf+10; i++ {
		hub.PublishMatch(m, "minute_update", i)
	}
	assert.Len(t, drain(t, a), clientSendBuf)
}

func TestWSHub_PreservesPublishOrder(t *testing.T) {
	hub := NewWSHub(testLogger())
	m := uuid.New()
	a := NewWSConn("a")
	hub.JoinMatch(a, m)

	for i := 0; i < 20; i++ {
		hub.PublishMatch(m, "minute_update", i)
	}
	got := drain(t, a)
	require.Len(t, got, 20)
	for i, msg := range got {
		assert.EqualValues(t, i, msg.Data)
	}
}

func TestWSHub_ConcurrentJoinPublishDisconnect(t *testing.T) {
	hub := NewWSHub(testLogger())
	m := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := NewWSConn(uuid.NewString())
			hub.JoinMatch(c, m)
			hub.JoinGlobal(c)
			hub.Disconnect(c.ID)
		}()
		go func() {
			defer wg.Done()
			hub.PublishMatch(m, "match_event", nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, hub.ConnectionCount())
	assert.Equal(t, 0, hub.RoomCount())
}

func TestWSHub_HandleFrame(t *testing.T) {
	hub := NewWSHub(testLogger())
	m := uuid.New()
	a := NewWSConn("a")

	hub.HandleFrame(a, ClientFrame{Action: "join", MatchID: m.String()})
	hub.HandleFrame(a, ClientFrame{Action: "join_global"})
	hub.HandleFrame(a, ClientFrame{Action: "join", MatchID: "nope"})
	hub.HandleFrame(a, ClientFrame{Action: "dance"})

	got := drain(t, a)
	require.Len(t, got, 4)
	assert.Equal(t, "joined", got[0].Event)
	assert.Equal(t, "joined", got[1].Event)
	assert.Equal(t, "error", got[2].Event)
	assert.Equal(t, "error", got[3].Event)
	assert.ElementsMatch(t, []string{MatchRoom(m), GlobalRoom}, hub.Rooms("a"))

	hub.HandleFrame(a, ClientFrame{Action: "leave", MatchID: m.String()})
	hub.HandleFrame(a, ClientFrame{Action: "leave_global"})
	assert.Empty(t, hub.Rooms("a"))
}

func TestWSHub_ServeWS(t *testing.T) {
	hub := NewWSHub(testLogger())
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	m := uuid.New()
	require.NoError(t, ws.WriteJSON(ClientFrame{Action: "join", MatchID: m.String()}))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ack WSMessage
	require.NoError(t, ws.ReadJSON(&ack))
	assert.Equal(t, "joined", ack.Event)

	hub.PublishMatch(m, "minute_update", map[string]int{"minute": 12})

	var msg WSMessage
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, "minute_update", msg.Event)
	assert.Equal(t, MatchRoom(m), msg.Room)

	ws.Close()
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.RoomCount())
}

func TestWSHub_Shutdown(t *testing.T) {
	hub := NewWSHub(testLogger())
	a := NewWSConn("a")
	hub.JoinGlobal(a)

	hub.Shutdown(context.Background())

	assert.Equal(t, 0, hub.ConnectionCount())
	select {
	case <-a.Done():
	default:
		t.Fatal("connection not closed on shutdown")
	}
}

func TestWSHub_JoinAfterDisconnectIsIgnored(t *testing.T) {
	hub := NewWSHub(testLogger())
	m := uuid.New()
	a := NewWSConn("a")
	hub.Register(a)
	hub.JoinMatch(a, m)

	hub.Disconnect("a")
	hub.HandleFrame(a, ClientFrame{Action: "join", MatchID: m.String()})
	hub.JoinGlobal(a)

	assert.Equal(t, 0, hub.ConnectionCount())
	assert.Equal(t, 0, hub.RoomCount())
	assert.Empty(t, hub.Rooms("a"))
}

func TestWSHub_JoinAfterReadSideCloseIsIgnored(t *testing.T) {
	hub := NewWSHub(testLogger())
	a := NewWSConn("a")
	hub.Register(a)
	a.close()

	hub.JoinMatch(a, uuid.New())
	assert.Equal(t, 0, hub.RoomCount())

	hub.Disconnect("a")
	assert.Equal(t, 0, hub.ConnectionCount())
}
