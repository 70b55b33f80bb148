package infra

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	clientSendBuf = 256
	writeDeadline = 5 * time.Second
	pongWait      = 30 * time.Second
	pingInterval  = 20 * time.Second
	maxFrameBytes = 4096
)

// GlobalRoom receives events from every match.
const GlobalRoom = "global"

// MatchRoom returns the room name for one match.
func MatchRoom(matchID uuid.UUID) string {
	return "match:" + matchID.String()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// WSHub manages WebSocket connections and room-based message delivery.
// Rooms are in-memory only; a connection's memberships die with it.
type WSHub struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]*WSConn // room -> connID -> conn
	conns  map[string]*WSConn
	logger *slog.Logger
}

// WSConn is one viewer connection. Send is never closed; Done is closed once
// when the connection is torn down.
type WSConn struct {
	ID   string
	Send chan []byte

	rooms     map[string]struct{} // guarded by WSHub.mu
	done      chan struct{}
	closeOnce sync.Once
}

// NewWSConn creates a connection with the standard send buffer.
func NewWSConn(id string) *WSConn {
	return &WSConn{
		ID:    id,
		Send:  make(chan []byte, clientSendBuf),
		rooms: make(map[string]struct{}),
		done:  make(chan struct{}),
	}
}

// Done is closed when the hub drops the connection.
func (c *WSConn) Done() <-chan struct{} { return c.done }

func (c *WSConn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *WSConn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// WSMessage is the payload sent over WebSocket.
type WSMessage struct {
	Event string      `json:"event"`
	Room  string      `json:"room"`
	Data  interface{} `json:"data"`
}

// ClientFrame is a control message sent by a viewer.
type ClientFrame struct {
	Action  string `json:"action"`
	MatchID string `json:"match_id,omitempty"`
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub(logger *slog.Logger) *WSHub {
	return &WSHub{
		rooms:  make(map[string]map[string]*WSConn),
		conns:  make(map[string]*WSConn),
		logger: logger,
	}
}

// Register tracks a connection so it can be cleaned up on disconnect.
func (h *WSHub) Register(conn *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn.ID] = conn
}

// Join adds a connection to a room. A connection that has already been torn
// down is ignored.
func (h *WSHub) Join(room string, conn *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn.closed() {
		return
	}
	h.conns[conn.ID] = conn
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*WSConn)
	}
	h.rooms[room][conn.ID] = conn
	conn.rooms[room] = struct{}{}
}

// Leave removes a connection from a room.
func (h *WSHub) Leave(room string, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, connID)
}

func (h *WSHub) leaveLocked(room, connID string) {
	conns, ok := h.rooms[room]
	if !ok {
		return
	}
	if conn, ok := conns[connID]; ok {
		delete(conn.rooms, room)
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(h.rooms, room)
	}
}

// JoinMatch subscribes conn to one match room.
func (h *WSHub) JoinMatch(conn *WSConn, matchID uuid.UUID) {
	h.Join(MatchRoom(matchID), conn)
}

// LeaveMatch unsubscribes conn from one match room.
func (h *WSHub) LeaveMatch(conn *WSConn, matchID uuid.UUID) {
	h.Leave(MatchRoom(matchID), conn.ID)
}

// JoinGlobal subscribes conn to the global feed.
func (h *WSHub) JoinGlobal(conn *WSConn) {
	h.Join(GlobalRoom, conn)
}

// Disconnect drops every membership of the connection and closes it.
// Closing under h.mu keeps a racing Join from re-adding it.
func (h *WSHub) Disconnect(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn, ok := h.conns[connID]
	if !ok {
		return
	}
	for room := range conn.rooms {
		h.leaveLocked(room, connID)
	}
	delete(h.conns, connID)
	conn.close()
}

// Rooms returns the rooms conn currently belongs to.
func (h *WSHub) Rooms(connID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conn, ok := h.conns[connID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(conn.rooms))
	for room := range conn.rooms {
		out = append(out, room)
	}
	return out
}

// Publish sends a message to all connections in a room. Delivery is
// best-effort: a full send buffer drops the message for that connection.
func (h *WSHub) Publish(room string, event string, data interface{}) {
	msg := WSMessage{Event: event, Room: room, Data: data}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("ws marshal error", "error", err, "room", room, "event", event)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.rooms[room]
	if !ok {
		return
	}

	for _, conn := range conns {
		select {
		case conn.Send <- payload:
		default:
			h.logger.Warn("ws send buffer full", "conn_id", conn.ID, "room", room)
		}
	}
}

// PublishMatch publishes to one match room.
func (h *WSHub) PublishMatch(matchID uuid.UUID, event string, data interface{}) {
	h.Publish(MatchRoom(matchID), event, data)
}

// PublishGlobal publishes to the global feed.
func (h *WSHub) PublishGlobal(event string, data interface{}) {
	h.Publish(GlobalRoom, event, data)
}

// ConnectionCount returns the total number of active connections.
func (h *WSHub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// RoomCount returns the number of active rooms.
func (h *WSHub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// Shutdown closes all connections gracefully.
func (h *WSHub) Shutdown(_ context.Context) {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[string]*WSConn)
	h.rooms = make(map[string]map[string]*WSConn)
	for _, conn := range conns {
		conn.close()
	}
	h.mu.Unlock()

	h.logger.Info("ws hub shut down", "connections", len(conns))
}

// ServeWS upgrades the request and runs the connection's pumps. Viewers
// subscribe with {"action":"join","match_id":"..."}, {"action":"leave",...}
// and {"action":"join_global"}.
func (h *WSHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	conn := NewWSConn(uuid.NewString())
	h.Register(conn)
	h.logger.Debug("ws client connected", "conn_id", conn.ID)

	go h.writePump(ws, conn)
	go h.readPump(ws, conn)
}

// writePump drains the send channel. It owns the lifecycle: on exit the
// connection leaves every room and the socket is closed.
func (h *WSHub) writePump(ws *websocket.Conn, conn *WSConn) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		h.Disconnect(conn.ID)
		ws.Close()
		h.logger.Debug("ws client disconnected", "conn_id", conn.ID)
	}()

	for {
		select {
		case msg := <-conn.Send:
			ws.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-conn.done:
			ws.SetWriteDeadline(time.Now().Add(writeDeadline))
			ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump applies viewer control frames. On exit it signals writePump.
func (h *WSHub) readPump(ws *websocket.Conn, conn *WSConn) {
	defer conn.close()

	ws.SetReadLimit(maxFrameBytes)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var frame ClientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.reply(conn, "error", map[string]string{"message": "invalid frame"})
			continue
		}
		h.HandleFrame(conn, frame)
	}
}

// HandleFrame applies one control frame to conn's memberships.
func (h *WSHub) HandleFrame(conn *WSConn, frame ClientFrame) {
	switch frame.Action {
	case "join", "leave":
		matchID, err := uuid.Parse(frame.MatchID)
		if err != nil {
			h.reply(conn, "error", map[string]string{"message": "invalid match_id"})
			return
		}
		if frame.Action == "join" {
			h.JoinMatch(conn, matchID)
			h.reply(conn, "joined", map[string]string{"room": MatchRoom(matchID)})
			return
		}
		h.LeaveMatch(conn, matchID)
		h.reply(conn, "left", map[string]string{"room": MatchRoom(matchID)})
	case "join_global":
		h.JoinGlobal(conn)
		h.reply(conn, "joined", map[string]string{"room": GlobalRoom})
	case "leave_global":
		h.Leave(GlobalRoom, conn.ID)
		h.reply(conn, "left", map[string]string{"room": GlobalRoom})
	default:
		h.reply(conn, "error", map[string]string{"message": "unknown action"})
	}
}

func (h *WSHub) reply(conn *WSConn, event string, data interface{}) {
	payload, err := json.Marshal(WSMessage{Event: event, Data: data})
	if err != nil {
		return
	}
	select {
	case conn.Send <- payload:
	default:
	}
}
