// Package ws implements the WebSocket adapter for live run events.
// Clients join the room named after a run id and receive that run's
// lifecycle events until run_complete.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// conn wraps a single WebSocket connection joined to one room.
type conn struct {
	ws     *websocket.Conn
	room   string
	cancel context.CancelFunc
}

// Hub manages room membership and delivers messages to room subscribers.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*conn]struct{}
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*conn]struct{}),
	}
}

// HandleWS upgrades the connection and joins it to the room named by the
// run_id query parameter.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("run_id")
	if room == "" {
		http.Error(w, "run_id query parameter is required", http.StatusBadRequest)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	// The request context dies when this handler returns, even though
	// the connection is hijacked, so the connection lifetime hangs off
	// its own context and the handler blocks in the read loop.
	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{ws: ws, room: room, cancel: cancel}

	h.mu.Lock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*conn]struct{})
	}
	h.rooms[room][c] = struct{}{}
	h.mu.Unlock()

	slog.Info("websocket joined room", "room", room, "remote", r.RemoteAddr)

	defer func() {
		h.remove(c)
		_ = ws.Close(websocket.StatusNormalClosure, "")
	}()

	// Read loop: detects disconnects and consumes pings. Subscribers
	// never send data frames; anything readable just keeps the
	// connection alive until the peer goes away or the room drops the
	// connection via remove.
	for {
		if _, _, err := ws.Read(ctx); err != nil {
			return
		}
	}
}

// ToRoom delivers an event to every subscriber of one room.
// Dead connections are dropped; delivery never blocks on them.
func (h *Hub) ToRoom(ctx context.Context, room, eventType string, payload []byte) {
	data, err := json.Marshal(Message{Type: eventType, Payload: payload})
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[room] {
		if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
			slog.Debug("websocket write failed", "room", room, "error", err)
			go h.remove(c)
		}
	}
}

// RoomSize returns the number of subscribers in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[c.room]
	if !ok {
		return
	}
	if _, ok := room[c]; ok {
		c.cancel()
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.room)
		}
		slog.Info("websocket left room", "room", c.room)
	}
}
