package uibridge

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const subBufferSize = 8

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Frame is the message shape pushed to every connected browser client.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Hub fans Broadcast calls out to every connected WebSocket client,
// the playerbase media_update Hub's pattern (internal/playerbase/hub.go)
// generalized from one player's media updates to every UI event kind
// (navigate, menu_item, source_change, camera, and passthrough broadcasts).
type Hub struct {
	mu   sync.Mutex
	subs map[string]chan Frame
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]chan Frame)}
}

func (h *Hub) Subscribe(id string) <-chan Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Frame, subBufferSize)
	h.subs[id] = ch
	return ch
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Broadcast implements the Dispatcher's Broadcaster interface.
func (h *Hub) Broadcast(kind string, data interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	frame := Frame{Type: kind, Data: data}
	for _, ch := range h.subs {
		select {
		case ch <- frame:
		default:
		}
	}
}

// WSHandler upgrades GET /ws and streams frames until the client
// disconnects or a write fails.
func (h *Hub) WSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("uibridge: ws upgrade failed", "err", err)
		return
	}
	id := uuid.New().String()
	ch := h.Subscribe(id)
	defer h.Unsubscribe(id)
	defer conn.Close()

	for frame := range ch {
		if err := conn.WriteJSON(frame); err != nil {
			return
		}
	}
}
