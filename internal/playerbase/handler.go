package playerbase

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/micro-nova/amplipi-go/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handlers exposes a Base over HTTP + WebSocket (spec.md §4.4).
type Handlers struct {
	Base *Base
}

func NewHandlers(base *Base) *Handlers {
	return &Handlers{Base: base}
}

func (h *Handlers) Routes(r chi.Router) {
	r.Post("/player/play", h.handlePlay)
	r.Post("/player/pause", h.handlePause)
	r.Post("/player/resume", h.handleResume)
	r.Post("/player/next", h.handleNext)
	r.Post("/player/prev", h.handlePrev)
	r.Post("/player/stop", h.handleStop)
	r.Get("/player/state", h.handleState)
	r.Get("/player/capabilities", h.handleCapabilities)
	r.Get("/player/status", h.handleState)
	r.Get("/ws", h.handleWS)
}

type playRequest struct {
	URI      string `json:"uri,omitempty"`
	URL      string `json:"url,omitempty"`
	TrackURI string `json:"track_uri,omitempty"`
}

func (h *Handlers) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.ErrBadRequest("invalid play body"))
		return
	}
	uri := req.URI
	if uri == "" {
		uri = req.URL
	}
	if uri == "" {
		uri = req.TrackURI
	}
	if err := h.Base.Device.Play(r.Context(), uri); err != nil {
		writeError(w, model.ErrInternal(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) handlePause(w http.ResponseWriter, r *http.Request) {
	h.runDeviceOp(w, r, h.Base.Device.Pause)
}

func (h *Handlers) handleResume(w http.ResponseWriter, r *http.Request) {
	h.runDeviceOp(w, r, h.Base.Device.Resume)
}

func (h *Handlers) handleNext(w http.ResponseWriter, r *http.Request) {
	h.runDeviceOp(w, r, h.Base.Device.Next)
}

func (h *Handlers) handlePrev(w http.ResponseWriter, r *http.Request) {
	h.runDeviceOp(w, r, h.Base.Device.Prev)
}

func (h *Handlers) handleStop(w http.ResponseWriter, r *http.Request) {
	h.runDeviceOp(w, r, h.Base.Device.Stop)
}

func (h *Handlers) runDeviceOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context) error) {
	if err := op(r.Context()); err != nil {
		writeError(w, model.ErrInternal(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := h.Base.Device.State(r.Context())
	if err != nil {
		writeError(w, model.ErrInternal(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handlers) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Base.Device.Capabilities())
}

func (h *Handlers) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("playerbase: ws upgrade failed", "err", err)
		return
	}
	id := uuid.New().String()
	ch := h.Base.Hub.Subscribe(id)
	defer h.Base.Hub.Unsubscribe(id)
	defer conn.Close()

	for frame := range ch {
		if err := conn.WriteJSON(frame); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err *model.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)
	_ = json.NewEncoder(w).Encode(err)
}
