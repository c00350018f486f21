package uibridge

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/micro-nova/amplipi-go/internal/model"
)

// Handlers exposes the Dispatcher over HTTP for cmd/uibridge. hub may be
// nil in tests that don't exercise the WebSocket endpoint.
type Handlers struct {
	dispatcher *Dispatcher
	hub        *Hub
}

func NewHandlers(d *Dispatcher, hub *Hub) *Handlers {
	return &Handlers{dispatcher: d, hub: hub}
}

func (h *Handlers) Routes(r chi.Router) {
	r.Post("/command", h.handleCommand)
	if h.hub != nil {
		r.Get("/ws", h.hub.WSHandler)
	}
}

func (h *Handlers) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, model.ErrBadRequest("invalid command body"))
		return
	}
	result, err := h.dispatcher.Dispatch(cmd)
	if err != nil {
		writeError(w, model.ErrInternal(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, result)
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
