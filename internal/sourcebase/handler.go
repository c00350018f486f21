package sourcebase

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/micro-nova/amplipi-go/internal/model"
)

// CommandRequest is the body of POST /command: either a router-forwarded
// raw action, or a UI-initiated named command (spec.md §4.3).
type CommandRequest struct {
	Action  string                 `json:"action,omitempty"`
	Command string                 `json:"command,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// CommandExecutor runs a translated command against the concrete
// source's own state machine.
type CommandExecutor interface {
	ExecuteCommand(ctx context.Context, command string, data map[string]interface{}) (interface{}, error)
	Status() interface{}
	Resync(ctx context.Context) error
}

// Handlers exposes a Base + CommandExecutor pair over HTTP.
type Handlers struct {
	Base     *Base
	Executor CommandExecutor
}

func NewHandlers(base *Base, executor CommandExecutor) *Handlers {
	return &Handlers{Base: base, Executor: executor}
}

func (h *Handlers) Routes(r chi.Router) {
	r.Get("/status", h.handleStatus)
	r.Post("/command", h.handleCommand)
	r.Get("/resync", h.handleResync)
}

func (h *Handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Executor.Status())
}

// handleCommand implements spec.md §4.3's dispatch contract: a
// handle_raw_action override gets first refusal at a raw forwarded
// action; otherwise a command field is taken verbatim, or an action
// field is translated via action_map.
func (h *Handlers) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.ErrBadRequest("invalid command body"))
		return
	}

	command := req.Command
	data := req.Data

	if req.Action != "" {
		if h.Base.HandleRawAction != nil {
			if cmd, d, handled := h.Base.HandleRawAction(req.Action); handled {
				command, data = cmd, d
			}
		}
		if command == "" {
			command = h.Base.Translate(req.Action)
		}
	}

	result, err := h.Executor.ExecuteCommand(r.Context(), command, data)
	if err != nil {
		writeError(w, model.ErrBadRequest(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "result": result})
}

func (h *Handlers) handleResync(w http.ResponseWriter, r *http.Request) {
	if err := h.Executor.Resync(r.Context()); err != nil {
		writeError(w, model.ErrInternal(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
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
