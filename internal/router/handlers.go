package router

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/micro-nova/amplipi-go/internal/model"
)

// Registry is the surface Handlers needs beyond SourceLookup: the
// registration write path and the menu renderer.
type Registry interface {
	SourceLookup
	Register(ctx context.Context, req model.RegisterRequest) (model.RegistryDelta, error)
	Menu() model.MenuResponse
	All() []model.Source
	ActiveID() string
}

// Handlers exposes the router's public contract over HTTP (spec.md §4.1).
type Handlers struct {
	Deps     Deps
	Registry Registry

	mu          sync.Mutex
	currentView string
}

func NewHandlers(deps Deps, reg Registry) *Handlers {
	return &Handlers{Deps: deps, Registry: reg}
}

func (h *Handlers) Routes(r chi.Router) {
	r.Post("/event", h.handleEvent)
	r.Post("/source", h.handleSource)
	r.Get("/menu", h.handleMenu)
	r.Post("/volume", h.handleVolumeSet)
	r.Post("/volume/report", h.handleVolumeReport)
	r.Post("/output/off", h.handleOutputOff)
	r.Post("/output/on", h.handleOutputOn)
	r.Post("/view", h.handleView)
	r.Get("/status", h.handleStatus)
	r.Post("/playback_override", h.handlePlaybackOverride)
}

// handleEvent schedules dispatch and replies immediately, matching
// spec.md's "Returns {status:"ok"} after dispatch is scheduled" —
// dispatch itself may still be settling asynchronous side effects
// (volume/power writes) when the response is written.
func (h *Handlers) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev model.ActionEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, model.ErrBadRequest("invalid action event body"))
		return
	}
	h.mu.Lock()
	view := h.currentView
	h.mu.Unlock()

	go Dispatch(context.Background(), h.Deps, ev, view)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) handleSource(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.ErrBadRequest("invalid register request body"))
		return
	}
	delta, err := h.Registry.Register(r.Context(), req)
	if err != nil {
		writeError(w, model.ErrBadRequest(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, delta)
}

func (h *Handlers) handleMenu(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Registry.Menu())
}

func (h *Handlers) handleVolumeSet(w http.ResponseWriter, r *http.Request) {
	var req model.VolumeReport
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.ErrBadRequest("invalid volume body"))
		return
	}
	h.Deps.Volume.SetVolume(req.Volume)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) handleVolumeReport(w http.ResponseWriter, r *http.Request) {
	var req model.VolumeReport
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.ErrBadRequest("invalid volume body"))
		return
	}
	h.Deps.Volume.SetVolume(req.Volume)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) handleOutputOff(w http.ResponseWriter, r *http.Request) {
	h.Deps.Volume.PowerOff(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) handleOutputOn(w http.ResponseWriter, r *http.Request) {
	h.Deps.Volume.PowerOn(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) handleView(w http.ResponseWriter, r *http.Request) {
	var req struct {
		View string `json:"view"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.ErrBadRequest("invalid view body"))
		return
	}
	h.mu.Lock()
	h.currentView = req.View
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	view := h.currentView
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active_source": h.Registry.ActiveID(),
		"sources":       h.Registry.All(),
		"current_view":  view,
	})
}

// handlePlaybackOverride is a stub endpoint: it always replies
// cleared:false. The intended behavior — clearing the active source
// when an external device takes over a shared cloud speaker — is an
// open product decision (spec.md §9 Open Question 1); left as a stub
// until that decision is made.
func (h *Handlers) handlePlaybackOverride(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": false})
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
