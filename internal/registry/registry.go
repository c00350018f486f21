// Package registry implements the source lifecycle state machine and
// exclusivity guarantees of spec.md §3/§4.2: at most one source is ever
// in {playing, paused}, and every transition emits the matching UI
// broadcast events. All active-slot reads and writes happen behind a
// single mutex, generalized from the teacher Controller's apply()
// discipline (internal/controller/controller.go) from "one write path
// serializes a deep-copied state" to "one write path serializes the
// registry + active slot".
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/micro-nova/amplipi-go/internal/model"
)

// Broadcaster is the narrow outbound surface the registry needs on the
// UI bridge. It is implemented by internal/uibridge's client.
type Broadcaster interface {
	Broadcast(ctx context.Context, eventType string, data map[string]interface{})
}

// Notifier delivers a "stop" command to a source's command_url. Kept as
// an interface so tests can substitute a fake.
type Notifier interface {
	Stop(ctx context.Context, commandURL string) error
}

// VolumeController is the narrow surface the registry needs on the
// volume adapter to satisfy a register request's auto_power flag.
type VolumeController interface {
	IsOnCached() bool
	PowerOn(ctx context.Context)
}

// Registry owns the source table, the active-source slot, and the menu
// model. All mutation happens through Register; no other caller writes
// to sources or activeID directly.
type Registry struct {
	mu          sync.Mutex
	sources     map[string]*model.Source
	activeID    string
	configOrder []model.ConfigEntry // from menu config, in declared order

	broadcaster Broadcaster
	notifier    Notifier
	volume      VolumeController
}

// New creates a Registry seeded with the configured (from-config) menu
// entries that name a source id; each starts out "gone" until it
// registers, as spec.md §3's lifecycle summary describes. volume may be
// nil if no source in this deployment ever sets auto_power.
func New(configEntries []model.ConfigEntry, broadcaster Broadcaster, notifier Notifier, volume VolumeController) *Registry {
	r := &Registry{
		sources:     make(map[string]*model.Source),
		broadcaster: broadcaster,
		notifier:    notifier,
		volume:      volume,
		configOrder: configEntries,
	}
	for _, e := range configEntries {
		if e.ID == "" || e.URL != "" {
			continue // static view or web-page entry, not a source
		}
		r.sources[e.ID] = &model.Source{
			ID:            e.ID,
			State:         model.SourceGone,
			FromConfig:    true,
			InitialHidden: e.Hidden,
		}
	}
	return r
}

// Get returns a copy of the source with id, or false if unknown.
func (r *Registry) Get(id string) (model.Source, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sources[id]
	if !ok {
		return model.Source{}, false
	}
	return *s, true
}

// Active returns a copy of the currently active source, or false if none.
func (r *Registry) Active() (model.Source, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeID == "" {
		return model.Source{}, false
	}
	s, ok := r.sources[r.activeID]
	if !ok {
		return model.Source{}, false
	}
	return *s, true
}

// ActiveID returns the id of the active source, or "" if none.
func (r *Registry) ActiveID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID
}

// All returns a snapshot of every known source, sorted by id for
// deterministic output.
func (r *Registry) All() []model.Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Source, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Register applies a registration payload to the state machine and
// returns the resulting delta. It performs all side effects described
// in spec.md §4.2 (stop the previous active source, broadcasts,
// auto-power) before returning, so a caller awaiting Register observes
// a fully-settled registry. The HTTP handler awaits it and returns the
// delta to the registering source.
func (r *Registry) Register(ctx context.Context, req model.RegisterRequest) (model.RegistryDelta, error) {
	if req.ID == "" {
		return model.RegistryDelta{}, fmt.Errorf("registry: empty source id")
	}

	r.mu.Lock()
	src, existed := r.sources[req.ID]
	if !existed {
		src = &model.Source{ID: req.ID, State: model.SourceGone, FromConfig: false}
		r.sources[req.ID] = src
	}
	prevState := src.State
	wasActive := r.activeID == req.ID

	// Apply field updates (name/command_url/etc. may arrive on any transition).
	if req.Name != "" {
		src.Name = req.Name
	}
	if req.CommandURL != "" {
		src.CommandURL = req.CommandURL
	}
	if req.MenuPreset != "" {
		src.MenuPreset = req.MenuPreset
	}
	if req.Handles != nil {
		src.Handles = req.Handles
	}
	if req.Player != "" {
		src.Player = req.Player
	}

	var prevActiveCommandURL string
	var deactivatedPrev bool
	becameActive := false

	switch req.State {
	case model.SourcePlaying:
		if r.activeID != "" && r.activeID != req.ID {
			if prev, ok := r.sources[r.activeID]; ok {
				prevActiveCommandURL = prev.CommandURL
				prev.State = model.SourceAvailable
				deactivatedPrev = true
			}
		}
		r.activeID = req.ID
		becameActive = !wasActive || prevState != model.SourcePlaying
	case model.SourcePaused:
		if r.activeID == "" || r.activeID == req.ID {
			r.activeID = req.ID
			becameActive = !wasActive
		}
	case model.SourceAvailable:
		if wasActive {
			r.activeID = ""
		}
	case model.SourceGone:
		if wasActive {
			r.activeID = ""
		}
	}
	src.State = req.State
	newActiveID := r.activeID
	r.mu.Unlock()

	// Side effects outside the lock (spec.md §5: no I/O launched inside a lock).
	if deactivatedPrev && r.notifier != nil && prevActiveCommandURL != "" {
		if err := r.notifier.Stop(ctx, prevActiveCommandURL); err != nil {
			slog.Warn("registry: stop previous active source failed", "url", prevActiveCommandURL, "err", err)
		}
	}

	r.emitTransitionBroadcasts(ctx, req, prevState, src.FromConfig, src.InitialHidden, becameActive, newActiveID)

	if becameActive && req.State == model.SourcePlaying && req.WantsAutoPower() && r.volume != nil && !r.volume.IsOnCached() {
		r.volume.PowerOn(ctx)
	}

	return model.RegistryDelta{
		ID:           req.ID,
		PrevState:    prevState,
		State:        req.State,
		ActiveID:     newActiveID,
		BecameActive: becameActive,
	}, nil
}

func (r *Registry) emitTransitionBroadcasts(ctx context.Context, req model.RegisterRequest, prevState model.SourceState, fromConfig, initialHidden, becameActive bool, activeID string) {
	if r.broadcaster == nil {
		return
	}

	// First appearance.
	if prevState == model.SourceGone && req.State == model.SourceAvailable {
		switch {
		case fromConfig && initialHidden:
			r.broadcaster.Broadcast(ctx, "menu_item", map[string]interface{}{"action": "show", "id": req.ID})
		case !fromConfig:
			r.broadcaster.Broadcast(ctx, "menu_item", map[string]interface{}{"action": "add", "id": req.ID, "after": r.precedingConfiguredID(req.ID)})
		}
	}

	if req.State.IsActiveState() && becameActive {
		r.broadcaster.Broadcast(ctx, "source_change", map[string]interface{}{
			"active_source": activeID,
			"source_name":   req.Name,
			"player":        string(req.Player),
		})
	} else if !req.State.IsActiveState() && prevState.IsActiveState() {
		r.broadcaster.Broadcast(ctx, "source_change", map[string]interface{}{
			"active_source": nil,
			"player":        nil,
		})
	}

	if req.State == model.SourceGone {
		switch {
		case fromConfig && initialHidden:
			r.broadcaster.Broadcast(ctx, "menu_item", map[string]interface{}{"action": "hide", "id": req.ID})
		case !fromConfig:
			r.broadcaster.Broadcast(ctx, "menu_item", map[string]interface{}{"action": "remove", "id": req.ID})
		}
	}

	if req.WantsNavigate() && (req.State == model.SourceAvailable || req.State == model.SourcePlaying) {
		r.broadcaster.Broadcast(ctx, "navigate", map[string]interface{}{"page": "menu/" + req.ID})
	}
}

// precedingConfiguredID returns the id of the configured menu entry that
// immediately precedes id in declared order, used to position an ad-hoc
// source's "menu_item add" broadcast.
func (r *Registry) precedingConfiguredID(id string) string {
	prev := ""
	for _, e := range r.configOrder {
		if e.ID == id {
			return prev
		}
		if e.ID != "" {
			prev = e.ID
		}
	}
	return prev
}
