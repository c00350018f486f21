// Package router implements the event router of spec.md §4.1: the
// central dispatcher that owns no state of its own beyond view tracking,
// routing every action event through the seven-step deterministic
// algorithm to the source registry, the volume adapter, or the
// transport.
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/micro-nova/amplipi-go/internal/model"
)

// VolumeAdapter is the narrow surface Dispatch needs on the in-process
// volume output.
type VolumeAdapter interface {
	SetVolume(v int)
	GetVolume() int
	SetBalance(b int)
	GetBalance() int
	IsOnCached() bool
	PowerOn(ctx context.Context)
	PowerOff(ctx context.Context)
}

// Transport is the narrow surface Dispatch needs to forward events the
// registry and volume adapter don't claim.
type Transport interface {
	Send(ctx context.Context, event interface{})
}

// SourceLookup is the narrow surface Dispatch needs on the registry.
type SourceLookup interface {
	Get(id string) (model.Source, bool)
	Active() (model.Source, bool)
}

// Deps bundles every collaborator step 1-7 of the routing algorithm may
// touch. Held by the caller, not by Dispatch itself, so Dispatch stays a
// pure function of (Deps, ActionEvent, view) plumbing no state.
type Deps struct {
	Sources     SourceLookup
	Volume      VolumeAdapter
	Transport   Transport
	HTTPClient  *http.Client
	VolStep     int
	BalanceStep int
	EatingViews map[string]bool
}

// Outcome names which step of the algorithm terminated the dispatch, for
// tests asserting the deterministic ordering guarantee (spec.md §4.1).
type Outcome string

const (
	OutcomeForwardedToActiveSourceHandles Outcome = "active_source_handles"
	OutcomeForwardedToSourceSelect        Outcome = "source_select"
	OutcomeVolume                         Outcome = "volume"
	OutcomeBalance                        Outcome = "balance"
	OutcomeOff                            Outcome = "off"
	OutcomeEaten                          Outcome = "eaten"
	OutcomeTransport                      Outcome = "transport"
)

const forwardTimeout = 1 * time.Second

// Dispatch runs the seven-step deterministic routing algorithm of
// spec.md §4.1 against a single action event. currentView is the UI's
// last-reported active view (spec.md §4.1 step 6); it may be empty.
// Dispatch never returns an error to the caller: every destination
// failure is logged by its own helper and swallowed, matching spec.md's
// failure semantics ("the router never fails an event back to the
// collector; it also never retries").
func Dispatch(ctx context.Context, d Deps, ev model.ActionEvent, currentView string) Outcome {
	// Step 1: active source claims this action via its handles.
	if ev.DeviceType == model.DeviceAudio {
		if active, ok := d.Sources.Active(); ok && active.State.IsActiveState() && active.HandlesAction(ev.Action) {
			forwardToSource(ctx, d, active.CommandURL, ev)
			return OutcomeForwardedToActiveSourceHandles
		}
	}

	// Step 2: source-select button — a known, non-gone source named by id.
	if src, ok := d.Sources.Get(ev.Action); ok && src.State != model.SourceGone && src.CommandURL != "" {
		forwardToSource(ctx, d, src.CommandURL, ev)
		return OutcomeForwardedToSourceSelect
	}

	// Step 3: volup/voldown.
	if ev.DeviceType == model.DeviceAudio && (ev.Action == "volup" || ev.Action == "voldown") {
		delta := d.VolStep
		if ev.Action == "voldown" {
			delta = -delta
		}
		current := d.Volume.GetVolume()
		next := model.ClampVolume(current+delta, model.MaxVolume)
		if ev.Action == "volup" && !d.Volume.IsOnCached() {
			go d.Volume.PowerOn(context.Background())
		}
		go d.Volume.SetVolume(next)
		return OutcomeVolume
	}

	// Step 4: chup/chdown (balance).
	if ev.DeviceType == model.DeviceAudio && (ev.Action == "chup" || ev.Action == "chdown") {
		delta := d.BalanceStep
		if ev.Action == "chdown" {
			delta = -delta
		}
		current := d.Volume.GetBalance()
		next := model.ClampBalance(current + delta)
		go d.Volume.SetBalance(next)
		return OutcomeBalance
	}

	// Step 5: off, power down then fall through to transport.
	if ev.DeviceType == model.DeviceAudio && ev.Action == "off" {
		go d.Volume.PowerOff(context.Background())
		d.Transport.Send(ctx, ev)
		return OutcomeOff
	}

	// Step 6: an eating view swallows navigation buttons locally.
	if d.EatingViews[currentView] && isEatenNavigationAction(ev.Action) {
		return OutcomeEaten
	}

	// Step 7: fall back to the external automation system.
	d.Transport.Send(ctx, ev)
	return OutcomeTransport
}

func isEatenNavigationAction(action string) bool {
	switch action {
	case "go", "left", "right", "up", "down":
		return true
	default:
		return false
	}
}
