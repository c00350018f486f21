// Package volume implements the router's single in-process volume
// adapter abstraction (spec.md §4.5): a uniform 4-operation surface with
// debounced writes, cap clamping, and cached power, plus six concrete
// adapters selected by configuration. Debouncing is grounded on the
// teacher's config.JSONStore.Save pattern (internal/config/json_store.go)
// generalized from "coalesce config writes" to "coalesce volume writes".
package volume

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/micro-nova/amplipi-go/internal/model"
)

// Adapter is the uniform surface every volume output implements.
type Adapter interface {
	SetVolume(v int)
	GetVolume() int
	IsOn() bool
	IsOnCached() bool
	PowerOn(ctx context.Context)
	PowerOff(ctx context.Context)
	State() model.VolumeState
}

// BalanceAdapter is an optional capability: adapters that also control
// stereo balance implement it (asserted with a type switch by callers,
// never duck-typed, per spec.md §9).
type BalanceAdapter interface {
	SetBalance(b int)
	GetBalance() int
}

// device is the minimal surface a concrete adapter type implements;
// Base wraps it with debouncing, clamping, and power caching so each
// concrete adapter only needs to know how to talk to its hardware.
type device interface {
	writeVolume(ctx context.Context, v int)
	readVolume(ctx context.Context) (int, bool)
	writePower(ctx context.Context, on bool)
	readPower(ctx context.Context) (bool, bool)
}

const (
	debounceMin   = 50 * time.Millisecond
	debounceMax   = 100 * time.Millisecond
	powerCacheTTL = 30 * time.Second
)

// Base implements the common debounce/cap/power-cache behavior shared by
// every concrete adapter (spec.md §4.5 "Common behaviors").
type Base struct {
	dev          device
	outputDevice string
	max          int
	safeCap      int

	mu             sync.Mutex
	volume         int
	balance        int
	pendingVolume  int
	hasPending     bool
	flushTimer     *time.Timer
	powerCached    bool
	powerCachedAt  time.Time
	powerKnown     bool
}

// NewBase wires a concrete device behind the common debounce/cap/cache
// logic. max is the adapter-configurable cap from spec.md invariant 3;
// safeCap is the ceiling PowerOn resumes at (default 40 if 0).
func NewBase(dev device, outputDevice string, max, safeCap int) *Base {
	if max <= 0 {
		max = model.MaxVolume
	}
	if safeCap <= 0 {
		safeCap = 40
	}
	return &Base{dev: dev, outputDevice: outputDevice, max: max, safeCap: safeCap}
}

// SetVolume clamps to [0,max], logging+clamping overages (invariant 3),
// stashes the latest value, and schedules a single debounced flush
// 50-100ms later; a burst of calls within the window writes only the
// final value (invariant 5 / testable property 5).
func (b *Base) SetVolume(v int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clamped := model.ClampVolume(v, b.max)
	if v > b.max {
		slog.Warn("volume: input above cap, clamping", "requested", v, "max", b.max)
	}
	b.volume = clamped
	b.pendingVolume = clamped
	b.hasPending = true

	if b.flushTimer != nil {
		b.flushTimer.Stop()
	}
	b.flushTimer = time.AfterFunc(debounceMax, b.flush)
}

func (b *Base) flush() {
	b.mu.Lock()
	if !b.hasPending {
		b.mu.Unlock()
		return
	}
	v := b.pendingVolume
	b.hasPending = false
	b.mu.Unlock()

	b.dev.writeVolume(context.Background(), v)
}

// GetVolume returns the last requested (debounced) value without I/O;
// the UI stays responsive even if the device write is still pending or
// fails (spec.md §4.5 "all writes are fire-and-forget").
func (b *Base) GetVolume() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.volume
}

func (b *Base) SetBalance(bal int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balance = model.ClampBalance(bal)
}

func (b *Base) GetBalance() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance
}

// IsOnCached returns the last known power state without I/O (invariant 4).
func (b *Base) IsOnCached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.powerCached
}

// IsOn consults the device, but only if the cache is older than the TTL.
func (b *Base) IsOn() bool {
	b.mu.Lock()
	stale := !b.powerKnown || time.Since(b.powerCachedAt) > powerCacheTTL
	b.mu.Unlock()

	if !stale {
		return b.IsOnCached()
	}

	on, ok := b.dev.readPower(context.Background())
	if !ok {
		return b.IsOnCached()
	}
	b.mu.Lock()
	b.powerCached = on
	b.powerKnown = true
	b.powerCachedAt = time.Now()
	b.mu.Unlock()
	return on
}

// PowerOn turns the device on and applies the safety cap to the resumed
// volume (spec.md §4.5).
func (b *Base) PowerOn(ctx context.Context) {
	b.setPowerCache(true)
	b.dev.writePower(ctx, true)

	b.mu.Lock()
	if b.volume > b.safeCap {
		b.volume = b.safeCap
	}
	v := b.volume
	b.mu.Unlock()
	b.dev.writeVolume(ctx, v)
}

func (b *Base) PowerOff(ctx context.Context) {
	b.setPowerCache(false)
	b.dev.writePower(ctx, false)
}

func (b *Base) setPowerCache(on bool) {
	b.mu.Lock()
	b.powerCached = on
	b.powerKnown = true
	b.powerCachedAt = time.Now()
	b.mu.Unlock()
}

// State returns the wire-visible volume snapshot for GET /router/status.
func (b *Base) State() model.VolumeState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return model.VolumeState{
		Volume:       b.volume,
		Balance:      b.balance,
		OutputDevice: b.outputDevice,
		On:           b.powerCached,
	}
}
