package playerbase

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Device is the concrete playback device a Base wraps: the minimal
// surface every player implementation provides.
type Device interface {
	Play(ctx context.Context, uri string) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Next(ctx context.Context) error
	Prev(ctx context.Context) error
	Stop(ctx context.Context) error
	State(ctx context.Context) (map[string]interface{}, error)
	Capabilities() []string
}

// Base is the façade every player process embeds (spec.md §4.4).
type Base struct {
	Device    Device
	Hub       *Hub
	Artwork   *ArtworkCache
	RouterURL string

	client *http.Client

	mu           sync.Mutex
	lastReported int
	cancelMonitor context.CancelFunc
}

func New(device Device, routerURL string) *Base {
	return &Base{
		Device:       device,
		Hub:          NewHub(),
		Artwork:      NewArtworkCache(),
		RouterURL:    routerURL,
		client:       &http.Client{Timeout: 2 * time.Second},
		lastReported: -1,
	}
}

// ReportVolumeToRouter POSTs an observed device-side volume change to the
// router, skipping the call entirely if unchanged since the last report
// (spec.md §4.4 "Volume echo suppression").
func (b *Base) ReportVolumeToRouter(ctx context.Context, v int) {
	b.mu.Lock()
	if v == b.lastReported {
		b.mu.Unlock()
		return
	}
	b.lastReported = v
	b.mu.Unlock()

	buf, _ := json.Marshal(map[string]int{"volume": v})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.RouterURL+"/volume/report", bytes.NewReader(buf))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := b.client.Do(req)
	if err != nil {
		slog.Warn("playerbase: report volume failed", "err", err)
		return
	}
	defer resp.Body.Close()
}

// NotifyPlaybackOverride tells the router an external playback change
// was observed so it can release the active-source slot if appropriate.
// Spec.md §4.4 notes this is currently a no-op stub on the router side;
// the call is still made so wiring matches the eventual real behavior.
func (b *Base) NotifyPlaybackOverride(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.RouterURL+"/playback_override", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := b.client.Do(req)
	if err != nil {
		slog.Warn("playerbase: playback override notify failed", "err", err)
		return
	}
	defer resp.Body.Close()
}

// StartMonitor launches the background task that watches the device for
// externally-driven changes (volume, playback state); fn is cancelled on
// Shutdown (spec.md §4.4 "Cancellation discipline").
func (b *Base) StartMonitor(parent context.Context, fn func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(parent)
	b.mu.Lock()
	b.cancelMonitor = cancel
	b.mu.Unlock()
	go fn(ctx)
}

// Shutdown cancels the monitor task; WS client cleanup happens in the
// HTTP layer's handler goroutines as connections close.
func (b *Base) Shutdown() {
	b.mu.Lock()
	cancel := b.cancelMonitor
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
