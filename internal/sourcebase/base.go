// Package sourcebase implements the thin, uniform façade every source
// process implements (spec.md §4.3): identity, an action_map, the
// register/broadcast/player outbound calls, and the command dispatch
// contract with its handle_raw_action override hook. Grounded on the
// teacher's Streamer base (internal/streams/base.go and
// internal/streams/stream.go) generalized from "one stream kind" to
// "one source kind", and its SubprocStream backoff pattern generalized
// into the linear register retry below.
package sourcebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/micro-nova/amplipi-go/internal/model"
)

// RawActionHandler lets a concrete source intercept a forwarded action
// before action_map translation, used by the CD source to claim the
// "cd" source-select button itself (spec.md §4.3).
type RawActionHandler func(action string) (command string, data map[string]interface{}, handled bool)

// Base is the façade every source process embeds.
type Base struct {
	ID         string
	Name       string
	Port       int
	Player     model.PlayerMode
	ActionMap  map[string]string
	RouterURL  string
	UIBridgeURL string

	HandleRawAction RawActionHandler

	client *http.Client

	mu             sync.Mutex
	lastHandles    []string
	registeredOnce bool
}

// New creates a Base. routerURL and uiBridgeURL are the base URLs of the
// router and UI bridge (e.g. "http://localhost:9595/router").
func New(id, name string, port int, player model.PlayerMode, actionMap map[string]string, routerURL, uiBridgeURL string) *Base {
	return &Base{
		ID:          id,
		Name:        name,
		Port:        port,
		Player:      player,
		ActionMap:   actionMap,
		RouterURL:   routerURL,
		UIBridgeURL: uiBridgeURL,
		client:      &http.Client{Timeout: 3 * time.Second},
	}
}

// Register POSTs a registration payload to the router. Only the initial
// register call retries: 5 attempts with linear 2n-second backoff, to
// survive a slow router startup (spec.md §4.3 "Retry policy"). Every
// later call on the same Base makes a single attempt.
func (b *Base) Register(ctx context.Context, state model.SourceState, commandURL string, handles []string, navigate, autoPower bool) error {
	b.mu.Lock()
	b.lastHandles = handles
	attempts := 1
	if !b.registeredOnce {
		attempts = 5
		b.registeredOnce = true
	}
	b.mu.Unlock()

	req := model.RegisterRequest{
		ID:         b.ID,
		State:      state,
		Name:       b.Name,
		CommandURL: commandURL,
		Player:     b.Player,
		Handles:    handles,
	}
	if navigate {
		t := true
		req.Navigate = &t
	}
	if autoPower {
		t := true
		req.AutoPower = &t
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := b.postJSON(ctx, b.RouterURL+"/source", req, nil); err != nil {
			lastErr = err
			slog.Warn("sourcebase: register attempt failed", "id", b.ID, "attempt", attempt, "err", err)
			if attempt == attempts {
				break
			}
			select {
			case <-time.After(time.Duration(2*attempt) * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("sourcebase: register gave up after %d attempts: %w", attempts, lastErr)
}

// Broadcast POSTs a UI event to the UI bridge, single-shot, short timeout.
func (b *Base) Broadcast(ctx context.Context, eventType string, data map[string]interface{}) {
	cmd := map[string]interface{}{"command": "broadcast", "params": map[string]interface{}{"type": eventType, "data": data}}
	if err := b.postJSON(ctx, b.UIBridgeURL+"/command", cmd, nil); err != nil {
		slog.Warn("sourcebase: broadcast failed", "id", b.ID, "event_type", eventType, "err", err)
	}
}

func (b *Base) postJSON(ctx context.Context, url string, body interface{}, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned %d", url, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// Translate maps a raw action name to this source's higher-level command
// vocabulary via action_map, or returns the action unchanged if unmapped.
func (b *Base) Translate(action string) string {
	if cmd, ok := b.ActionMap[action]; ok {
		return cmd
	}
	return action
}
