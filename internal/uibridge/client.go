package uibridge

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Client POSTs broadcast events to the UI bridge's /command endpoint,
// wrapping them as a "broadcast" command per spec.md §4.7's transparent
// fan-out entry. It satisfies internal/registry.Broadcaster.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, client: &http.Client{Timeout: 1 * time.Second}}
}

func (c *Client) Broadcast(ctx context.Context, eventType string, data map[string]interface{}) {
	cmd := Command{Command: "broadcast", Params: map[string]interface{}{"type": eventType, "data": data}}
	buf, err := json.Marshal(cmd)
	if err != nil {
		slog.Warn("uibridge: marshal broadcast failed", "err", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/command", bytes.NewReader(buf))
	if err != nil {
		slog.Warn("uibridge: build broadcast request failed", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		slog.Warn("uibridge: broadcast delivery failed", "event_type", eventType, "err", err)
		return
	}
	defer resp.Body.Close()
}
