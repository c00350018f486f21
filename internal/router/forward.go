package router

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/micro-nova/amplipi-go/internal/model"
)

// forwardToSource POSTs the raw action event to a source's command_url
// with a 1s timeout (spec.md §4.1 steps 1 and 2). Failure is logged at
// warning level and swallowed: the router never retries or reports
// dispatch failures back to the collector.
func forwardToSource(ctx context.Context, d Deps, commandURL string, ev model.ActionEvent) {
	client := d.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, forwardTimeout)
	defer cancel()

	buf, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("router: marshal action event failed", "err", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, commandURL, bytes.NewReader(buf))
	if err != nil {
		slog.Warn("router: build forward request failed", "url", commandURL, "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("router: forward to source failed", "url", commandURL, "err", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		slog.Warn("router: forward to source returned non-2xx", "url", commandURL, "status", resp.StatusCode)
	}
}
