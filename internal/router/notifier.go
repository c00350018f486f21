package router

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"
)

// Notifier delivers {"action":"stop"} to a source's command_url,
// satisfying internal/registry.Notifier (spec.md §4.2 "Enter playing
// while previous active exists").
type Notifier struct {
	client *http.Client
}

func NewNotifier() *Notifier {
	return &Notifier{client: &http.Client{Timeout: 1 * time.Second}}
}

func (n *Notifier) Stop(ctx context.Context, commandURL string) error {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, commandURL, bytes.NewReader([]byte(`{"action":"stop"}`)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("router: stop notify returned %d", resp.StatusCode)
	}
	return nil
}
