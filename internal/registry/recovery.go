package registry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ProbeResync issues GET http://localhost:<port>/resync in parallel to
// every configured (source_id, port) tuple immediately after the router
// binds its HTTP port, so a router restart is transparent (spec.md §4.2
// "Startup recovery"). Sources that are up respond 2xx and separately
// re-register themselves via POST /router/source; this function does
// not itself mutate the registry.
func ProbeResync(ctx context.Context, client *http.Client, ports map[string]int) {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}
	var wg sync.WaitGroup
	for id, port := range ports {
		wg.Add(1)
		go func(id string, port int) {
			defer wg.Done()
			url := fmt.Sprintf("http://localhost:%d/resync", port)
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return
			}
			resp, err := client.Do(req)
			if err != nil {
				slog.Debug("registry: resync probe failed", "id", id, "url", url, "err", err)
				return
			}
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				slog.Info("registry: resync probe succeeded", "id", id, "url", url)
			}
		}(id, port)
	}
	wg.Wait()
}
