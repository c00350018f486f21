package playerbase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os/exec"
	"sync"
	"time"

	"github.com/micro-nova/amplipi-go/internal/supervisor"
)

// VLCDevice drives playback via VLC's HTTP control interface, the
// concrete Device a player process embeds (spec.md §4.4), grounded on
// the teacher's FilePlayerStream (internal/streams/fileplayer.go)
// generalized from "play one fixed local file" to "play an arbitrary
// caller-supplied URI" and restart-supervised rather than activate/
// deactivate-managed, since a player process in this design is always
// backing one long-lived playerbase.Base.
type VLCDevice struct {
	httpPort int
	baseURL  string // host:port of the HTTP control interface, overridable in tests
	password string
	client   *http.Client

	mu  sync.Mutex
	sup *supervisor.Supervisor
}

func NewVLCDevice(httpPort int) *VLCDevice {
	return &VLCDevice{
		httpPort: httpPort,
		baseURL:  fmt.Sprintf("127.0.0.1:%d", httpPort),
		password: "amplipi",
		client:   &http.Client{Timeout: 3 * time.Second},
	}
}

func (d *VLCDevice) Play(ctx context.Context, uri string) error {
	d.mu.Lock()
	if d.sup != nil {
		d.mu.Unlock()
		return d.command(ctx, "in_play", map[string]string{"input": uri})
	}
	sup := supervisor.NewWithPolicy("player/vlc", func() *exec.Cmd {
		return exec.Command(supervisor.FindBinary("vlc"),
			"--intf", "http",
			"--http-host", "127.0.0.1",
			"--http-port", fmt.Sprintf("%d", d.httpPort),
			"--http-password", d.password,
			"--no-video",
			uri,
		)
	}, supervisor.PlaybackBackendPolicy())
	d.sup = sup
	d.mu.Unlock()
	return sup.Start(ctx)
}

func (d *VLCDevice) Pause(ctx context.Context) error  { return d.command(ctx, "pl_pause", nil) }
func (d *VLCDevice) Resume(ctx context.Context) error { return d.command(ctx, "pl_play", nil) }
func (d *VLCDevice) Next(ctx context.Context) error   { return d.command(ctx, "pl_next", nil) }
func (d *VLCDevice) Prev(ctx context.Context) error   { return d.command(ctx, "pl_previous", nil) }

func (d *VLCDevice) Stop(ctx context.Context) error {
	if err := d.command(ctx, "pl_stop", nil); err != nil {
		slog.Warn("playerbase: vlc stop command failed", "err", err)
	}
	d.mu.Lock()
	sup := d.sup
	d.sup = nil
	d.mu.Unlock()
	if sup != nil {
		return sup.Stop()
	}
	return nil
}

func (d *VLCDevice) State(ctx context.Context) (map[string]interface{}, error) {
	status, err := d.status(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"state":    status.State,
		"position": status.Position,
		"volume":   status.Volume,
	}, nil
}

func (d *VLCDevice) Capabilities() []string {
	return []string{"play", "pause", "resume", "next", "prev", "stop"}
}

func (d *VLCDevice) command(ctx context.Context, cmd string, params map[string]string) error {
	q := url.Values{"command": {cmd}}
	for k, v := range params {
		q.Set(k, v)
	}
	reqURL := fmt.Sprintf("http://%s/requests/status.json?%s", d.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth("", d.password)
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("playerbase: vlc command %q returned %d", cmd, resp.StatusCode)
	}
	return nil
}

type vlcStatus struct {
	State    string  `json:"state"`
	Position float64 `json:"position"`
	Volume   int     `json:"volume"`
}

func (d *VLCDevice) status(ctx context.Context) (vlcStatus, error) {
	var status vlcStatus
	reqURL := fmt.Sprintf("http://%s/requests/status.json", d.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return status, err
	}
	req.SetBasicAuth("", d.password)
	resp, err := d.client.Do(req)
	if err != nil {
		return status, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return status, err
	}
	if err := json.Unmarshal(data, &status); err != nil {
		return status, err
	}
	return status, nil
}
