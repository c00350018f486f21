package volume

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// DACMixer drives a local mixer daemon over HTTP, the adapter for
// directly-driven DAC outputs (spec.md §4.5 taxonomy).
type DACMixer struct {
	*Base
	client  *http.Client
	baseURL string
}

// NewDACMixer creates a DAC-mixer adapter talking to baseURL (e.g.
// "http://localhost:9090").
func NewDACMixer(baseURL string, max, safeCap int) *DACMixer {
	d := &DACMixer{client: &http.Client{Timeout: 2 * time.Second}, baseURL: baseURL}
	d.Base = NewBase(d, "dac_mixer", max, safeCap)
	return d
}

func (d *DACMixer) post(ctx context.Context, path string, body map[string]interface{}) error {
	buf, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("dac_mixer: %s returned %d", path, resp.StatusCode)
	}
	return nil
}

func (d *DACMixer) writeVolume(ctx context.Context, v int) {
	if err := d.post(ctx, "/volume", map[string]interface{}{"volume": v}); err != nil {
		slog.Warn("dac_mixer: set volume failed", "err", err)
	}
}

func (d *DACMixer) readVolume(ctx context.Context) (int, bool) {
	return 0, false
}

func (d *DACMixer) writePower(ctx context.Context, on bool) {
	action := "mute"
	if on {
		action = "power"
	}
	if err := d.post(ctx, "/"+action, map[string]interface{}{"on": on}); err != nil {
		slog.Warn("dac_mixer: set power failed", "err", err)
	}
}

func (d *DACMixer) readPower(ctx context.Context) (bool, bool) {
	return false, false
}
