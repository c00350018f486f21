package volume

import (
	"context"
	"encoding/xml"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CloudSpeaker drives volume via HTTP/XML to the device's local API, the
// adapter used when a cloud-speaker player implies cloud-speaker volume
// by default (spec.md §4.5).
type CloudSpeaker struct {
	*Base
	client  *http.Client
	baseURL string
}

func NewCloudSpeaker(baseURL string, max, safeCap int) *CloudSpeaker {
	c := &CloudSpeaker{client: &http.Client{Timeout: 2 * time.Second}, baseURL: baseURL}
	c.Base = NewBase(c, "cloud_speaker", max, safeCap)
	return c
}

type cloudVolumeXML struct {
	XMLName xml.Name `xml:"volume"`
	Value   int      `xml:"value"`
}

func (c *CloudSpeaker) writeVolume(ctx context.Context, v int) {
	body, _ := xml.Marshal(cloudVolumeXML{Value: v})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/volume", strings.NewReader(string(body)))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "text/xml")
	resp, err := c.client.Do(req)
	if err != nil {
		slog.Warn("cloud_speaker: set volume failed", "err", err)
		return
	}
	defer resp.Body.Close()
}

func (c *CloudSpeaker) readVolume(ctx context.Context) (int, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/volume", nil)
	if err != nil {
		return 0, false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, false
	}
	defer resp.Body.Close()
	var v cloudVolumeXML
	if err := xml.NewDecoder(resp.Body).Decode(&v); err != nil {
		return 0, false
	}
	return v.Value, true
}

func (c *CloudSpeaker) writePower(ctx context.Context, on bool) {
	path := "/power/off"
	if on {
		path = "/power/on"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return
	}
	resp, err := c.client.Do(req)
	if err != nil {
		slog.Warn("cloud_speaker: set power failed", "err", err, "on", on)
		return
	}
	defer resp.Body.Close()
}

func (c *CloudSpeaker) readPower(ctx context.Context) (bool, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/power", nil)
	if err != nil {
		return false, false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, false
	}
	defer resp.Body.Close()
	buf := make([]byte, 16)
	n, _ := resp.Body.Read(buf)
	on, err := strconv.ParseBool(strings.TrimSpace(string(buf[:n])))
	if err != nil {
		return false, false
	}
	return on, true
}
