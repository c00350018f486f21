package sourcebase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// PlayerClient wraps the HTTP calls a source with player="remote" makes
// against its configured player process (spec.md §4.3 "Outbound calls").
type PlayerClient struct {
	base *Base
	url  string
}

// Player returns a client bound to playerURL (e.g. "http://localhost:9300/player").
func (b *Base) Player(playerURL string) *PlayerClient {
	return &PlayerClient{base: b, url: playerURL}
}

func (p *PlayerClient) Play(ctx context.Context, uri string) error {
	return p.base.postJSON(ctx, p.url+"/play", map[string]string{"uri": uri}, nil)
}

func (p *PlayerClient) Pause(ctx context.Context) error {
	return p.base.postJSON(ctx, p.url+"/pause", struct{}{}, nil)
}

func (p *PlayerClient) Resume(ctx context.Context) error {
	return p.base.postJSON(ctx, p.url+"/resume", struct{}{}, nil)
}

func (p *PlayerClient) Next(ctx context.Context) error {
	return p.base.postJSON(ctx, p.url+"/next", struct{}{}, nil)
}

func (p *PlayerClient) Prev(ctx context.Context) error {
	return p.base.postJSON(ctx, p.url+"/prev", struct{}{}, nil)
}

func (p *PlayerClient) Stop(ctx context.Context) error {
	return p.base.postJSON(ctx, p.url+"/stop", struct{}{}, nil)
}

func (p *PlayerClient) State(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := p.base.getJSON(ctx, p.url+"/state", &out)
	return out, err
}

func (p *PlayerClient) Capabilities(ctx context.Context) ([]string, error) {
	var out []string
	err := p.base.getJSON(ctx, p.url+"/capabilities", &out)
	return out, err
}

func (b *Base) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
