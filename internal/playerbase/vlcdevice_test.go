package playerbase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestVLCDevice(t *testing.T, handler http.HandlerFunc) (*VLCDevice, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	d := &VLCDevice{
		baseURL:  strings.TrimPrefix(srv.URL, "http://"),
		password: "amplipi",
		client:   &http.Client{Timeout: 2 * time.Second},
	}
	return d, srv
}

func TestVLCDevice_StateParsesStatusJSON(t *testing.T) {
	d, srv := newTestVLCDevice(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"state":"playing","position":0.42,"volume":180}`))
	})
	defer srv.Close()

	state, err := d.State(context.Background())
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state["state"] != "playing" {
		t.Fatalf("state = %v, want playing", state["state"])
	}
	if v, ok := state["volume"].(int); !ok || v != 180 {
		t.Fatalf("volume = %v, want 180", state["volume"])
	}
}

func TestVLCDevice_CommandSendsExpectedQuery(t *testing.T) {
	var gotCommand, gotInput string
	d, srv := newTestVLCDevice(t, func(w http.ResponseWriter, r *http.Request) {
		gotCommand = r.URL.Query().Get("command")
		gotInput = r.URL.Query().Get("input")
		w.Write([]byte(`{}`))
	})
	defer srv.Close()

	if err := d.command(context.Background(), "in_play", map[string]string{"input": "http://example.invalid/track.mp3"}); err != nil {
		t.Fatalf("command: %v", err)
	}
	if gotCommand != "in_play" {
		t.Fatalf("command = %q, want in_play", gotCommand)
	}
	if gotInput != "http://example.invalid/track.mp3" {
		t.Fatalf("input = %q", gotInput)
	}
}

func TestVLCDevice_CommandErrorsOnNonSuccessStatus(t *testing.T) {
	d, srv := newTestVLCDevice(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer srv.Close()

	if err := d.Pause(context.Background()); err == nil {
		t.Fatal("expected an error from a 500 response")
	}
}

func TestVLCDevice_Capabilities(t *testing.T) {
	d := NewVLCDevice(8080)
	caps := d.Capabilities()
	want := map[string]bool{"play": true, "pause": true, "resume": true, "next": true, "prev": true, "stop": true}
	if len(caps) != len(want) {
		t.Fatalf("capabilities = %v, want %d entries", caps, len(want))
	}
	for _, c := range caps {
		if !want[c] {
			t.Fatalf("unexpected capability %q", c)
		}
	}
}
