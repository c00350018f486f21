package registry_test

import (
	"context"
	"sync"
	"testing"

	"github.com/micro-nova/amplipi-go/internal/model"
	"github.com/micro-nova/amplipi-go/internal/registry"
)

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, eventType string, _ map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
}

func (f *fakeBroadcaster) count(eventType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e == eventType {
			n++
		}
	}
	return n
}

type fakeNotifier struct {
	mu    sync.Mutex
	stops []string
}

func (f *fakeNotifier) Stop(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops = append(f.stops, url)
	return nil
}

func (f *fakeNotifier) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stops)
}

func TestExclusivity_OnlyOneActiveAtATime(t *testing.T) {
	bc := &fakeBroadcaster{}
	nf := &fakeNotifier{}
	r := registry.New(nil, bc, nf, nil)

	ctx := context.Background()
	_, err := r.Register(ctx, model.RegisterRequest{ID: "cd", State: model.SourcePlaying, CommandURL: "http://localhost:8769/command"})
	if err != nil {
		t.Fatalf("register cd: %v", err)
	}
	_, err = r.Register(ctx, model.RegisterRequest{ID: "spotify", State: model.SourcePlaying, CommandURL: "http://localhost:8771/command"})
	if err != nil {
		t.Fatalf("register spotify: %v", err)
	}

	active := 0
	for _, s := range r.All() {
		if s.State.IsActiveState() {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly 1 active source, got %d", active)
	}
	if r.ActiveID() != "spotify" {
		t.Fatalf("expected spotify active, got %q", r.ActiveID())
	}
	if nf.stopCount() != 1 {
		t.Fatalf("expected exactly 1 stop call to previous active source, got %d", nf.stopCount())
	}
	if bc.count("source_change") != 2 {
		t.Fatalf("expected 2 source_change broadcasts (cd then spotify), got %d", bc.count("source_change"))
	}
}

func TestGoneSourceRemovedFromActiveSlot(t *testing.T) {
	bc := &fakeBroadcaster{}
	r := registry.New(nil, bc, nil, nil)
	ctx := context.Background()

	r.Register(ctx, model.RegisterRequest{ID: "cd", State: model.SourcePlaying, CommandURL: "http://x/command"})
	if r.ActiveID() != "cd" {
		t.Fatalf("expected cd active")
	}
	r.Register(ctx, model.RegisterRequest{ID: "cd", State: model.SourceGone})
	if r.ActiveID() != "" {
		t.Fatalf("expected active slot cleared after gone, got %q", r.ActiveID())
	}
}

func TestMenuVisibility_GoneSourceVisibilityMatchesFromConfigRule(t *testing.T) {
	configEntries := []model.ConfigEntry{
		{Title: "CD", ID: "cd"},
		{Title: "Spotify", ID: "spotify", Hidden: true},
	}
	r := registry.New(configEntries, &fakeBroadcaster{}, nil, nil)
	ctx := context.Background()

	menu := r.Menu()
	found := false
	for _, it := range menu.Items {
		if it.ID == "cd" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected from_config, non-hidden, gone source 'cd' to appear in menu")
	}

	for _, it := range menu.Items {
		if it.ID == "spotify" {
			t.Fatalf("expected from_config+initial_hidden gone source 'spotify' to be absent, found %+v", it)
		}
	}

	r.Register(ctx, model.RegisterRequest{ID: "spotify", State: model.SourceAvailable, Name: "Spotify"})
	menu = r.Menu()
	for _, it := range menu.Items {
		if it.ID == "spotify" && it.Hidden {
			t.Fatalf("expected spotify visible after registering available, got hidden entry")
		}
	}
}

func TestRegisterTwiceAvailableIsIdempotent(t *testing.T) {
	bc := &fakeBroadcaster{}
	r := registry.New(nil, bc, nil, nil)
	ctx := context.Background()

	r.Register(ctx, model.RegisterRequest{ID: "news", State: model.SourceAvailable, Name: "News"})
	r.Register(ctx, model.RegisterRequest{ID: "news", State: model.SourceAvailable, Name: "News"})

	if bc.count("menu_item") != 1 {
		t.Fatalf("expected exactly 1 menu_item broadcast for repeated available registration, got %d", bc.count("menu_item"))
	}
}

func TestS5_DiscInsertThenEject(t *testing.T) {
	configEntries := []model.ConfigEntry{{Title: "CD", ID: "cd"}}
	bc := &fakeBroadcaster{}
	r := registry.New(configEntries, bc, nil, nil)
	ctx := context.Background()

	r.Register(ctx, model.RegisterRequest{ID: "cd", State: model.SourceAvailable, Name: "CD", CommandURL: "http://localhost:8769/command"})
	r.Register(ctx, model.RegisterRequest{ID: "cd", State: model.SourceGone})

	menu := r.Menu()
	for _, it := range menu.Items {
		if it.ID == "cd" && it.Hidden {
			t.Fatalf("expected 'cd' visible (from_config, not initial_hidden) even while gone")
		}
	}
}
