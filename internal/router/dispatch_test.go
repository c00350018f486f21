package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/micro-nova/amplipi-go/internal/model"
	"github.com/micro-nova/amplipi-go/internal/router"
)

type fakeSources struct {
	active model.Source
	hasActive bool
	byID   map[string]model.Source
}

func (f *fakeSources) Get(id string) (model.Source, bool) {
	s, ok := f.byID[id]
	return s, ok
}

func (f *fakeSources) Active() (model.Source, bool) {
	return f.active, f.hasActive
}

type fakeVolume struct {
	mu       sync.Mutex
	volume   int
	balance  int
	on       bool
	powerOns int
}

func (v *fakeVolume) SetVolume(n int) { v.mu.Lock(); v.volume = n; v.mu.Unlock() }
func (v *fakeVolume) GetVolume() int  { v.mu.Lock(); defer v.mu.Unlock(); return v.volume }
func (v *fakeVolume) SetBalance(b int) { v.mu.Lock(); v.balance = b; v.mu.Unlock() }
func (v *fakeVolume) GetBalance() int  { v.mu.Lock(); defer v.mu.Unlock(); return v.balance }
func (v *fakeVolume) IsOnCached() bool { v.mu.Lock(); defer v.mu.Unlock(); return v.on }
func (v *fakeVolume) PowerOn(ctx context.Context)  { v.mu.Lock(); v.on = true; v.powerOns++; v.mu.Unlock() }
func (v *fakeVolume) PowerOff(ctx context.Context) { v.mu.Lock(); v.on = false; v.mu.Unlock() }

type fakeTransport struct {
	mu    sync.Mutex
	sent  int
}

func (t *fakeTransport) Send(ctx context.Context, event interface{}) {
	t.mu.Lock()
	t.sent++
	t.mu.Unlock()
}

func (t *fakeTransport) sentCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent
}

func TestDispatch_ActiveSourceHandlesTakesPriority(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sources := &fakeSources{
		active:    model.Source{ID: "cd", State: model.SourcePlaying, Handles: []string{"play"}, CommandURL: srv.URL},
		hasActive: true,
	}
	d := router.Deps{Sources: sources, Volume: &fakeVolume{}, Transport: &fakeTransport{}}
	outcome := router.Dispatch(context.Background(), d, model.ActionEvent{Action: "play", DeviceType: model.DeviceAudio}, "")
	if outcome != router.OutcomeForwardedToActiveSourceHandles {
		t.Fatalf("outcome = %v, want active_source_handles", outcome)
	}
	time.Sleep(50 * time.Millisecond)
	if hits != 1 {
		t.Fatalf("forwarded %d times, want 1", hits)
	}
}

func TestDispatch_SourceSelectButton(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sources := &fakeSources{byID: map[string]model.Source{
		"spotify": {ID: "spotify", State: model.SourceAvailable, CommandURL: srv.URL},
	}}
	d := router.Deps{Sources: sources, Volume: &fakeVolume{}, Transport: &fakeTransport{}}
	outcome := router.Dispatch(context.Background(), d, model.ActionEvent{Action: "spotify", DeviceType: model.DeviceAudio}, "")
	if outcome != router.OutcomeForwardedToSourceSelect {
		t.Fatalf("outcome = %v, want source_select", outcome)
	}
	time.Sleep(50 * time.Millisecond)
	if hits != 1 {
		t.Fatalf("forwarded %d times, want 1", hits)
	}
}

func TestDispatch_VolUp_PowersOnWhenOff(t *testing.T) {
	vol := &fakeVolume{volume: 10, on: false}
	sources := &fakeSources{}
	d := router.Deps{Sources: sources, Volume: vol, Transport: &fakeTransport{}, VolStep: 5}
	outcome := router.Dispatch(context.Background(), d, model.ActionEvent{Action: "volup", DeviceType: model.DeviceAudio}, "")
	if outcome != router.OutcomeVolume {
		t.Fatalf("outcome = %v, want volume", outcome)
	}
	time.Sleep(50 * time.Millisecond)
	if vol.powerOns != 1 {
		t.Fatalf("powerOns = %d, want 1", vol.powerOns)
	}
	if got := vol.GetVolume(); got != 15 {
		t.Fatalf("volume = %d, want 15", got)
	}
}

func TestDispatch_Balance_ClampsToRange(t *testing.T) {
	vol := &fakeVolume{balance: 18}
	d := router.Deps{Sources: &fakeSources{}, Volume: vol, Transport: &fakeTransport{}, BalanceStep: 5}
	outcome := router.Dispatch(context.Background(), d, model.ActionEvent{Action: "chup", DeviceType: model.DeviceAudio}, "")
	if outcome != router.OutcomeBalance {
		t.Fatalf("outcome = %v, want balance", outcome)
	}
	time.Sleep(50 * time.Millisecond)
	if got := vol.GetBalance(); got != model.MaxBalance {
		t.Fatalf("balance = %d, want clamped to %d", got, model.MaxBalance)
	}
}

func TestDispatch_Off_PowersOffThenFallsThroughToTransport(t *testing.T) {
	vol := &fakeVolume{on: true}
	transport := &fakeTransport{}
	d := router.Deps{Sources: &fakeSources{}, Volume: vol, Transport: transport}
	outcome := router.Dispatch(context.Background(), d, model.ActionEvent{Action: "off", DeviceType: model.DeviceAudio}, "")
	if outcome != router.OutcomeOff {
		t.Fatalf("outcome = %v, want off", outcome)
	}
	if transport.sentCount() != 1 {
		t.Fatalf("sentCount = %d, want 1 (off falls through to transport)", transport.sentCount())
	}
}

func TestDispatch_EatingView_SwallowsNavigationButtons(t *testing.T) {
	transport := &fakeTransport{}
	d := router.Deps{
		Sources:     &fakeSources{},
		Volume:      &fakeVolume{},
		Transport:   transport,
		EatingViews: map[string]bool{"system": true},
	}
	outcome := router.Dispatch(context.Background(), d, model.ActionEvent{Action: "go", DeviceType: model.DeviceVideo}, "system")
	if outcome != router.OutcomeEaten {
		t.Fatalf("outcome = %v, want eaten", outcome)
	}
	if transport.sentCount() != 0 {
		t.Fatalf("sentCount = %d, want 0 (swallowed)", transport.sentCount())
	}
}

func TestDispatch_FallsBackToTransport(t *testing.T) {
	transport := &fakeTransport{}
	d := router.Deps{Sources: &fakeSources{}, Volume: &fakeVolume{}, Transport: transport}
	outcome := router.Dispatch(context.Background(), d, model.ActionEvent{Action: "red", DeviceType: model.DeviceLight}, "")
	if outcome != router.OutcomeTransport {
		t.Fatalf("outcome = %v, want transport", outcome)
	}
	if transport.sentCount() != 1 {
		t.Fatalf("sentCount = %d, want 1", transport.sentCount())
	}
}
