package volume_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/micro-nova/amplipi-go/internal/model"
	"github.com/micro-nova/amplipi-go/internal/volume"
)

// fakeDevice is an in-memory volume.device test double recording every
// write it receives, used to assert debounce coalescing without any
// real I/O.
type fakeDevice struct {
	mu        sync.Mutex
	writes    []int
	power     []bool
	volume    int
	on        bool
	haveVol   bool
	havePower bool
}

func (f *fakeDevice) writeVolume(ctx context.Context, v int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, v)
	f.volume = v
}

func (f *fakeDevice) readVolume(ctx context.Context) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume, f.haveVol
}

func (f *fakeDevice) writePower(ctx context.Context, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.power = append(f.power, on)
	f.on = on
}

func (f *fakeDevice) readPower(ctx context.Context) (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on, f.havePower
}

func (f *fakeDevice) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeDevice) lastWrite() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.writes) == 0 {
		return -1
	}
	return f.writes[len(f.writes)-1]
}

func TestSetVolume_ClampsToCap(t *testing.T) {
	dev := &fakeDevice{}
	base := volume.NewBase(dev, "test", 80, 40)

	base.SetVolume(150)
	if got := base.GetVolume(); got != 80 {
		t.Fatalf("GetVolume() = %d, want 80 (capped)", got)
	}
}

func TestSetVolume_DebouncesBurstToSingleWrite(t *testing.T) {
	dev := &fakeDevice{}
	base := volume.NewBase(dev, "test", model.MaxVolume, 40)

	base.SetVolume(10)
	base.SetVolume(20)
	base.SetVolume(30)

	time.Sleep(150 * time.Millisecond)

	if n := dev.writeCount(); n != 1 {
		t.Fatalf("writeCount() = %d, want 1 (burst coalesced)", n)
	}
	if got := dev.lastWrite(); got != 30 {
		t.Fatalf("lastWrite() = %d, want 30 (last value wins)", got)
	}
}

func TestIsOnCached_ReturnsWithoutIO(t *testing.T) {
	dev := &fakeDevice{havePower: true, on: true}
	base := volume.NewBase(dev, "test", model.MaxVolume, 40)

	base.PowerOn(context.Background())
	if !base.IsOnCached() {
		t.Fatalf("IsOnCached() = false, want true after PowerOn")
	}

	base.PowerOff(context.Background())
	if base.IsOnCached() {
		t.Fatalf("IsOnCached() = true, want false after PowerOff")
	}
}

func TestPowerOn_AppliesSafetyCap(t *testing.T) {
	dev := &fakeDevice{}
	base := volume.NewBase(dev, "test", model.MaxVolume, 40)

	base.SetVolume(90)
	time.Sleep(150 * time.Millisecond)

	base.PowerOn(context.Background())
	if got := base.GetVolume(); got != 40 {
		t.Fatalf("GetVolume() after PowerOn = %d, want 40 (safety cap)", got)
	}
}

func TestPassthrough_VolumeIsNoOpPowerOnly(t *testing.T) {
	p := volume.NewPassthrough()
	p.SetVolume(55)
	time.Sleep(150 * time.Millisecond)

	if got := p.GetVolume(); got != 55 {
		t.Fatalf("GetVolume() = %d, want 55 (local value tracked even though device ignores it)", got)
	}

	p.PowerOn(context.Background())
	if !p.IsOnCached() {
		t.Fatalf("IsOnCached() = false, want true after PowerOn")
	}
}
