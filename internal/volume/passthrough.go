package volume

import (
	"context"

	"github.com/micro-nova/amplipi-go/internal/model"
)

// Passthrough is a no-op volume adapter (analog passthrough): volume is
// not controllable, only mute/unmute toggles power (spec.md §4.5 taxonomy).
type Passthrough struct {
	*Base
}

func NewPassthrough() *Passthrough {
	p := &Passthrough{}
	p.Base = NewBase(p, "passthrough", model.MaxVolume, model.MaxVolume)
	return p
}

func (p *Passthrough) writeVolume(ctx context.Context, v int) {}
func (p *Passthrough) readVolume(ctx context.Context) (int, bool) { return 0, false }
func (p *Passthrough) writePower(ctx context.Context, on bool)    {}
func (p *Passthrough) readPower(ctx context.Context) (bool, bool) { return false, false }
