package cdsource

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/micro-nova/amplipi-go/internal/supervisor"
)

const (
	fadeDownDuration = 500 * time.Millisecond
	fadeDownSteps    = 10
	fadeUpDuration   = 800 * time.Millisecond
	fadeUpSteps      = 10
)

// TTSEngine synthesizes text to a playable audio file. Two are tried in
// order, primary then fallback (spec.md §4.8 "Uses one of two TTS
// engines with a fallback").
type TTSEngine interface {
	Name() string
	Synthesize(ctx context.Context, text, outPath string) error
}

// Announcer fades an Engine's volume down, plays a synthesized clip via
// a separate subprocess, then fades back up (spec.md §4.8 "TTS
// announcement").
type Announcer struct {
	engine    *Engine
	primary   TTSEngine
	fallback  TTSEngine
	playerBin string
	baseVol   int
}

func NewAnnouncer(engine *Engine, primary, fallback TTSEngine, playerBin string, baseVolume int) *Announcer {
	return &Announcer{engine: engine, primary: primary, fallback: fallback, playerBin: playerBin, baseVol: baseVolume}
}

// Announce synthesizes text and plays it with a fade-down/fade-up
// ramp around the clip (spec.md §4.8 steps).
func (a *Announcer) Announce(ctx context.Context, text, clipPath string) error {
	if err := a.synthesize(ctx, text, clipPath); err != nil {
		return err
	}

	a.fade(a.baseVol, 0, fadeDownDuration, fadeDownSteps)

	cmd := exec.CommandContext(ctx, supervisor.FindBinary(a.playerBin), clipPath)
	if err := supervisor.RunOnce(ctx, cmd); err != nil {
		slog.Warn("cdsource: tts clip playback failed", "err", err)
	}

	a.fade(0, a.baseVol, fadeUpDuration, fadeUpSteps)
	return nil
}

func (a *Announcer) synthesize(ctx context.Context, text, outPath string) error {
	if err := a.primary.Synthesize(ctx, text, outPath); err != nil {
		slog.Warn("cdsource: primary tts engine failed, trying fallback", "engine", a.primary.Name(), "err", err)
		if a.fallback == nil {
			return fmt.Errorf("cdsource: tts failed and no fallback configured: %w", err)
		}
		return a.fallback.Synthesize(ctx, text, outPath)
	}
	return nil
}

func (a *Announcer) fade(from, to int, duration time.Duration, steps int) {
	step := duration / time.Duration(steps)
	delta := float64(to-from) / float64(steps)
	for i := 1; i <= steps; i++ {
		v := int(float64(from) + delta*float64(i))
		if err := a.engine.SetVolume(v); err != nil {
			slog.Warn("cdsource: fade volume write failed", "err", err)
		}
		time.Sleep(step)
	}
}
