package cdsource

import (
	"context"
	"os/exec"

	"github.com/micro-nova/amplipi-go/internal/supervisor"
)

// EspeakEngine synthesizes via espeak-ng, the default primary TTSEngine
// (spec.md §4.8), run to completion like every other one-shot subprocess
// in this package (rip, clip playback).
type EspeakEngine struct {
	Binary string // defaults to "espeak-ng"
	Voice  string
}

func NewEspeakEngine() *EspeakEngine {
	return &EspeakEngine{Binary: "espeak-ng", Voice: "en-us"}
}

func (e *EspeakEngine) Name() string { return "espeak-ng" }

func (e *EspeakEngine) Synthesize(ctx context.Context, text, outPath string) error {
	binary := e.Binary
	if binary == "" {
		binary = "espeak-ng"
	}
	cmd := exec.CommandContext(ctx, supervisor.FindBinary(binary), "-v", e.Voice, "-w", outPath, text)
	return supervisor.RunOnce(ctx, cmd)
}

// FestivalEngine synthesizes via festival's text2wave, the fallback
// TTSEngine when espeak-ng is unavailable or fails (spec.md §4.8 "Uses
// one of two TTS engines with a fallback").
type FestivalEngine struct {
	Binary string // defaults to "text2wave"
}

func NewFestivalEngine() *FestivalEngine {
	return &FestivalEngine{Binary: "text2wave"}
}

func (f *FestivalEngine) Name() string { return "festival" }

func (f *FestivalEngine) Synthesize(ctx context.Context, text, outPath string) error {
	binary := f.Binary
	if binary == "" {
		binary = "text2wave"
	}
	cmd := exec.CommandContext(ctx, supervisor.FindBinary(binary), "-o", outPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	go func() {
		defer stdin.Close()
		_, _ = stdin.Write([]byte(text))
	}()
	return supervisor.RunOnce(ctx, cmd)
}
