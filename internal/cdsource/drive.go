// Package cdsource implements the CD source state machine of spec.md
// §4.8: drive watcher, metadata fetcher, gapless chapter-based playback
// engine, pause timeout, TTS announcement, and rip. Built on
// internal/sourcebase.Base for the router/UI-bridge façade and
// internal/supervisor for every subprocess it launches, grounded on the
// teacher's stream supervisor and its device-presence polling idiom
// (internal/streams/manager.go reconciliation loop generalized from "N
// configured streams" to "one drive's presence/disc state").
package cdsource

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

const (
	drivePollInterval = 2 * time.Second
	startupGrace      = 6 * time.Second
)

// TOC is a disc's table of contents as read by a TOC probe.
type TOC struct {
	Tracks []TOCTrack
}

// TOCTrack is one track's raw frame offset (75 frames/sec) and length.
type TOCTrack struct {
	Num          int
	FrameOffset  int
	LengthFrames int
}

// TOCProber reads drive/disc presence and the table of contents. Audio
// CDs are unreadable with plain block I/O, so this is a distinct
// abstraction from a filesystem stat (spec.md §4.8 "Drive watcher").
type TOCProber interface {
	DrivePresent() bool
	ReadTOC() (TOC, error)
}

// DriveCallbacks are invoked on drive/disc presence transitions.
type DriveCallbacks struct {
	OnDiscInserted func(ctx context.Context, toc TOC, startupGrace bool)
	OnDiscEjected  func(ctx context.Context)
}

// Watcher polls drive and disc presence every 2s and invokes callbacks
// on transitions (spec.md §4.8).
type Watcher struct {
	prober TOCProber
	cb     DriveCallbacks

	mu           sync.Mutex
	driveWasIn   bool
	discWasIn    bool
	startedAt    time.Time
}

func NewWatcher(prober TOCProber, cb DriveCallbacks) *Watcher {
	return &Watcher{prober: prober, cb: cb}
}

// Run polls until ctx is cancelled. Intended to be launched as its own
// goroutine from cmd/cdsource.
func (w *Watcher) Run(ctx context.Context) {
	w.mu.Lock()
	w.startedAt = time.Now()
	w.mu.Unlock()

	ticker := time.NewTicker(drivePollInterval)
	defer ticker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	drivePresent := w.prober.DrivePresent()

	w.mu.Lock()
	wasDiscIn := w.discWasIn
	inGrace := time.Since(w.startedAt) < startupGrace
	w.driveWasIn = drivePresent
	w.mu.Unlock()

	if !drivePresent {
		if wasDiscIn {
			w.setDiscIn(false)
			if w.cb.OnDiscEjected != nil {
				w.cb.OnDiscEjected(ctx)
			}
		}
		return
	}

	toc, err := w.prober.ReadTOC()
	discIn := err == nil && len(toc.Tracks) > 0

	if discIn && !wasDiscIn {
		w.setDiscIn(true)
		if w.cb.OnDiscInserted != nil {
			w.cb.OnDiscInserted(ctx, toc, inGrace)
		}
	} else if !discIn && wasDiscIn {
		w.setDiscIn(false)
		if w.cb.OnDiscEjected != nil {
			w.cb.OnDiscEjected(ctx)
		}
	}
}

func (w *Watcher) setDiscIn(in bool) {
	w.mu.Lock()
	w.discWasIn = in
	w.mu.Unlock()
}

// BlockTOCProber is the default TOCProber: drive presence is a device
// node stat, TOC reading shells out to an external disc-id/TOC-reading
// tool via the caller-supplied readTOC function (kept injectable so the
// heavy lifting of parsing a specific tool's output lives in one small
// function, easy to swap per platform).
type BlockTOCProber struct {
	DevicePath string
	ReadTOCFn  func(devicePath string) (TOC, error)
}

func (p *BlockTOCProber) DrivePresent() bool {
	_, err := os.Stat(p.DevicePath)
	return err == nil
}

func (p *BlockTOCProber) ReadTOC() (TOC, error) {
	if p.ReadTOCFn == nil {
		slog.Warn("cdsource: no ReadTOCFn configured, reporting no disc")
		return TOC{}, os.ErrNotExist
	}
	return p.ReadTOCFn(p.DevicePath)
}
