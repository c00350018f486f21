package cdsource

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/micro-nova/amplipi-go/internal/model"
)

const pauseTimeout = 5 * time.Minute

// EngineCallbacks are invoked by the playback engine on state changes
// that the owning source needs to react to. CDSource answers each of
// them with a UI broadcast only; none of them re-registers with the
// router.
type EngineCallbacks struct {
	OnTrackChange func(track int)
	OnPauseTimeout func()
	OnDiscEnd      func()
}

// Engine is the chapter-based gapless playback engine of spec.md §4.8.
// One Engine exists for the CDSource's lifetime; eject stops it and the
// next disc reuses it.
type Engine struct {
	binary       string
	chaptersPath string
	cb           EngineCallbacks

	mu           sync.Mutex
	tracks       []model.Track
	currentTrack int
	pendingTrack int
	hasPending   bool
	shuffle      bool
	repeat       bool
	shuffleOrder []int
	state        model.PlaybackState

	mpv       *mpvProcess
	pauseTimer *time.Timer
}

func NewEngine(binary, chaptersDir string, cb EngineCallbacks) *Engine {
	return &Engine{
		binary:       binary,
		chaptersPath: filepath.Join(chaptersDir, "cd-chapters.txt"),
		cb:           cb,
		state:        model.CDStopped,
	}
}

// PlayTrack starts playback at track n (1-indexed). On first call this
// writes the chapters file and launches the subprocess with the whole
// disc; on subsequent calls while the subprocess is alive it seeks
// instead, achieving gapless transitions (spec.md §4.8 steps 1-2).
func (e *Engine) PlayTrack(ctx context.Context, tracks []model.Track, n int) error {
	e.mu.Lock()
	e.tracks = tracks
	alive := e.mpv != nil
	e.mu.Unlock()

	if !alive {
		if err := writeChaptersFile(e.chaptersPath, tracks); err != nil {
			return err
		}
		mpv, err := launchPlayer(e.binary, "cdda://", e.chaptersPath)
		if err != nil {
			return err
		}
		e.mu.Lock()
		e.mpv = mpv
		e.mu.Unlock()
		go e.readEvents(mpv)
	}

	e.mu.Lock()
	e.pendingTrack = n
	e.hasPending = true
	e.state = model.CDPlaying
	mpv := e.mpv
	e.mu.Unlock()

	return mpv.seekChapter(n)
}

// readEvents is the reader goroutine/task of spec.md §9: it applies the
// pending-seek filtering to chapter events and runs the end-of-disc path
// when the subprocess exits. Chapter changes the subprocess makes on its
// own are taken as reported; they are not redirected to the shuffle order.
func (e *Engine) readEvents(mpv *mpvProcess) {
	for msg := range mpv.events {
		if msg.Event != "property-change" || msg.Name != "chapter" {
			continue
		}
		chapter, ok := msg.Data.(float64)
		if !ok {
			continue
		}
		track := int(chapter) + 1
		e.onChapterEvent(track)
	}
	// EOF: subprocess exited.
	e.onSubprocessExit()
}

// onChapterEvent implements pending-seek discipline (spec.md §4.8 step
// 4): while a seek is in flight, only the matching chapter event clears
// it; other chapter events are ignored so transient intermediate values
// during a seek don't get mistaken for a real track change.
func (e *Engine) onChapterEvent(track int) {
	e.mu.Lock()
	if e.hasPending {
		if track != e.pendingTrack {
			e.mu.Unlock()
			return
		}
		e.hasPending = false
	}
	e.currentTrack = track
	e.mu.Unlock()

	if e.cb.OnTrackChange != nil {
		e.cb.OnTrackChange(track)
	}
}

// onSubprocessExit is the natural-end-of-disc path (spec.md §4.8 step
// 6): if repeat is on, relaunch from the appropriate starting track;
// otherwise call OnDiscEnd (CDSource broadcasts cd_disc_end; its router
// registration is left as it is).
func (e *Engine) onSubprocessExit() {
	e.mu.Lock()
	e.mpv = nil
	repeat := e.repeat
	shuffle := e.shuffle
	tracks := e.tracks
	e.state = model.CDStopped
	e.mu.Unlock()

	if !repeat {
		if e.cb.OnDiscEnd != nil {
			e.cb.OnDiscEnd()
		}
		return
	}

	start := 1
	if shuffle {
		e.rebuildShuffleOrder(len(tracks), 1)
		start = e.shuffleOrder[0]
	}
	if err := e.PlayTrack(context.Background(), tracks, start); err != nil {
		slog.Warn("cdsource: repeat relaunch failed", "err", err)
	}
}

// AdvanceNatural moves to the next track in play order; it serves the
// "next" command. Under shuffle it goes to the next shuffle slot instead
// of sequence+1 (spec.md §4.8 step 5). Chapter changes the subprocess
// reports on its own do not pass through it.
func (e *Engine) AdvanceNatural(ctx context.Context) error {
	e.mu.Lock()
	shuffle := e.shuffle
	repeat := e.repeat
	current := e.currentTrack
	tracks := e.tracks
	e.mu.Unlock()

	if !shuffle {
		next := current + 1
		if next > len(tracks) {
			if !repeat {
				return nil // natural end handled by onSubprocessExit via IPC EOF
			}
			next = 1
		}
		return e.PlayTrack(ctx, tracks, next)
	}

	e.mu.Lock()
	idx := indexOf(e.shuffleOrder, current)
	atEnd := idx < 0 || idx+1 >= len(e.shuffleOrder)
	e.mu.Unlock()

	if atEnd {
		if !repeat {
			return nil
		}
		e.rebuildShuffleOrder(len(tracks), current)
		e.mu.Lock()
		next := e.shuffleOrder[0]
		e.mu.Unlock()
		return e.PlayTrack(ctx, tracks, next)
	}

	e.mu.Lock()
	next := e.shuffleOrder[idx+1]
	e.mu.Unlock()
	return e.PlayTrack(ctx, tracks, next)
}

// rebuildShuffleOrder builds a new random permutation of 1..n that
// starts at startTrack (spec.md §4.8 step 5 "End-of-order with repeat
// rebuilds a new shuffle permutation that starts at the current track").
func (e *Engine) rebuildShuffleOrder(n int, startTrack int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	order := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		if i != startTrack {
			order = append(order, i)
		}
	}
	rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	e.shuffleOrder = append([]int{startTrack}, order...)
}

func indexOf(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func (e *Engine) SetShuffle(on bool) {
	e.mu.Lock()
	e.shuffle = on
	if on {
		e.mu.Unlock()
		e.rebuildShuffleOrder(len(e.tracks), e.currentTrackSnapshot())
		return
	}
	e.mu.Unlock()
}

func (e *Engine) currentTrackSnapshot() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentTrack
}

func (e *Engine) SetRepeat(on bool) {
	e.mu.Lock()
	e.repeat = on
	e.mu.Unlock()
}

func (e *Engine) Pause() error {
	e.mu.Lock()
	mpv := e.mpv
	e.state = model.CDPaused
	e.mu.Unlock()
	if mpv == nil {
		return nil
	}
	e.startPauseTimer()
	return mpv.pause()
}

func (e *Engine) Resume() error {
	e.mu.Lock()
	mpv := e.mpv
	e.state = model.CDPlaying
	e.mu.Unlock()
	e.stopPauseTimer()
	if mpv == nil {
		return nil
	}
	return mpv.resume()
}

// startPauseTimer arms the 5-minute pause timeout (spec.md §4.8 "Pause
// timeout"): after 5 minutes paused, stop and call OnPauseTimeout
// (CDSource broadcasts cd_pause_timeout; its router registration is left
// as it is).
func (e *Engine) startPauseTimer() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pauseTimer != nil {
		e.pauseTimer.Stop()
	}
	e.pauseTimer = time.AfterFunc(pauseTimeout, func() {
		e.Stop()
		if e.cb.OnPauseTimeout != nil {
			e.cb.OnPauseTimeout()
		}
	})
}

func (e *Engine) stopPauseTimer() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pauseTimer != nil {
		e.pauseTimer.Stop()
		e.pauseTimer = nil
	}
}

func (e *Engine) Stop() {
	e.stopPauseTimer()
	e.mu.Lock()
	mpv := e.mpv
	e.mpv = nil
	e.state = model.CDStopped
	e.mu.Unlock()
	if mpv != nil {
		mpv.stop()
	}
	_ = os.Remove(e.chaptersPath)
}

func (e *Engine) SetVolume(percent int) error {
	e.mu.Lock()
	mpv := e.mpv
	e.mu.Unlock()
	if mpv == nil {
		return nil
	}
	return mpv.setVolume(percent)
}

func (e *Engine) State() (track int, state model.PlaybackState, shuffle, repeat bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentTrack, e.state, e.shuffle, e.repeat
}
