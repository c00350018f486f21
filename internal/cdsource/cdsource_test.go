package cdsource

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/micro-nova/amplipi-go/internal/model"
)

type fakeProber struct {
	mu      sync.Mutex
	present bool
	toc     TOC
	tocErr  error
}

func (p *fakeProber) DrivePresent() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.present
}

func (p *fakeProber) ReadTOC() (TOC, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.toc, p.tocErr
}

func (p *fakeProber) set(present bool, toc TOC, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.present, p.toc, p.tocErr = present, toc, err
}

func TestWatcher_DiscInsertEjectSequencing(t *testing.T) {
	prober := &fakeProber{}
	var inserted, ejected int
	var mu sync.Mutex

	w := NewWatcher(prober, DriveCallbacks{
		OnDiscInserted: func(ctx context.Context, toc TOC, grace bool) {
			mu.Lock()
			inserted++
			mu.Unlock()
		},
		OnDiscEjected: func(ctx context.Context) {
			mu.Lock()
			ejected++
			mu.Unlock()
		},
	})

	// disable startup grace so insertion always reports "not in grace".
	w.startedAt = w.startedAt.Add(-startupGrace * 2)

	ctx := context.Background()

	// no drive, no disc: no callbacks.
	w.poll(ctx)
	mu.Lock()
	if inserted != 0 || ejected != 0 {
		t.Fatalf("expected no callbacks with no drive, got inserted=%d ejected=%d", inserted, ejected)
	}
	mu.Unlock()

	// disc inserted.
	prober.set(true, TOC{Tracks: []TOCTrack{{Num: 1, FrameOffset: 0, LengthFrames: 1000}}}, nil)
	w.poll(ctx)
	mu.Lock()
	if inserted != 1 {
		t.Fatalf("expected 1 insert callback, got %d", inserted)
	}
	mu.Unlock()

	// polling again with the same disc present: no duplicate callback.
	w.poll(ctx)
	mu.Lock()
	if inserted != 1 {
		t.Fatalf("expected insert callback to fire once, got %d", inserted)
	}
	mu.Unlock()

	// disc ejected but drive still present.
	prober.set(true, TOC{}, errors.New("no disc"))
	w.poll(ctx)
	mu.Lock()
	if ejected != 1 {
		t.Fatalf("expected 1 eject callback, got %d", ejected)
	}
	mu.Unlock()

	// drive removed entirely after a fresh insert: eject fires once more.
	prober.set(true, TOC{Tracks: []TOCTrack{{Num: 1, FrameOffset: 0, LengthFrames: 1000}}}, nil)
	w.poll(ctx)
	prober.set(false, TOC{}, nil)
	w.poll(ctx)
	mu.Lock()
	if ejected != 2 {
		t.Fatalf("expected 2 eject callbacks total, got %d", ejected)
	}
	mu.Unlock()
}

func TestEngine_PendingSeekDiscipline(t *testing.T) {
	var changes []int
	e := NewEngine("mpv", t.TempDir(), EngineCallbacks{
		OnTrackChange: func(track int) { changes = append(changes, track) },
	})

	e.mu.Lock()
	e.pendingTrack = 3
	e.hasPending = true
	e.mu.Unlock()

	// an intermediate chapter event during the seek (not the target) is ignored.
	e.onChapterEvent(2)
	if len(changes) != 0 {
		t.Fatalf("expected intermediate chapter event to be ignored, got %v", changes)
	}

	// the matching chapter event clears the pending seek and fires the callback.
	e.onChapterEvent(3)
	if len(changes) != 1 || changes[0] != 3 {
		t.Fatalf("expected track change to 3, got %v", changes)
	}

	e.mu.Lock()
	hasPending := e.hasPending
	e.mu.Unlock()
	if hasPending {
		t.Fatal("expected pending seek to be cleared")
	}

	// once no seek is pending, every chapter event is a real track change.
	e.onChapterEvent(4)
	if len(changes) != 2 || changes[1] != 4 {
		t.Fatalf("expected second track change to 4, got %v", changes)
	}
}

func TestEngine_ShuffleRebuildStartsAtCurrentTrack(t *testing.T) {
	e := NewEngine("mpv", t.TempDir(), EngineCallbacks{})
	e.rebuildShuffleOrder(5, 3)

	e.mu.Lock()
	order := append([]int(nil), e.shuffleOrder...)
	e.mu.Unlock()

	if len(order) != 5 {
		t.Fatalf("expected permutation of all 5 tracks, got %v", order)
	}
	if order[0] != 3 {
		t.Fatalf("expected shuffle order to start at the current track 3, got %v", order)
	}

	seen := make(map[int]bool)
	for _, n := range order {
		if seen[n] {
			t.Fatalf("duplicate track %d in shuffle order %v", n, order)
		}
		seen[n] = true
	}
	for i := 1; i <= 5; i++ {
		if !seen[i] {
			t.Fatalf("shuffle order %v missing track %d", order, i)
		}
	}
}

func TestEngine_AdvanceNaturalEndOfDiscWithoutRepeat(t *testing.T) {
	e := NewEngine("mpv", t.TempDir(), EngineCallbacks{})
	e.mu.Lock()
	e.currentTrack = 3
	e.tracks = []model.Track{{Num: 1}, {Num: 2}, {Num: 3}}
	e.repeat = false
	e.shuffle = false
	e.mu.Unlock()

	if err := e.AdvanceNatural(context.Background()); err != nil {
		t.Fatalf("expected no-op at end of disc without repeat, got err %v", err)
	}
}

func TestEngine_PauseResumeTimerLifecycle(t *testing.T) {
	e := NewEngine("mpv", t.TempDir(), EngineCallbacks{})

	e.startPauseTimer()
	e.mu.Lock()
	armed := e.pauseTimer != nil
	e.mu.Unlock()
	if !armed {
		t.Fatal("expected pause timer to be armed")
	}

	e.stopPauseTimer()
	e.mu.Lock()
	disarmed := e.pauseTimer == nil
	e.mu.Unlock()
	if !disarmed {
		t.Fatal("expected pause timer to be disarmed after stop")
	}
}

func TestDiscID_StableForSameTOCDifferentForDifferentTOC(t *testing.T) {
	tocA := TOC{Tracks: []TOCTrack{{Num: 1, FrameOffset: 0}, {Num: 2, FrameOffset: 1000}}}
	tocB := TOC{Tracks: []TOCTrack{{Num: 1, FrameOffset: 0}, {Num: 2, FrameOffset: 2000}}}

	if DiscID(tocA) != DiscID(tocA) {
		t.Fatal("expected DiscID to be stable for the same TOC")
	}
	if DiscID(tocA) == DiscID(tocB) {
		t.Fatal("expected DiscID to differ for different TOCs")
	}
}

// TestDiscID_MatchesMusicBrainzEncodingShape checks the id looks like a
// real MusicBrainz/libdiscid disc id rather than an arbitrary hash: a
// SHA1 digest (20 bytes) base64-encoded is always 28 characters with
// the standard alphabet's '+', '/', '=' replaced by '.', '_', '-'.
func TestDiscID_MatchesMusicBrainzEncodingShape(t *testing.T) {
	toc := TOC{Tracks: []TOCTrack{
		{Num: 1, FrameOffset: 0, LengthFrames: 18120},
		{Num: 2, FrameOffset: 18120, LengthFrames: 21870},
	}}
	id := DiscID(toc)
	if len(id) != 28 {
		t.Fatalf("DiscID length = %d, want 28 (sha1 base64)", len(id))
	}
	if strings.ContainsAny(id, "+/=") {
		t.Fatalf("DiscID %q contains standard base64 characters that MusicBrainz's alphabet replaces", id)
	}
}

func TestDiscID_EmptyTOCReturnsEmptyString(t *testing.T) {
	if id := DiscID(TOC{}); id != "" {
		t.Fatalf("DiscID of an empty TOC = %q, want empty", id)
	}
}

func TestGenericTracksFallback(t *testing.T) {
	toc := TOC{Tracks: []TOCTrack{
		{Num: 1, FrameOffset: 0, LengthFrames: 150},
		{Num: 2, FrameOffset: 150, LengthFrames: 225},
	}}
	tracks := genericTracks(toc)
	if len(tracks) != 2 {
		t.Fatalf("expected 2 generic tracks, got %d", len(tracks))
	}
	if tracks[0].Title != "Track 1" || tracks[1].Title != "Track 2" {
		t.Fatalf("unexpected generic titles: %+v", tracks)
	}
	if tracks[1].DurationSec != 3 {
		t.Fatalf("expected track 2 duration 3s (225/75), got %v", tracks[1].DurationSec)
	}
}
