package cdsource

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/micro-nova/amplipi-go/internal/model"
	"github.com/micro-nova/amplipi-go/internal/sourcebase"
)

// Config bundles the pieces a CDSource needs at construction, mirroring
// the other source processes' flag-driven setup (spec.md §4.8).
type Config struct {
	MountBinary  string // player binary, e.g. "mpv"
	ChaptersDir  string
	DevicePath   string // CD drive device node, also used as the rip source
	RipBinary    string
	FlacBinary   string
	TTSPrimary   TTSEngine
	TTSFallback  TTSEngine
	TTSPlayerBin string
	TTSClipPath  string
	BaseVolume   int
}

// CDSource ties the drive watcher, metadata fetcher, playback engine,
// announcer and ripper together behind the sourcebase façade, and
// implements sourcebase.CommandExecutor so it can be served by
// sourcebase.Handlers like every other source process (spec.md §4.8).
type CDSource struct {
	base     *sourcebase.Base
	watcher  *Watcher
	metadata *MetadataFetcher
	engine   *Engine
	announcer *Announcer
	ripper   *Ripper

	cfg Config

	mu    sync.Mutex
	state model.CDState
}

// New wires a CDSource. base must already be constructed with this
// source's identity and router/UI-bridge URLs.
func New(base *sourcebase.Base, prober TOCProber, provider Provider, artCacheDir string, cfg Config) *CDSource {
	s := &CDSource{
		base:     base,
		metadata: NewMetadataFetcher(provider, artCacheDir),
		ripper:   NewRipper(cfg.RipBinary, cfg.FlacBinary, cfg.DevicePath, NewMountFinder()),
		cfg:      cfg,
		state:    model.CDState{State: model.CDStopped},
	}
	s.engine = NewEngine(cfg.MountBinary, cfg.ChaptersDir, EngineCallbacks{
		OnTrackChange:  s.onTrackChange,
		OnPauseTimeout: s.onPauseTimeout,
		OnDiscEnd:      s.onDiscEnd,
	})
	s.announcer = NewAnnouncer(s.engine, cfg.TTSPrimary, cfg.TTSFallback, cfg.TTSPlayerBin, cfg.BaseVolume)
	s.watcher = NewWatcher(prober, DriveCallbacks{
		OnDiscInserted: s.onDiscInserted,
		OnDiscEjected:  s.onDiscEjected,
	})

	// Claim the "cd" source-select action for itself rather than letting
	// it fall through action_map translation (spec.md §4.3).
	base.HandleRawAction = s.handleRawAction
	return s
}

// Run launches the drive watcher; block until ctx is cancelled.
func (s *CDSource) Run(ctx context.Context) {
	s.watcher.Run(ctx)
}

func (s *CDSource) handleRawAction(action string) (string, map[string]interface{}, bool) {
	if action == "cd" {
		return "select", nil, true
	}
	return "", nil, false
}

// onDiscInserted fetches metadata and registers as available, unless
// this is the initial startup grace window in which case the UI is not
// navigated to (spec.md §4.8 "Drive watcher").
func (s *CDSource) onDiscInserted(ctx context.Context, toc TOC, inStartupGrace bool) {
	state := s.metadata.Fetch(ctx, toc)

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	commandURL := fmt.Sprintf("%s:%d/command", "http://localhost", s.base.Port)
	if err := s.base.Register(ctx, model.SourceAvailable, commandURL, []string{"cd"}, !inStartupGrace, false); err != nil {
		slog.Error("cdsource: register on disc insert failed", "err", err)
	}
	s.base.Broadcast(ctx, "cd_state", cdStateToMap(state))
}

func (s *CDSource) onDiscEjected(ctx context.Context) {
	s.engine.Stop()

	s.mu.Lock()
	s.state = model.CDState{State: model.CDStopped}
	s.mu.Unlock()

	commandURL := fmt.Sprintf("%s:%d/command", "http://localhost", s.base.Port)
	if err := s.base.Register(ctx, model.SourceGone, commandURL, []string{"cd"}, false, false); err != nil {
		slog.Error("cdsource: register on disc eject failed", "err", err)
	}
	s.base.Broadcast(ctx, "cd_state", cdStateToMap(s.currentState()))
}

func (s *CDSource) onTrackChange(track int) {
	s.mu.Lock()
	s.state.CurrentTrack = track
	state := s.state
	s.mu.Unlock()
	s.base.Broadcast(context.Background(), "cd_state", cdStateToMap(state))
}

func (s *CDSource) onPauseTimeout() {
	s.base.Broadcast(context.Background(), "cd_pause_timeout", nil)
}

func (s *CDSource) onDiscEnd() {
	s.base.Broadcast(context.Background(), "cd_disc_end", nil)
}

func (s *CDSource) currentState() model.CDState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// GetAlternatives exposes the metadata fetcher's alternative release
// candidates for the current disc (supplemented feature: alternate
// release selection).
func (s *CDSource) GetAlternatives() []model.Release {
	return s.currentState().Alternatives
}

// SelectRelease swaps a caller-chosen alternative release into the
// current disc state in place of the provider's default first match,
// moves the previous primary into the alternatives list, and
// re-broadcasts (supplemented feature). The provider is not queried
// again: the stored candidate's fields are used as they are.
func (s *CDSource) SelectRelease(ctx context.Context, releaseID string) error {
	state := s.currentState()
	for i, alt := range state.Alternatives {
		if alt.ReleaseID != releaseID {
			continue
		}
		alternatives := append([]model.Release(nil), state.Alternatives...)
		alternatives[i] = model.Release{ReleaseID: state.ReleaseID, Title: state.Title, Artist: state.Artist, Year: state.Year, Tracks: state.Tracks}
		s.mu.Lock()
		s.state.Alternatives = alternatives
		s.state.ReleaseID = alt.ReleaseID
		s.state.Title = alt.Title
		s.state.Artist = alt.Artist
		s.state.Year = alt.Year
		s.state.Tracks = alt.Tracks
		s.mu.Unlock()
		s.base.Broadcast(ctx, "cd_state", cdStateToMap(s.currentState()))
		return nil
	}
	return fmt.Errorf("cdsource: release %q not among alternatives", releaseID)
}

// ExecuteCommand implements sourcebase.CommandExecutor.
func (s *CDSource) ExecuteCommand(ctx context.Context, command string, data map[string]interface{}) (interface{}, error) {
	switch command {
	case "select":
		return nil, nil
	case "play":
		track := 1
		if v, ok := data["track"].(float64); ok {
			track = int(v)
		}
		return nil, s.engine.PlayTrack(ctx, s.currentState().Tracks, track)
	case "pause":
		return nil, s.engine.Pause()
	case "resume":
		return nil, s.engine.Resume()
	case "next":
		return nil, s.engine.AdvanceNatural(ctx)
	case "prev":
		return nil, s.engine.PlayTrack(ctx, s.currentState().Tracks, s.prevTrack())
	case "stop":
		s.engine.Stop()
		return nil, nil
	case "shuffle":
		on, _ := data["on"].(bool)
		s.engine.SetShuffle(on)
		return nil, nil
	case "repeat":
		on, _ := data["on"].(bool)
		s.engine.SetRepeat(on)
		return nil, nil
	case "announce":
		text, _ := data["text"].(string)
		return nil, s.announcer.Announce(ctx, text, s.cfg.TTSClipPath)
	case "rip":
		artist, _ := data["artist"].(string)
		album, _ := data["album"].(string)
		return nil, s.ripper.Rip(ctx, artist, album)
	case "select_release":
		id, _ := data["release_id"].(string)
		return nil, s.SelectRelease(ctx, id)
	default:
		return nil, fmt.Errorf("cdsource: unknown command %q", command)
	}
}

func (s *CDSource) prevTrack() int {
	track, _, _, _ := s.engine.State()
	if track <= 1 {
		return 1
	}
	return track - 1
}

// Status implements sourcebase.CommandExecutor.
func (s *CDSource) Status() interface{} {
	state := s.currentState()
	track, playback, shuffle, repeat := s.engine.State()
	state.CurrentTrack = track
	state.State = playback
	state.Shuffle = shuffle
	state.Repeat = repeat
	return state
}

// Resync implements sourcebase.CommandExecutor: with a disc in the tray
// it re-registers with the router as available, then re-broadcasts
// current state; playback is not touched.
func (s *CDSource) Resync(ctx context.Context) error {
	if s.currentState().DiscInserted {
		commandURL := fmt.Sprintf("%s:%d/command", "http://localhost", s.base.Port)
		if err := s.base.Register(ctx, model.SourceAvailable, commandURL, []string{"cd"}, false, false); err != nil {
			return err
		}
	}
	s.base.Broadcast(ctx, "cd_state", cdStateToMap(s.Status().(model.CDState)))
	return nil
}

func cdStateToMap(state model.CDState) map[string]interface{} {
	return map[string]interface{}{
		"drive_connected": state.DriveConnected,
		"disc_inserted":   state.DiscInserted,
		"disc_id":         state.DiscID,
		"title":           state.Title,
		"artist":          state.Artist,
		"total_tracks":    state.TotalTracks,
		"current_track":   state.CurrentTrack,
		"state":           state.State,
		"shuffle":         state.Shuffle,
		"repeat":          state.Repeat,
	}
}
