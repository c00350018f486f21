// Command cdsource runs the CD source process: drive watcher, metadata
// lookup, gapless chapter-based playback, pause-timeout, TTS
// announcements, and ripping to USB storage (spec.md §4.8).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/micro-nova/amplipi-go/internal/cdsource"
	"github.com/micro-nova/amplipi-go/internal/model"
	"github.com/micro-nova/amplipi-go/internal/sourcebase"
	"github.com/micro-nova/amplipi-go/internal/watchdog"
	"github.com/micro-nova/amplipi-go/internal/zeroconf"
)

func main() {
	var (
		addr          = flag.String("addr", ":9898", "HTTP listen address")
		routerURL     = flag.String("router-url", "http://localhost:9595/router", "router base URL")
		uiBridgeURL   = flag.String("uibridge-url", "http://localhost:9696/ui", "UI bridge base URL")
		devicePath    = flag.String("device", "/dev/cdrom", "CD drive device node")
		mpvBinary     = flag.String("mpv-binary", "mpv", "media player used for gapless chapter playback")
		ripBinary     = flag.String("rip-binary", "cdparanoia", "raw audio extraction binary used when ripping")
		flacBinary    = flag.String("flac-binary", "flac", "lossless encoder binary used when ripping")
		chaptersDir   = flag.String("chapters-dir", "/var/lib/amplipi/cd-chapters", "scratch directory for generated chapter files")
		artCacheDir   = flag.String("art-cache-dir", "/var/lib/amplipi/cd-art", "cover art cache directory")
		ttsPlayer     = flag.String("tts-player-binary", "aplay", "binary used to play synthesized announcement clips")
		ttsClipPath   = flag.String("tts-clip-path", "/var/lib/amplipi/cd-announce.wav", "scratch path for synthesized announcement clips")
		baseVolume    = flag.Int("base-volume", 70, "engine volume percent restored after a TTS fade")
		userAgent     = flag.String("musicbrainz-user-agent", "", "User-Agent sent to MusicBrainz/Cover Art Archive (required by their usage policy)")
		drivePresence = flag.String("drive-presence", "block", "drive presence check: \"block\" (stat the device node) or \"dbus\" (UDisks2 MediaAvailable)")
		debug         = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	base := sourcebase.New("cd", "CD Player", portFromAddr(*addr, 9898), model.PlayerLocal,
		map[string]string{"cd": "select"}, *routerURL, *uiBridgeURL)

	var prober cdsource.TOCProber
	if *drivePresence == "dbus" {
		prober = &cdsource.UDisksTOCProber{DevicePath: *devicePath, ReadTOCFn: cdsource.ReadTOCWithCDParanoia}
	} else {
		prober = &cdsource.BlockTOCProber{DevicePath: *devicePath, ReadTOCFn: cdsource.ReadTOCWithCDParanoia}
	}

	provider := cdsource.NewMusicBrainzProvider(*userAgent)

	cfg := cdsource.Config{
		MountBinary:  *mpvBinary,
		ChaptersDir:  *chaptersDir,
		DevicePath:   *devicePath,
		RipBinary:    *ripBinary,
		FlacBinary:   *flacBinary,
		TTSPrimary:   cdsource.NewEspeakEngine(),
		TTSFallback:  cdsource.NewFestivalEngine(),
		TTSPlayerBin: *ttsPlayer,
		TTSClipPath:  *ttsClipPath,
		BaseVolume:   *baseVolume,
	}

	source := cdsource.New(base, prober, provider, *artCacheDir, cfg)

	// The drive watcher registers with the router itself: as available
	// once it sees a disc (source.onDiscInserted), as gone on eject
	// (source.onDiscEjected). With an empty tray at startup nothing is
	// registered until a disc is inserted.
	go source.Run(ctx)

	handlers := sourcebase.NewHandlers(base, source)

	mux := chi.NewRouter()
	mux.Route("/", handlers.Routes)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	zc := zeroconf.New("cdsource", "_cdsource._tcp", portFromAddr(*addr, 9898))
	go func() {
		if err := zc.Start(ctx); err != nil {
			slog.Warn("cdsource: zeroconf failed", "err", err)
		}
	}()

	go watchdog.Run(ctx)

	go func() {
		slog.Info("cdsource: listening", "addr", *addr)
		watchdog.Ready()
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("cdsource: server error", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("cdsource: shutting down")
	watchdog.Stopping()

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("cdsource: server shutdown error", "err", err)
	}
	slog.Info("cdsource: shutdown complete")
}

func portFromAddr(addr string, fallback int) int {
	parts := strings.SplitN(addr, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return fallback
	}
	var port int
	if _, err := fmt.Sscanf(parts[1], "%d", &port); err != nil {
		return fallback
	}
	return port
}
