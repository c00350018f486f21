// Command player runs a single playback device's HTTP/WebSocket façade
// over a VLC subprocess, reporting volume changes back to the router
// (spec.md §4.4). It sends no playback-override notifications: nothing
// in it calls playerbase's NotifyPlaybackOverride.
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

	"github.com/micro-nova/amplipi-go/internal/playerbase"
	"github.com/micro-nova/amplipi-go/internal/watchdog"
	"github.com/micro-nova/amplipi-go/internal/zeroconf"
)

func main() {
	var (
		addr      = flag.String("addr", ":9797", "HTTP listen address")
		routerURL = flag.String("router-url", "http://localhost:9595/router", "router base URL")
		vlcPort   = flag.Int("vlc-http-port", 8180, "VLC HTTP control interface port")
		pollEvery = flag.Duration("poll-interval", 2*time.Second, "device state poll interval for volume-echo reporting")
		debug     = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	device := playerbase.NewVLCDevice(*vlcPort)
	base := playerbase.New(device, *routerURL)

	base.StartMonitor(ctx, func(mctx context.Context) {
		ticker := time.NewTicker(*pollEvery)
		defer ticker.Stop()
		for {
			select {
			case <-mctx.Done():
				return
			case <-ticker.C:
				state, err := device.State(mctx)
				if err != nil {
					continue
				}
				if v, ok := state["volume"].(int); ok {
					base.ReportVolumeToRouter(mctx, v)
				}
			}
		}
	})

	handlers := playerbase.NewHandlers(base)

	mux := chi.NewRouter()
	mux.Route("/", handlers.Routes)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // streaming WebSocket connections must not be capped
		IdleTimeout:  120 * time.Second,
	}

	zc := zeroconf.New("player", "_player._tcp", portFromAddr(*addr, 9797))
	go func() {
		if err := zc.Start(ctx); err != nil {
			slog.Warn("player: zeroconf failed", "err", err)
		}
	}()

	go watchdog.Run(ctx)

	go func() {
		slog.Info("player: listening", "addr", *addr)
		watchdog.Ready()
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("player: server error", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("player: shutting down")
	watchdog.Stopping()
	base.Shutdown()
	if err := device.Stop(context.Background()); err != nil {
		slog.Warn("player: device stop error", "err", err)
	}

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("player: server shutdown error", "err", err)
	}
	slog.Info("player: shutdown complete")
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
