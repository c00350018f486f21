// Command uibridge runs the UI bridge's webhook command dispatcher: it
// translates the external automation system's UI command vocabulary
// into browser WebSocket broadcasts and physical screen/system toggles
// (spec.md §4.7).
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

	"github.com/micro-nova/amplipi-go/internal/uibridge"
	"github.com/micro-nova/amplipi-go/internal/watchdog"
	"github.com/micro-nova/amplipi-go/internal/zeroconf"
)

func main() {
	var (
		addr           = flag.String("addr", ":9696", "HTTP listen address")
		routerURL      = flag.String("router-url", "http://localhost:9595/router", "router base URL")
		brightnessPath = flag.String("backlight-path", "", "sysfs backlight brightness file (empty disables screen control)")
		debug          = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hub := uibridge.NewHub()
	dispatcher := &uibridge.Dispatcher{
		Broadcaster: hub,
		Screen:      uibridge.NewBacklight(*brightnessPath),
		AudioOff:    uibridge.NewRouterAudioOff(*routerURL),
		System:      uibridge.Systemd{},
		Reporter:    uibridge.NewBasicStatus(),
	}
	handlers := uibridge.NewHandlers(dispatcher, hub)

	mux := chi.NewRouter()
	mux.Route("/ui", handlers.Routes)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // streaming WebSocket connections must not be capped
		IdleTimeout:  120 * time.Second,
	}

	zc := zeroconf.New("uibridge", "_ui._tcp", portFromAddr(*addr, 9696))
	go func() {
		if err := zc.Start(ctx); err != nil {
			slog.Warn("uibridge: zeroconf failed", "err", err)
		}
	}()

	go watchdog.Run(ctx)

	go func() {
		slog.Info("uibridge: listening", "addr", *addr)
		watchdog.Ready()
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("uibridge: server error", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("uibridge: shutting down")
	watchdog.Stopping()

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("uibridge: server shutdown error", "err", err)
	}
	slog.Info("uibridge: shutdown complete")
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
