// Command demosource is a minimal source process with no real playback
// engine: it exercises internal/sourcebase's register/broadcast/command
// façade in isolation, useful for exercising the router and UI bridge
// without real hardware.
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
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/micro-nova/amplipi-go/internal/model"
	"github.com/micro-nova/amplipi-go/internal/sourcebase"
	"github.com/micro-nova/amplipi-go/internal/watchdog"
	"github.com/micro-nova/amplipi-go/internal/zeroconf"
)

// demoExecutor is a trivial sourcebase.CommandExecutor: it tracks
// play/pause/stop transitions in memory and broadcasts them, without
// driving any real device.
type demoExecutor struct {
	base *sourcebase.Base

	mu    sync.Mutex
	state model.SourceState
}

func (d *demoExecutor) ExecuteCommand(ctx context.Context, command string, data map[string]interface{}) (interface{}, error) {
	switch command {
	case "select", "play":
		d.setState(ctx, model.SourcePlaying)
		return nil, nil
	case "pause":
		d.setState(ctx, model.SourcePaused)
		return nil, nil
	case "resume":
		d.setState(ctx, model.SourcePlaying)
		return nil, nil
	case "stop":
		d.setState(ctx, model.SourceAvailable)
		return nil, nil
	default:
		return nil, fmt.Errorf("demosource: unknown command %q", command)
	}
}

func (d *demoExecutor) setState(ctx context.Context, s model.SourceState) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
	d.base.Broadcast(ctx, "demo_state", map[string]interface{}{"state": s})
}

func (d *demoExecutor) Status() interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return map[string]interface{}{"state": d.state}
}

func (d *demoExecutor) Resync(ctx context.Context) error {
	d.setState(ctx, d.currentState())
	return nil
}

func (d *demoExecutor) currentState() model.SourceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func main() {
	var (
		id          = flag.String("id", "demo", "source id")
		name        = flag.String("name", "Demo Source", "source display name")
		addr        = flag.String("addr", ":9999", "HTTP listen address")
		routerURL   = flag.String("router-url", "http://localhost:9595/router", "router base URL")
		uiBridgeURL = flag.String("uibridge-url", "http://localhost:9696/ui", "UI bridge base URL")
		debug       = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	port := portFromAddr(*addr, 9999)
	base := sourcebase.New(*id, *name, port, model.PlayerLocal, nil, *routerURL, *uiBridgeURL)
	executor := &demoExecutor{base: base, state: model.SourceAvailable}

	commandURL := fmt.Sprintf("http://localhost:%d/command", port)
	if err := base.Register(ctx, model.SourceAvailable, commandURL, []string{"select", "play", "pause", "resume", "stop"}, false, false); err != nil {
		slog.Error("demosource: register failed", "err", err)
		os.Exit(1)
	}

	handlers := sourcebase.NewHandlers(base, executor)

	mux := chi.NewRouter()
	mux.Route("/", handlers.Routes)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	zc := zeroconf.New(*id, "_demosource._tcp", port)
	go func() {
		if err := zc.Start(ctx); err != nil {
			slog.Warn("demosource: zeroconf failed", "err", err)
		}
	}()

	go watchdog.Run(ctx)

	go func() {
		slog.Info("demosource: listening", "addr", *addr)
		watchdog.Ready()
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("demosource: server error", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("demosource: shutting down")
	watchdog.Stopping()

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("demosource: server shutdown error", "err", err)
	}
	slog.Info("demosource: shutdown complete")
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
