// Command router runs the event router and source lifecycle manager
// daemon: it owns the source registry, the single in-process volume
// adapter, and the outbound transport to the external automation system.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/micro-nova/amplipi-go/internal/menuconfig"
	"github.com/micro-nova/amplipi-go/internal/model"
	"github.com/micro-nova/amplipi-go/internal/registry"
	"github.com/micro-nova/amplipi-go/internal/router"
	"github.com/micro-nova/amplipi-go/internal/transport"
	"github.com/micro-nova/amplipi-go/internal/uibridge"
	"github.com/micro-nova/amplipi-go/internal/volume"
	"github.com/micro-nova/amplipi-go/internal/watchdog"
	"github.com/micro-nova/amplipi-go/internal/zeroconf"
)

func main() {
	var (
		addr       = flag.String("addr", ":9595", "HTTP listen address")
		cfgPath    = flag.String("config", "", "path to config.json (default: search sysconfdir, cwd, repo default)")
		sysconfdir = flag.String("sysconfdir", "/etc/amplipi", "sysconfdir to search for config.json")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	var paths []string
	if *cfgPath != "" {
		paths = []string{*cfgPath}
	} else {
		paths = menuconfig.SearchPath(*sysconfdir, ".")
	}
	cfg, usedPath, err := menuconfig.Load(paths)
	if err != nil {
		slog.Error("router: config load failed", "err", err)
		os.Exit(1)
	}
	slog.Info("router: config loaded", "path", usedPath)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	volAdapter, err := newVolumeAdapter(cfg.Volume)
	if err != nil {
		slog.Error("router: volume adapter init failed", "err", err)
		os.Exit(1)
	}

	uiClient := uibridge.NewClient(cfg.UIBridgeURL)
	notifier := router.NewNotifier()
	reg := registry.New(menuconfig.Normalize(cfg.Menu), uiClient, notifier, volAdapter)

	trans, err := transport.New(cfg.Transport.Mode, cfg.Transport.WebhookURL, cfg.Transport.BrokerURL,
		cfg.Transport.TopicPrefix, cfg.Transport.DisplayName, func(cmd transport.Command) {
			slog.Info("router: inbound transport command", "command", cmd.Command)
		})
	if err != nil {
		slog.Error("router: transport init failed", "err", err)
		os.Exit(1)
	}
	defer trans.Close()

	eatingViews := make(map[string]bool, len(cfg.EatingViews))
	for _, v := range cfg.EatingViews {
		eatingViews[v] = true
	}

	deps := router.Deps{
		Sources:     reg,
		Volume:      volAdapter,
		Transport:   trans,
		HTTPClient:  &http.Client{Timeout: 2 * time.Second},
		VolStep:     cfg.Volume.Step,
		BalanceStep: cfg.BalanceStep,
		EatingViews: eatingViews,
	}
	handlers := router.NewHandlers(deps, reg)

	mux := chi.NewRouter()
	mux.Route("/router", handlers.Routes)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	port := portFromAddr(*addr, 9595)
	zc := zeroconf.New("router", "_router._tcp", port)
	go func() {
		if err := zc.Start(ctx); err != nil {
			slog.Warn("router: zeroconf failed", "err", err)
		}
	}()

	go watchdog.Run(ctx)

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		slog.Error("router: listen failed", "err", err)
		os.Exit(1)
	}
	go func() {
		slog.Info("router: listening", "addr", *addr)
		watchdog.Ready()
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("router: server error", "err", err)
		}
	}()

	// Startup recovery: the port is bound, so ask every configured source
	// to resync and re-register.
	go registry.ProbeResync(ctx, nil, cfg.SourcePorts)

	<-ctx.Done()
	slog.Info("router: shutting down")
	watchdog.Stopping()

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("router: server shutdown error", "err", err)
	}
	slog.Info("router: shutdown complete")
}

// newVolumeAdapter builds the router's single in-process volume adapter
// from configuration (spec.md §4.5 taxonomy). target's shape depends on
// the adapter type: a base URL for dac_mixer/cloud, "card:control" for
// alsa, "host:port:zone" for multizone_amp; passthrough ignores it, and
// upnp is rejected with an error.
func newVolumeAdapter(vc model.VolumeConfig) (router.VolumeAdapter, error) {
	switch vc.Type {
	case "dac_mixer":
		return volume.NewDACMixer(vc.Target, vc.Max, vc.SafeCap), nil
	case "cloud":
		return volume.NewCloudSpeaker(vc.Target, vc.Max, vc.SafeCap), nil
	case "alsa":
		parts := strings.SplitN(vc.Target, ":", 2)
		card, control := vc.Target, "Master"
		if len(parts) == 2 {
			card, control = parts[0], parts[1]
		}
		return volume.NewALSASoftware(card, control, vc.Max, vc.SafeCap), nil
	case "multizone_amp":
		parts := strings.SplitN(vc.Target, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("router: multizone_amp target must be host:port:zone, got %q", vc.Target)
		}
		host := parts[0]
		port, zone := 0, 0
		fmt.Sscanf(parts[1], "%d", &port)
		fmt.Sscanf(parts[2], "%d", &zone)
		return volume.NewMultiZoneAmp(host, port, zone, vc.Max, vc.SafeCap)
	case "upnp":
		return nil, fmt.Errorf("router: upnp volume adapter requires discovery, not yet wired into config-driven startup")
	case "passthrough", "":
		return volume.NewPassthrough(), nil
	default:
		return nil, fmt.Errorf("router: unknown volume adapter type %q", vc.Type)
	}
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
