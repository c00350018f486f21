// Package watchdog sends systemd readiness and watchdog notifications,
// the ambient heartbeat every long-lived process in this repo carries
// regardless of what domain functionality it implements (spec.md §5/§6).
package watchdog

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

const heartbeatInterval = 20 * time.Second

// Ready sends READY=1, to be called once a process's public endpoints
// have bound and it is able to serve traffic.
func Ready() {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		slog.Debug("watchdog: SdNotify ready failed", "err", err)
		return
	}
	if sent {
		slog.Debug("watchdog: sent READY=1")
	}
}

// Stopping sends STOPPING=1 on deliberate shutdown.
func Stopping() {
	_, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		slog.Debug("watchdog: SdNotify stopping failed", "err", err)
	}
}

// Run sends WATCHDOG=1 every 20s until ctx is cancelled. Intended to be
// launched as a goroutine from main after Ready().
func Run(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
				slog.Debug("watchdog: SdNotify watchdog failed", "err", err)
			}
		}
	}
}
