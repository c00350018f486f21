package volume

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/micro-nova/amplipi-go/internal/supervisor"
)

// ALSASoftware drives volume via the amixer subprocess on a named
// card/control (spec.md §4.5 taxonomy). Each call is a short-lived,
// run-to-completion subprocess, grounded on the teacher's findBinary
// helper for locating amixer.
type ALSASoftware struct {
	*Base
	card    string
	control string
}

func NewALSASoftware(card, control string, max, safeCap int) *ALSASoftware {
	a := &ALSASoftware{card: card, control: control}
	a.Base = NewBase(a, "alsa:"+card+"/"+control, max, safeCap)
	return a
}

func (a *ALSASoftware) writeVolume(ctx context.Context, v int) {
	cmd := exec.CommandContext(ctx, supervisor.FindBinary("amixer"),
		"-c", a.card, "set", a.control, fmt.Sprintf("%d%%", v))
	if err := supervisor.RunOnce(ctx, cmd); err != nil {
		slog.Warn("alsa: amixer set volume failed", "err", err)
	}
}

func (a *ALSASoftware) readVolume(ctx context.Context) (int, bool) {
	out, err := exec.CommandContext(ctx, supervisor.FindBinary("amixer"), "-c", a.card, "get", a.control).Output()
	if err != nil {
		return 0, false
	}
	return parseAmixerPercent(string(out))
}

func (a *ALSASoftware) writePower(ctx context.Context, on bool) {
	state := "off"
	if on {
		state = "on"
	}
	cmd := exec.CommandContext(ctx, supervisor.FindBinary("amixer"), "-c", a.card, "set", a.control, state)
	if err := supervisor.RunOnce(ctx, cmd); err != nil {
		slog.Warn("alsa: amixer set power failed", "err", err)
	}
}

func (a *ALSASoftware) readPower(ctx context.Context) (bool, bool) {
	out, err := exec.CommandContext(ctx, supervisor.FindBinary("amixer"), "-c", a.card, "get", a.control).Output()
	if err != nil {
		return false, false
	}
	return strings.Contains(string(out), "[on]"), true
}

// parseAmixerPercent extracts the first "[NN%]" occurrence from amixer output.
func parseAmixerPercent(out string) (int, bool) {
	idx := strings.Index(out, "[")
	if idx < 0 {
		return 0, false
	}
	end := strings.Index(out[idx:], "%]")
	if end < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(out[idx+1 : idx+end]))
	if err != nil {
		return 0, false
	}
	return n, true
}
