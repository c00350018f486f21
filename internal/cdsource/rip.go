package cdsource

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/sys/unix"

	"github.com/micro-nova/amplipi-go/internal/supervisor"
)

// rip.go's mountpoint detection and rip pipeline are grounded on
// _examples/original_source/services/sources/cd.py's
// _detect_external_drive and _start_rip.

const (
	mountCacheTTL = 30 * time.Second
	// minRipFreeBytes is the minimum free space required on the
	// destination mount before a rip is launched: an 80-minute stereo CD
	// is about 847MB of WAV audio (4800s at 176,400 bytes/s), so 1GiB
	// leaves some headroom above one disc's worth.
	minRipFreeBytes = 1 << 30
)

// MountFinder locates the mountpoint of an external USB-transport drive,
// cached for 30s since scanning block devices is comparatively
// expensive and rip requests are infrequent (spec.md §4.8 "Rip").
type MountFinder struct {
	mu       sync.Mutex
	cachedAt time.Time
	mount    string

	scan func() (string, error)
}

func NewMountFinder() *MountFinder {
	return &MountFinder{scan: scanUSBMountpoint}
}

func (m *MountFinder) Find() (string, error) {
	m.mu.Lock()
	if time.Since(m.cachedAt) < mountCacheTTL && m.mount != "" {
		defer m.mu.Unlock()
		return m.mount, nil
	}
	m.mu.Unlock()

	mount, err := m.scan()
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.mount = mount
	m.cachedAt = time.Now()
	m.mu.Unlock()
	return mount, nil
}

// scanUSBMountpoint asks lsblk for every block device's mountpoint and
// transport, and returns the first one reported over USB. Grounded on
// cd.py's _detect_external_drive, which runs the same `lsblk -nro
// MOUNTPOINT,TRAN` and keeps the first row whose transport column
// reads "usb" and whose mountpoint column is non-empty.
func scanUSBMountpoint() (string, error) {
	out, err := exec.Command(supervisor.FindBinary("lsblk"), "-nro", "MOUNTPOINT,TRAN").Output()
	if err != nil {
		return "", err
	}

	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		mountpoint, transport := fields[0], fields[1]
		if transport == "usb" && strings.HasPrefix(mountpoint, "/") {
			return mountpoint, nil
		}
	}
	return "", os.ErrNotExist
}

// Ripper launches a background subprocess that rips tracks to
// <mount>/Music/<artist>/<album>, then encodes each WAV to FLAC and
// discards the WAV (spec.md §4.8 "Rip"). Grounded on cd.py's
// _start_rip, which shells out to `cdparanoia -B -d <device>` followed
// by a `flac`-and-delete pass over every resulting .wav; the device
// path and both binaries are configured once at construction rather
// than passed per call, matching the original's module-level
// CDROM_DEVICE constant.
type Ripper struct {
	ripBinary  string
	flacBinary string
	devicePath string
	mounts     *MountFinder

	mu      sync.Mutex
	running bool
}

func NewRipper(ripBinary, flacBinary, devicePath string, mounts *MountFinder) *Ripper {
	return &Ripper{ripBinary: ripBinary, flacBinary: flacBinary, devicePath: devicePath, mounts: mounts}
}

// Rip launches the rip pipeline in the background and returns
// immediately; the caller is not blocked on completion. A rip already
// in progress is rejected rather than queued (cd.py checks
// `self._rip_process.poll() is None` for the same reason).
func (r *Ripper) Rip(ctx context.Context, artist, album string) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("cdsource: rip already in progress")
	}
	r.running = true
	r.mu.Unlock()

	mount, err := r.mounts.Find()
	if err != nil {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		return err
	}
	if err := checkFreeSpace(mount, minRipFreeBytes); err != nil {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		return err
	}
	dest := filepath.Join(mount, "Music", sanitizeFilenamePart(artist), sanitizeFilenamePart(album))
	if err := os.MkdirAll(dest, 0o755); err != nil {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		return err
	}

	go func() {
		defer func() {
			r.mu.Lock()
			r.running = false
			r.mu.Unlock()
		}()
		r.run(dest)
	}()
	return nil
}

// run executes the rip-then-encode pipeline synchronously in dest: raw
// WAV extraction with cdparanoia, then a per-track flac encode with the
// source WAV removed once its encode succeeds.
func (r *Ripper) run(dest string) {
	ripCmd := exec.Command(supervisor.FindBinary(r.ripBinary), "-B", "-d", r.devicePath)
	ripCmd.Dir = dest
	if err := supervisor.RunOnce(context.Background(), ripCmd); err != nil {
		slog.Error("cdsource: rip failed", "err", err)
		return
	}

	wavs, err := filepath.Glob(filepath.Join(dest, "*.wav"))
	if err != nil {
		slog.Error("cdsource: listing ripped tracks failed", "err", err)
		return
	}
	for _, wav := range wavs {
		flacCmd := exec.Command(supervisor.FindBinary(r.flacBinary), wav)
		if err := supervisor.RunOnce(context.Background(), flacCmd); err != nil {
			slog.Error("cdsource: flac encode failed", "file", wav, "err", err)
			continue
		}
		if err := os.Remove(wav); err != nil {
			slog.Warn("cdsource: removing source wav after flac encode failed", "file", wav, "err", err)
		}
	}
}

// sanitizeFilenamePart replaces anything but letters, digits, spaces,
// dashes and underscores with '_' and trims surrounding spaces, the same
// allowance cd.py's inline `safe`
// lambda uses before building a rip destination path from
// listener-facing metadata.
func sanitizeFilenamePart(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return strings.TrimSpace(b.String())
}

// checkFreeSpace rejects a rip before it starts if the destination
// mount doesn't have enough room, rather than discovering a full disk
// mid-rip.
func checkFreeSpace(mount string, minBytes uint64) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(mount, &stat); err != nil {
		return fmt.Errorf("cdsource: statfs %q: %w", mount, err)
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minBytes {
		return fmt.Errorf("cdsource: not enough free space on %q: %d bytes available, need %d", mount, free, minBytes)
	}
	return nil
}
