package volume

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"
)

// MultiZoneAmp drives volume via UDP datagrams to a multi-zone amplifier
// controller, the adapter for hardware that exposes its zones over a
// simple counter-tagged text protocol rather than HTTP (spec.md §4.5
// taxonomy). Every outbound datagram carries a monotonically increasing
// sequence number so the amp can discard stale, out-of-order commands
// that arrive after a debounced write has already been superseded.
type MultiZoneAmp struct {
	*Base
	addr   *net.UDPAddr
	zone   int
	seq    uint64
	dialer func() (net.Conn, error)
}

func NewMultiZoneAmp(host string, port, zone, max, safeCap int) (*MultiZoneAmp, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, fmt.Errorf("multizone_amp: resolve %s:%d: %w", host, port, err)
	}
	m := &MultiZoneAmp{addr: addr, zone: zone}
	m.dialer = func() (net.Conn, error) {
		return net.DialTimeout("udp", addr.String(), 500*time.Millisecond)
	}
	m.Base = NewBase(m, fmt.Sprintf("multizone_amp:%d", zone), max, safeCap)
	return m, nil
}

func (m *MultiZoneAmp) send(cmd string) {
	seq := atomic.AddUint64(&m.seq, 1)
	conn, err := m.dialer()
	if err != nil {
		slog.Warn("multizone_amp: dial failed", "err", err, "zone", m.zone)
		return
	}
	defer conn.Close()

	datagram := fmt.Sprintf("#%d Z%d %s\n", seq, m.zone, cmd)
	_ = conn.SetWriteDeadline(time.Now().Add(500 * time.Millisecond))
	if _, err := conn.Write([]byte(datagram)); err != nil {
		slog.Warn("multizone_amp: write failed", "err", err, "zone", m.zone)
	}
}

func (m *MultiZoneAmp) writeVolume(ctx context.Context, v int) {
	m.send(fmt.Sprintf("VOL %d", v))
}

// readVolume is not supported over the one-way command channel; the
// cached debounced value is the best available answer (invariant 4).
func (m *MultiZoneAmp) readVolume(ctx context.Context) (int, bool) {
	return 0, false
}

func (m *MultiZoneAmp) writePower(ctx context.Context, on bool) {
	state := "OFF"
	if on {
		state = "ON"
	}
	m.send("PWR " + state)
}

func (m *MultiZoneAmp) readPower(ctx context.Context) (bool, bool) {
	return false, false
}
