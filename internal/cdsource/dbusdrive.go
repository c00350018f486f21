package cdsource

import (
	"log/slog"
	"os"

	"github.com/godbus/dbus/v5"
)

const udisksService = "org.freedesktop.UDisks2"

// UDisksTOCProber reads drive presence from UDisks2 over D-Bus instead of
// stat'ing the device node, so presence tracks the udev/UDisks2 view of
// removable media rather than a raw block device's existence (which can
// lag a physical eject). TOC reading is unchanged — audio discs still
// need ReadTOCFn's external tool. Grounded on the teacher's D-Bus
// GetManagedObjects + property-fetch pattern (internal/streams/bluetooth.go
// fetchBluetoothMetadata), generalized from BlueZ media players to
// UDisks2 block devices.
type UDisksTOCProber struct {
	DevicePath string
	ReadTOCFn  func(devicePath string) (TOC, error)
}

func (p *UDisksTOCProber) DrivePresent() bool {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		slog.Debug("cdsource: udisks2 dbus connect failed, reporting drive absent", "err", err)
		return false
	}
	defer conn.Close()

	obj := conn.Object(udisksService, "/org/freedesktop/UDisks2")
	call := obj.Call("org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0)
	if call.Err != nil {
		slog.Debug("cdsource: udisks2 GetManagedObjects failed", "err", call.Err)
		return false
	}

	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if err := call.Store(&objects); err != nil {
		return false
	}

	for _, interfaces := range objects {
		drive, ok := interfaces["org.freedesktop.UDisks2.Drive"]
		if !ok {
			continue
		}
		if dev, ok := drive["PreferredDevice"]; ok {
			if path, ok := dev.Value().(string); ok && path != p.DevicePath {
				continue
			}
		}
		mediaAvailable, ok := drive["MediaAvailable"]
		if !ok {
			continue
		}
		if present, ok := mediaAvailable.Value().(bool); ok {
			return present
		}
	}
	return false
}

func (p *UDisksTOCProber) ReadTOC() (TOC, error) {
	if p.ReadTOCFn == nil {
		slog.Warn("cdsource: no ReadTOCFn configured, reporting no disc")
		return TOC{}, os.ErrNotExist
	}
	return p.ReadTOCFn(p.DevicePath)
}
