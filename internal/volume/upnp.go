package volume

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/huin/goupnp"
	"github.com/huin/goupnp/soap"
)

const renderingControlURN = "urn:schemas-upnp-org:service:RenderingControl:1"

// UPnPSpeaker drives volume via UPnP RenderingControl SOAP actions, the
// adapter for UPnP media-renderer style speakers (spec.md §4.5 taxonomy).
// Each SOAP call blocks on the network: volume writes run on the debounce
// timer's goroutine and power calls on the caller's goroutine; there is
// no separate worker pool.
type UPnPSpeaker struct {
	*Base
	dev *goupnp.Device
}

// NewUPnPSpeaker wires a discovered UPnP RenderingControl device.
func NewUPnPSpeaker(dev *goupnp.Device, max, safeCap int) *UPnPSpeaker {
	u := &UPnPSpeaker{dev: dev}
	u.Base = NewBase(u, "upnp_speaker", max, safeCap)
	return u
}

func (u *UPnPSpeaker) soapClient() (*soap.SOAPClient, error) {
	svcs := u.dev.FindService(renderingControlURN)
	if len(svcs) == 0 {
		return nil, errNoRenderingControl
	}
	return svcs[0].NewSOAPClient(), nil
}

func (u *UPnPSpeaker) writeVolume(ctx context.Context, v int) {
	sc, err := u.soapClient()
	if err != nil {
		slog.Warn("upnp_speaker: no RenderingControl service", "err", err)
		return
	}
	err = sc.PerformActionCtx(ctx, renderingControlURN, "SetVolume", struct {
		InstanceID    string
		Channel       string
		DesiredVolume string
	}{InstanceID: "0", Channel: "Master", DesiredVolume: strconv.Itoa(v)}, &struct{}{})
	if err != nil {
		slog.Warn("upnp_speaker: SetVolume failed", "err", err)
	}
}

func (u *UPnPSpeaker) readVolume(ctx context.Context) (int, bool) {
	sc, err := u.soapClient()
	if err != nil {
		return 0, false
	}
	var resp struct{ CurrentVolume string }
	err = sc.PerformActionCtx(ctx, renderingControlURN, "GetVolume", struct {
		InstanceID string
		Channel    string
	}{InstanceID: "0", Channel: "Master"}, &resp)
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(resp.CurrentVolume)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (u *UPnPSpeaker) writePower(ctx context.Context, on bool) {
	sc, err := u.soapClient()
	if err != nil {
		slog.Warn("upnp_speaker: no RenderingControl service", "err", err)
		return
	}
	mute := "0"
	if !on {
		mute = "1"
	}
	err = sc.PerformActionCtx(ctx, renderingControlURN, "SetMute", struct {
		InstanceID   string
		Channel      string
		DesiredMute  string
	}{InstanceID: "0", Channel: "Master", DesiredMute: mute}, &struct{}{})
	if err != nil {
		slog.Warn("upnp_speaker: SetMute failed", "err", err)
	}
}

func (u *UPnPSpeaker) readPower(ctx context.Context) (bool, bool) {
	sc, err := u.soapClient()
	if err != nil {
		return false, false
	}
	var resp struct{ CurrentMute string }
	err = sc.PerformActionCtx(ctx, renderingControlURN, "GetMute", struct {
		InstanceID string
		Channel    string
	}{InstanceID: "0", Channel: "Master"}, &resp)
	if err != nil {
		return false, false
	}
	return resp.CurrentMute == "0", true
}

type upnpError string

func (e upnpError) Error() string { return string(e) }

const errNoRenderingControl = upnpError("no RenderingControl service on device")
