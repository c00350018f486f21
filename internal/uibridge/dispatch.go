// Package uibridge implements the UI bridge: the webhook command
// dispatcher of spec.md §4.7, which translates the command vocabulary
// into broadcasts and hardware toggles, and Hub (hub.go), which fans
// those broadcasts out to browser WebSocket clients.
package uibridge

import (
	"fmt"
)

// Command is the payload shape POSTed to the dispatcher.
type Command struct {
	Command string                 `json:"command"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// Result is the dispatcher's response.
type Result struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Broadcaster fans a UI event out to connected clients; Hub in hub.go
// is the WebSocket implementation.
type Broadcaster interface {
	Broadcast(kind string, data interface{})
}

// ScreenController toggles the physical display's power state.
type ScreenController interface {
	ScreenOn()
	ScreenOff()
	ScreenToggle()
	IsScreenOn() bool
}

// AudioOffRequester asks the router to power the audio output off, used
// by screen_off per spec.md §4.7.
type AudioOffRequester interface {
	RequestAudioOff()
}

// SystemController performs reboot/service-restart actions.
type SystemController interface {
	Reboot() error
	RestartServiceGroup(target string) error
}

// StatusReporter returns a rich system-info payload for the status command.
type StatusReporter interface {
	Status() interface{}
}

// Dispatcher wires the collaborators the command vocabulary needs.
type Dispatcher struct {
	Broadcaster Broadcaster
	Screen      ScreenController
	AudioOff    AudioOffRequester
	System      SystemController
	Reporter    StatusReporter
}

// Dispatch translates one command into broadcasts and hardware toggles,
// the pure logic of spec.md §4.7's table (side effects happen through
// the injected collaborators, not I/O performed directly here).
func (d *Dispatcher) Dispatch(cmd Command) (Result, error) {
	switch cmd.Command {
	case "screen_on":
		d.Screen.ScreenOn()
		return Result{Status: "ok"}, nil

	case "screen_off":
		d.Screen.ScreenOff()
		if d.AudioOff != nil {
			d.AudioOff.RequestAudioOff()
		}
		return Result{Status: "ok"}, nil

	case "screen_toggle":
		d.Screen.ScreenToggle()
		if !d.Screen.IsScreenOn() && d.AudioOff != nil {
			d.AudioOff.RequestAudioOff()
		}
		return Result{Status: "ok"}, nil

	case "show_page":
		page, _ := cmd.Params["page"].(string)
		d.Broadcaster.Broadcast("navigate", map[string]interface{}{"page": page})
		return Result{Status: "ok"}, nil

	case "next_screen":
		d.Screen.ScreenOn()
		d.Broadcaster.Broadcast("navigate", map[string]interface{}{"page": "next"})
		return Result{Status: "ok"}, nil

	case "prev_screen":
		d.Screen.ScreenOn()
		d.Broadcaster.Broadcast("navigate", map[string]interface{}{"page": "previous"})
		return Result{Status: "ok"}, nil

	case "wake":
		page, _ := cmd.Params["page"].(string)
		d.Screen.ScreenOn()
		d.Broadcaster.Broadcast("navigate", map[string]interface{}{"page": page})
		return Result{Status: "ok"}, nil

	case "restart":
		target, _ := cmd.Params["target"].(string)
		var err error
		if target == "" || target == "system" {
			err = d.System.Reboot()
		} else {
			err = d.System.RestartServiceGroup(target)
		}
		if err != nil {
			return Result{Status: "error", Message: err.Error()}, nil
		}
		return Result{Status: "ok"}, nil

	case "status":
		return Result{Status: "ok", Data: d.Reporter.Status()}, nil

	case "show_camera":
		d.Broadcaster.Broadcast("camera_show", cmd.Params)
		return Result{Status: "ok"}, nil

	case "dismiss_camera":
		d.Broadcaster.Broadcast("camera_dismiss", nil)
		return Result{Status: "ok"}, nil

	case "add_menu_item":
		d.Broadcaster.Broadcast("menu_item_add", cmd.Params)
		return Result{Status: "ok"}, nil

	case "remove_menu_item":
		d.Broadcaster.Broadcast("menu_item_remove", cmd.Params)
		return Result{Status: "ok"}, nil

	case "hide_menu_item":
		d.Broadcaster.Broadcast("menu_item_hide", cmd.Params)
		return Result{Status: "ok"}, nil

	case "show_menu_item":
		d.Broadcaster.Broadcast("menu_item_show", cmd.Params)
		return Result{Status: "ok"}, nil

	case "broadcast":
		kind, _ := cmd.Params["type"].(string)
		d.Broadcaster.Broadcast(kind, cmd.Params["data"])
		return Result{Status: "ok"}, nil

	default:
		return Result{Status: "error", Message: fmt.Sprintf("unknown command %q", cmd.Command)}, nil
	}
}
