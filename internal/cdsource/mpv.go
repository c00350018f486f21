package cdsource

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"

	"github.com/micro-nova/amplipi-go/internal/supervisor"
)

// ipcMessage is the line-delimited JSON protocol of spec.md §9: three
// shapes, distinguished by which field is set. EOF on the reader means
// the subprocess exited.
type ipcMessage struct {
	Command []interface{} `json:"command,omitempty"`
	Event   string        `json:"event,omitempty"`
	Name    string        `json:"name,omitempty"`
	Data    interface{}   `json:"data,omitempty"`
}

// mpvProcess wraps a long-lived audio subprocess driven over a
// line-delimited JSON IPC protocol (spec.md §9 "Replacing subprocess
// IPC-by-Unix-socket with a small protocol"), grounded on the teacher's
// subprocess lifecycle idiom (internal/streams/base.go SubprocStream)
// generalized to add a stdin/stdout pipe instead of plain restart
// supervision, since gapless chapter seeking needs one persistent
// process rather than restart-on-exit.
type mpvProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	events chan ipcMessage

	mu     sync.Mutex
	closed bool
}

// launchPlayer starts the audio subprocess against discURI (a
// "cdda://" URI) with the given chapters file and begins reading its
// IPC stream. events is closed on subprocess exit (EOF).
func launchPlayer(binary, discURI, chaptersFile string) (*mpvProcess, error) {
	cmd := exec.Command(supervisor.FindBinary(binary),
		discURI,
		"--chapters-file="+chaptersFile,
		"--input-ipc-client=fd://0",
		"--idle=no",
	)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &mpvProcess{cmd: cmd, stdin: stdin, events: make(chan ipcMessage, 16)}
	go p.readLoop(stdout)
	return p, nil
}

func (p *mpvProcess) readLoop(stdout io.ReadCloser) {
	defer close(p.events)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		var msg ipcMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			slog.Warn("cdsource: unparsable ipc line", "err", err)
			continue
		}
		p.events <- msg
	}
}

// send writes one outbound command (spec.md §9's {command:[...]} shape).
func (p *mpvProcess) send(args ...interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("cdsource: ipc closed")
	}
	buf, err := json.Marshal(ipcMessage{Command: args})
	if err != nil {
		return err
	}
	buf = append(buf, '\n')
	_, err = p.stdin.Write(buf)
	return err
}

// seekChapter writes "set chapter n-1" over IPC — no subprocess
// restart, achieving true gapless playback (spec.md §4.8 step 2).
func (p *mpvProcess) seekChapter(n int) error {
	return p.send("set", "chapter", n-1)
}

func (p *mpvProcess) setVolume(percent int) error {
	return p.send("set", "volume", percent)
}

func (p *mpvProcess) pause() error  { return p.send("set", "pause", true) }
func (p *mpvProcess) resume() error { return p.send("set", "pause", false) }

func (p *mpvProcess) stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	_ = p.stdin.Close()
	if p.cmd.Process != nil {
		_ = syscall.Kill(-p.cmd.Process.Pid, syscall.SIGTERM)
	}
	_ = p.cmd.Wait()
}
