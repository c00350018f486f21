// Package config provides small JSON-file persistence helpers, an
// atomic write (WriteAtomic), a debounced write (DebouncedWriter) and a
// read (ReadJSON), grounded on the teacher's JSONStore. No process in
// this repo calls them; only this package's tests do.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// WriteAtomic marshals v as indented JSON and writes it to path by writing
// a temp file in the same directory and renaming over the target, so a
// crash mid-write never leaves a corrupt file (spec.md §5).
func WriteAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadJSON reads and unmarshals path into v. Returns os.ErrNotExist unwrapped
// via errors.Is when the file is absent so callers can fall back to defaults.
func ReadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// DebouncedWriter coalesces rapid Save calls into a single delayed
// WriteAtomic, exactly as the teacher's JSONStore.Save debounces
// config writes.
type DebouncedWriter struct {
	mu    sync.Mutex
	path  string
	delay time.Duration
	timer *time.Timer
	pending interface{}
}

// NewDebouncedWriter creates a writer that flushes to path after delay of
// inactivity.
func NewDebouncedWriter(path string, delay time.Duration) *DebouncedWriter {
	return &DebouncedWriter{path: path, delay: delay}
}

// Save schedules a debounced write of v. Only the latest v wins.
func (w *DebouncedWriter) Save(v interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = v
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, func() {
		w.mu.Lock()
		p := w.pending
		w.mu.Unlock()
		if p != nil {
			_ = WriteAtomic(w.path, p)
		}
	})
}

// Flush forces an immediate write of any pending value.
func (w *DebouncedWriter) Flush() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	p := w.pending
	w.mu.Unlock()
	if p == nil {
		return nil
	}
	return WriteAtomic(w.path, p)
}
