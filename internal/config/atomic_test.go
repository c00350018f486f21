package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/micro-nova/amplipi-go/internal/config"
)

type sample struct {
	Value int `json:"value"`
}

func TestWriteAtomicRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "state.json")

	if err := config.WriteAtomic(path, sample{Value: 7}); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	var got sample
	if err := config.ReadJSON(path, &got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Value != 7 {
		t.Fatalf("got %d, want 7", got.Value)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file should not remain: %v", err)
	}
}

func TestDebouncedWriterCoalesces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	w := config.NewDebouncedWriter(path, 20*time.Millisecond)

	w.Save(sample{Value: 1})
	w.Save(sample{Value: 2})
	w.Save(sample{Value: 3})

	time.Sleep(60 * time.Millisecond)

	var got sample
	if err := config.ReadJSON(path, &got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Value != 3 {
		t.Fatalf("got %d, want 3 (last value wins)", got.Value)
	}
}

func TestDebouncedWriterFlush(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	w := config.NewDebouncedWriter(path, time.Hour)

	w.Save(sample{Value: 9})
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	var got sample
	if err := config.ReadJSON(path, &got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Value != 9 {
		t.Fatalf("got %d, want 9", got.Value)
	}
}
