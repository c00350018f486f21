package sourcebase_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/micro-nova/amplipi-go/internal/model"
	"github.com/micro-nova/amplipi-go/internal/sourcebase"
)

func TestRegister_SucceedsOnFirstAttempt(t *testing.T) {
	var got model.RegisterRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	base := sourcebase.New("cd", "CD", 8769, model.PlayerLocal, nil, srv.URL, "")
	if err := base.Register(context.Background(), model.SourceAvailable, "http://localhost:8769/command", []string{"go"}, false, false); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got.ID != "cd" {
		t.Fatalf("got.ID = %q, want cd", got.ID)
	}
}

func TestRegister_RetriesThenGivesUp(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	base := sourcebase.New("cd", "CD", 8769, model.PlayerLocal, nil, srv.URL, "")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := base.Register(ctx, model.SourceAvailable, "http://localhost:8769/command", nil, false, false)
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
}

func TestActionMap_TranslateFallsBackToRawAction(t *testing.T) {
	base := sourcebase.New("cd", "CD", 8769, model.PlayerLocal, map[string]string{"go": "toggle"}, "", "")
	if got := base.Translate("go"); got != "toggle" {
		t.Fatalf("Translate(go) = %q, want toggle", got)
	}
	if got := base.Translate("unmapped"); got != "unmapped" {
		t.Fatalf("Translate(unmapped) = %q, want unmapped (unchanged)", got)
	}
}
