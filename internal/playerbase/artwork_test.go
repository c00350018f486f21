package playerbase_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/micro-nova/amplipi-go/internal/playerbase"
)

func smallPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture png: %v", err)
	}
	return buf.Bytes()
}

func TestArtworkCache_FetchAndReuse(t *testing.T) {
	var hits int
	data := smallPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(data)
	}))
	defer srv.Close()

	cache := playerbase.NewArtworkCache()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	art, err := cache.Get(ctx, srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if art.Width != 4 || art.Height != 4 {
		t.Fatalf("dimensions = %dx%d, want 4x4", art.Width, art.Height)
	}
	if art.Base64 == "" {
		t.Fatalf("expected non-empty base64 payload")
	}

	if _, err := cache.Get(ctx, srv.URL); err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if hits != 1 {
		t.Fatalf("hits = %d, want 1 (second Get should hit the cache)", hits)
	}
}

func TestHub_PublishFansOutToSubscribers(t *testing.T) {
	hub := playerbase.NewHub()
	ch := hub.Subscribe("client-1")

	hub.Publish("track_changed", map[string]string{"title": "Song"})

	select {
	case frame := <-ch:
		if frame.Type != "media_update" || frame.Reason != "track_changed" {
			t.Fatalf("frame = %+v, want media_update/track_changed", frame)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a frame within 1s")
	}

	hub.Unsubscribe("client-1")
}
