package playerbase

import (
	"bytes"
	"container/list"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	_ "golang.org/x/image/webp"
)

const (
	artworkCacheCapacity = 100
	artworkFetchTimeout  = 10 * time.Second
	artworkSizeLimit     = 500 * 1024
	artworkHighQuality   = 85
	artworkLowQuality    = 60
	artworkWorkers       = 4
)

// Artwork is the cached, wire-ready representation of one artwork image.
type Artwork struct {
	Base64 string `json:"base64"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type artworkJob struct {
	url    string
	result chan artworkResult
}

type artworkResult struct {
	art Artwork
	err error
}

// ArtworkCache is an LRU of url -> Artwork with decode/re-encode work run
// on a fixed worker pool so the event loop never blocks on image codecs
// (spec.md §4.4 "Image decoding runs in a worker pool").
type ArtworkCache struct {
	capacity int
	client   *http.Client

	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List // front = most recently used

	jobs chan artworkJob
	once sync.Once
}

type cacheEntry struct {
	url string
	art Artwork
}

func NewArtworkCache() *ArtworkCache {
	c := &ArtworkCache{
		capacity: artworkCacheCapacity,
		client:   &http.Client{Timeout: artworkFetchTimeout},
		items:    make(map[string]*list.Element),
		order:    list.New(),
		jobs:     make(chan artworkJob, 64),
	}
	for i := 0; i < artworkWorkers; i++ {
		go c.worker()
	}
	return c
}

func (c *ArtworkCache) worker() {
	for job := range c.jobs {
		art, err := c.fetchAndEncode(job.url)
		job.result <- artworkResult{art: art, err: err}
	}
}

// Get returns the cached artwork for url, fetching and converting it on
// a worker-pool goroutine if this is the first request for that url.
func (c *ArtworkCache) Get(ctx context.Context, url string) (Artwork, error) {
	c.mu.Lock()
	if el, ok := c.items[url]; ok {
		c.order.MoveToFront(el)
		art := el.Value.(*cacheEntry).art
		c.mu.Unlock()
		return art, nil
	}
	c.mu.Unlock()

	result := make(chan artworkResult, 1)
	select {
	case c.jobs <- artworkJob{url: url, result: result}:
	case <-ctx.Done():
		return Artwork{}, ctx.Err()
	}

	select {
	case res := <-result:
		if res.err != nil {
			return Artwork{}, res.err
		}
		c.put(url, res.art)
		return res.art, nil
	case <-ctx.Done():
		return Artwork{}, ctx.Err()
	}
}

func (c *ArtworkCache) put(url string, art Artwork) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[url]; ok {
		el.Value.(*cacheEntry).art = art
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&cacheEntry{url: url, art: art})
	c.items[url] = el
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).url)
		}
	}
}

func (c *ArtworkCache) fetchAndEncode(url string) (Artwork, error) {
	ctx, cancel := context.WithTimeout(context.Background(), artworkFetchTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Artwork{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return Artwork{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Artwork{}, fmt.Errorf("artwork: %s returned %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16*1024*1024))
	if err != nil {
		return Artwork{}, err
	}

	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return Artwork{}, fmt.Errorf("artwork: decode %s: %w", url, err)
	}

	rgb := toRGB(img)
	encoded, err := encodeJPEG(rgb, artworkHighQuality)
	if err != nil {
		return Artwork{}, err
	}
	if len(encoded) > artworkSizeLimit {
		slog.Debug("artwork: re-encoding at lower quality", "url", url, "size", len(encoded))
		encoded, err = encodeJPEG(rgb, artworkLowQuality)
		if err != nil {
			return Artwork{}, err
		}
	}

	bounds := rgb.Bounds()
	return Artwork{
		Base64: base64.StdEncoding.EncodeToString(encoded),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

func toRGB(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
