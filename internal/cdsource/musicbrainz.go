package cdsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/micro-nova/amplipi-go/internal/model"
)

// MusicBrainzProvider is the default Provider, looking releases up by
// disc id against the MusicBrainz web service and cover art against the
// Cover Art Archive. No client library for either service appears
// anywhere in the example corpus, so this talks to them directly over
// net/http (see DESIGN.md).
type MusicBrainzProvider struct {
	BaseURL     string // defaults to https://musicbrainz.org/ws/2
	CoverArtURL string // defaults to https://coverartarchive.org
	UserAgent   string
	client      *http.Client
}

func NewMusicBrainzProvider(userAgent string) *MusicBrainzProvider {
	return &MusicBrainzProvider{
		BaseURL:     "https://musicbrainz.org/ws/2",
		CoverArtURL: "https://coverartarchive.org",
		UserAgent:   userAgent,
		client:      &http.Client{Timeout: 8 * time.Second},
	}
}

type mbDiscLookup struct {
	Releases []mbRelease `json:"releases"`
}

type mbRelease struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Date   string `json:"date"`
	Media  []mbMedium `json:"media"`
	Artist []mbArtistCredit `json:"artist-credit"`
}

type mbArtistCredit struct {
	Name string `json:"name"`
}

type mbMedium struct {
	Tracks []mbTrack `json:"tracks"`
}

type mbTrack struct {
	Number string `json:"number"`
	Title  string `json:"title"`
	Length int    `json:"length"` // milliseconds
}

func (p *MusicBrainzProvider) LookupByDiscID(ctx context.Context, discID string) ([]model.Release, error) {
	url := fmt.Sprintf("%s/discid/%s?inc=artist-credits+recordings&fmt=json", p.BaseURL, discID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("cdsource: musicbrainz discid lookup returned %d", resp.StatusCode)
	}

	var lookup mbDiscLookup
	if err := json.NewDecoder(resp.Body).Decode(&lookup); err != nil {
		return nil, err
	}

	releases := make([]model.Release, 0, len(lookup.Releases))
	for _, r := range lookup.Releases {
		releases = append(releases, toRelease(r, p.CoverArtURL))
	}
	return releases, nil
}

func toRelease(r mbRelease, coverArtURL string) model.Release {
	artist := ""
	if len(r.Artist) > 0 {
		artist = r.Artist[0].Name
	}
	year := ""
	if len(r.Date) >= 4 {
		year = r.Date[:4]
	}

	var tracks []model.Track
	if len(r.Media) > 0 {
		for i, t := range r.Media[0].Tracks {
			num := i + 1
			fmt.Sscanf(t.Number, "%d", &num)
			tracks = append(tracks, model.Track{
				Num:         num,
				Title:       t.Title,
				DurationSec: float64(t.Length) / 1000,
			})
		}
	}

	return model.Release{
		ReleaseID: r.ID,
		Title:     r.Title,
		Artist:    artist,
		Year:      year,
		Tracks:    tracks,
		FrontArt:  fmt.Sprintf("%s/release/%s/front", coverArtURL, r.ID),
		BackArt:   fmt.Sprintf("%s/release/%s/back", coverArtURL, r.ID),
	}
}

func (p *MusicBrainzProvider) FetchArt(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("cdsource: cover art fetch returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (p *MusicBrainzProvider) setHeaders(req *http.Request) {
	ua := p.UserAgent
	if ua == "" {
		ua = "amplipi-go-cdsource/1.0"
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "application/json")
}
