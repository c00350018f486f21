package cdsource

import "testing"

func TestToRelease_MapsArtistYearAndTracks(t *testing.T) {
	r := mbRelease{
		ID:     "release-123",
		Title:  "Test Album",
		Date:   "1994-03-15",
		Artist: []mbArtistCredit{{Name: "Test Artist"}},
		Media: []mbMedium{{
			Tracks: []mbTrack{
				{Number: "1", Title: "First", Length: 180000},
				{Number: "2", Title: "Second", Length: 210500},
			},
		}},
	}

	release := toRelease(r, "https://coverartarchive.org")

	if release.ReleaseID != "release-123" || release.Title != "Test Album" || release.Artist != "Test Artist" {
		t.Fatalf("release = %+v", release)
	}
	if release.Year != "1994" {
		t.Fatalf("year = %q, want 1994", release.Year)
	}
	if len(release.Tracks) != 2 {
		t.Fatalf("got %d tracks, want 2", len(release.Tracks))
	}
	if release.Tracks[0].DurationSec != 180 {
		t.Fatalf("track 1 duration = %v, want 180", release.Tracks[0].DurationSec)
	}
	if release.FrontArt != "https://coverartarchive.org/release/release-123/front" {
		t.Fatalf("front art url = %q", release.FrontArt)
	}
}

func TestToRelease_NoArtistCreditOrMediaIsSafe(t *testing.T) {
	release := toRelease(mbRelease{ID: "x", Title: "Untitled"}, "https://coverartarchive.org")
	if release.Artist != "" {
		t.Fatalf("artist = %q, want empty", release.Artist)
	}
	if len(release.Tracks) != 0 {
		t.Fatalf("expected no tracks, got %d", len(release.Tracks))
	}
}
