package cdsource

import (
	"fmt"
	"os"
	"strings"

	"github.com/micro-nova/amplipi-go/internal/model"
)

// writeChaptersFile writes an OGM-style chapters file with absolute disc
// offsets derived from the TOC, one CHAPTERnn/CHAPTERnnNAME pair per
// track (spec.md §4.8 playback engine step 1).
func writeChaptersFile(path string, tracks []model.Track) error {
	var b strings.Builder
	for i, t := range tracks {
		b.WriteString(fmt.Sprintf("CHAPTER%02d=%s\n", i+1, formatTimestamp(t.StartOffsetS)))
		b.WriteString(fmt.Sprintf("CHAPTER%02dNAME=%s\n", i+1, t.Title))
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func formatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMillis := int64(seconds * 1000)
	hh := totalMillis / 3_600_000
	totalMillis %= 3_600_000
	mm := totalMillis / 60_000
	totalMillis %= 60_000
	ss := totalMillis / 1000
	ms := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hh, mm, ss, ms)
}
