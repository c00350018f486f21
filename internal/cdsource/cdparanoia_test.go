package cdsource

import "testing"

func TestParseCDParanoiaTOC(t *testing.T) {
	output := []byte(`
cdparanoia III release 10.2 (September 11, 2008)

Table of contents (audio tracks only):
track        length               begin        copy pre ch
===========================================================
  1.    18120 [04:01.70]        0 [00:00.00]    no   no  2
  2.    15654 [03:28.04]    18120 [04:01.70]    no   no  2
  3.    20100 [04:28.00]    33774 [07:30.74]    no   no  2
TOTAL  53874 [11:58.24]    (audio only)
`)

	toc, err := parseCDParanoiaTOC(output)
	if err != nil {
		t.Fatalf("parseCDParanoiaTOC: %v", err)
	}
	if len(toc.Tracks) != 3 {
		t.Fatalf("got %d tracks, want 3", len(toc.Tracks))
	}
	if toc.Tracks[0].FrameOffset != 0 || toc.Tracks[0].LengthFrames != 18120 {
		t.Fatalf("track 1 = %+v", toc.Tracks[0])
	}
	if toc.Tracks[1].FrameOffset != 18120 || toc.Tracks[1].LengthFrames != 15654 {
		t.Fatalf("track 2 = %+v", toc.Tracks[1])
	}
	if toc.Tracks[2].Num != 3 {
		t.Fatalf("track 3 num = %d, want 3", toc.Tracks[2].Num)
	}
}

func TestParseCDParanoiaTOC_NoTracksErrors(t *testing.T) {
	if _, err := parseCDParanoiaTOC([]byte("no tracks here\n")); err == nil {
		t.Fatal("expected an error when no track lines are present")
	}
}
