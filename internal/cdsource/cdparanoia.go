package cdsource

import (
	"bufio"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/micro-nova/amplipi-go/internal/supervisor"
)

// cdparanoia's "-Q" (query TOC) output lists one line per track:
//
//	  1.    18120 [04:01.70]    0 [00:00.00]    no    no   2     0
//
// the first two numeric columns are the track's length and its start
// sector (both in frames, 75/sec). The parser keeps the track number and
// length; each track's offset is the running sum of the earlier tracks'
// lengths, and the start column is not used.
var cdparanoiaTrackLine = regexp.MustCompile(`^\s*(\d+)\.\s+(\d+)\s+\[[\d:.]+\]\s+(\d+)\s+\[[\d:.]+\]`)

// ReadTOCWithCDParanoia shells out to `cdparanoia -Q` to read a disc's
// table of contents, the default ReadTOCFn for BlockTOCProber.
func ReadTOCWithCDParanoia(devicePath string) (TOC, error) {
	cmd := exec.Command(supervisor.FindBinary("cdparanoia"), "-Q", "-d", devicePath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return TOC{}, fmt.Errorf("cdsource: cdparanoia -Q failed: %w", err)
	}
	return parseCDParanoiaTOC(out)
}

func parseCDParanoiaTOC(output []byte) (TOC, error) {
	var toc TOC
	runningOffset := 0
	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		m := cdparanoiaTrackLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		lengthFrames, _ := strconv.Atoi(m[2])
		toc.Tracks = append(toc.Tracks, TOCTrack{
			Num:          num,
			FrameOffset:  runningOffset,
			LengthFrames: lengthFrames,
		})
		runningOffset += lengthFrames
	}
	if len(toc.Tracks) == 0 {
		return TOC{}, fmt.Errorf("cdsource: no tracks parsed from cdparanoia output")
	}
	return toc, nil
}
