// Package export renders a segment plan as a CMX 3600 EDL and validates
// caller-supplied names and output directories.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/vidsplit/vidsplit/internal/split"
)

const fallbackFPS = 30

// GenerateEDL renders one event per segment, source timecodes from the cut
// points and record timecodes accumulating from zero. totalDuration closes
// the open-ended final segment; when it is unknown that event is left out
// rather than invented.
func GenerateEDL(segments []split.Segment, mediaPath, title string, frameRate, totalDuration float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = fallbackFPS
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	recordMs := 0
	for i, c := range planCuts(segments, totalDuration) {
		srcIn := msToTimecode(c.startMs, fps)
		srcOut := msToTimecode(c.endMs, fps)
		durationMs := c.endMs - c.startMs
		recIn := msToTimecode(recordMs, fps)
		recOut := msToTimecode(recordMs+durationMs, fps)

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V", srcIn, srcOut, recIn, recOut),
			fmt.Sprintf("* FROM CLIP NAME:  %s", c.name),
			fmt.Sprintf("* MEDIA PATH:  %s", mediaPath),
		)

		recordMs += durationMs
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

type cut struct {
	name    string
	startMs int
	endMs   int
}

func planCuts(segments []split.Segment, totalDuration float64) []cut {
	var cuts []cut
	for _, seg := range segments {
		end := seg.End
		if !seg.HasEnd {
			if totalDuration <= seg.Start {
				continue
			}
			end = totalDuration
		}
		cuts = append(cuts, cut{
			name:    seg.OutputName,
			startMs: int(math.Round(seg.Start * 1000)),
			endMs:   int(math.Round(end * 1000)),
		})
	}
	return cuts
}

func msToTimecode(ms int, fps int) string {
	totalFrames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
