package split

import (
	"fmt"
	"sort"
)

// Segment is one planned extraction interval. End is meaningful only when
// HasEnd is true; the final segment of every plan runs to the end of the
// media and carries no numeric end.
type Segment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end,omitempty"`
	HasEnd     bool    `json:"has_end"`
	Index      int     `json:"index"`
	OutputName string  `json:"output_name"`
}

// Duration returns the segment length in seconds, using totalDuration for
// the open-ended final segment. Returns 0 when neither bound is known.
func (s Segment) Duration(totalDuration float64) float64 {
	switch {
	case s.HasEnd:
		return s.End - s.Start
	case totalDuration > 0:
		return totalDuration - s.Start
	default:
		return 0
	}
}

// Plan turns raw timestamp text into the ordered segment list for one run.
// Cut-points are parsed, deduplicated and sorted; an implicit 0 is added
// when absent, so N distinct non-zero cut-points yield N+1 segments. A
// totalDuration of zero or less means the duration is unknown and range
// validation is skipped; otherwise every cut-point must be strictly below
// it. Segments are contiguous, non-overlapping and cover [0, duration).
func Plan(rawTimestamps []string, totalDuration float64, prefix, ext string) ([]Segment, error) {
	seen := make(map[float64]bool, len(rawTimestamps)+1)
	cuts := make([]float64, 0, len(rawTimestamps)+1)

	for _, raw := range rawTimestamps {
		v, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		if !seen[v] {
			seen[v] = true
			cuts = append(cuts, v)
		}
	}

	if !seen[0] {
		cuts = append(cuts, 0)
	}

	sort.Float64s(cuts)

	if totalDuration > 0 {
		for _, c := range cuts {
			if c >= totalDuration {
				return nil, fmt.Errorf("%w: %s is not before media end %s",
					ErrTimestampOutOfRange, FormatTimestamp(c), FormatTimestamp(totalDuration))
			}
		}
	}

	segments := make([]Segment, len(cuts))
	for i, start := range cuts {
		seg := Segment{
			Start:      start,
			Index:      i + 1,
			OutputName: OutputName(prefix, i+1, ext),
		}
		if i+1 < len(cuts) {
			seg.End = cuts[i+1]
			seg.HasEnd = true
		}
		segments[i] = seg
	}
	return segments, nil
}

// OutputName builds the output filename for one segment. ext carries the
// leading dot, as returned by filepath.Ext. Names are deterministic; a
// rerun with the same inputs overwrites rather than versions.
func OutputName(prefix string, index int, ext string) string {
	return fmt.Sprintf("%s_segment_%d%s", prefix, index, ext)
}
