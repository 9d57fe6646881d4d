// Package split holds the pure planning core: timestamp parsing, segment
// boundary computation and scale directive resolution. Nothing here touches
// the filesystem or spawns processes.
package split

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Parse converts timestamp text into an offset in seconds. Three shapes are
// accepted, tried in order: a plain non-negative number ("90", "12.5"),
// "MM:SS" and "HH:MM:SS". Minute and second fields above 59 are tolerated;
// "1:90" means 150 seconds.
func Parse(text string) (float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty input", ErrInvalidTimestamp)
	}

	fields := strings.Split(trimmed, ":")
	if len(fields) > 3 {
		return 0, fmt.Errorf("%w: %q has too many fields", ErrInvalidTimestamp, text)
	}

	values := make([]float64, len(fields))
	for i, f := range fields {
		// ParseFloat also accepts "nan" and "inf"; neither is a usable
		// offset and NaN in particular slips past every ordering check
		// downstream, so only finite non-negative values pass.
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, text)
		}
		values[i] = v
	}

	switch len(values) {
	case 1:
		return values[0], nil
	case 2:
		return values[0]*60 + values[1], nil
	default:
		return values[0]*3600 + values[1]*60 + values[2], nil
	}
}

// FormatTimestamp renders seconds as zero-padded HH:MM:SS text, keeping a
// short fractional suffix when the value is not whole.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}

	whole := int(seconds)
	h := whole / 3600
	m := (whole % 3600) / 60
	s := whole % 60

	out := fmt.Sprintf("%02d:%02d:%02d", h, m, s)

	frac := seconds - float64(whole)
	if frac >= 0.0005 {
		suffix := strings.TrimRight(fmt.Sprintf("%.3f", frac), "0")
		suffix = strings.TrimPrefix(suffix, "0")
		if suffix != "." {
			out += suffix
		}
	}
	return out
}
