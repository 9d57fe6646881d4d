// Package playback serves produced segment files with HTTP Range support so
// a browser can scrub a segment without downloading the whole file.
package playback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMalformedRange = errors.New("malformed range header")
	ErrUnsatisfiable  = errors.New("range not satisfiable")
)

// ByteRange is one satisfiable byte span within a file. End is inclusive.
type ByteRange struct {
	Start int64
	End   int64
}

func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// ParseRange interprets a Range request header against a file of the given
// size. A nil range with a nil error means the whole file was requested.
// Multi-range requests are answered with their first span only.
func ParseRange(header string, size int64) (*ByteRange, error) {
	if header == "" {
		return nil, nil
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, ErrMalformedRange
	}

	if first, _, multi := strings.Cut(spec, ","); multi {
		spec = strings.TrimSpace(first)
	}

	startText, endText, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, ErrMalformedRange
	}

	var start, end int64
	if startText == "" {
		// Suffix form: the final N bytes of the file.
		n, err := strconv.ParseInt(endText, 10, 64)
		if err != nil || n <= 0 {
			return nil, ErrMalformedRange
		}
		start = size - n
		if start < 0 {
			start = 0
		}
		end = size - 1
	} else {
		var err error
		start, err = strconv.ParseInt(startText, 10, 64)
		if err != nil || start < 0 {
			return nil, ErrMalformedRange
		}

		end = size - 1
		if endText != "" {
			end, err = strconv.ParseInt(endText, 10, 64)
			if err != nil {
				return nil, ErrMalformedRange
			}
		}
	}

	if start > end || start >= size {
		return nil, ErrUnsatisfiable
	}
	if end >= size {
		end = size - 1
	}

	return &ByteRange{Start: start, End: end}, nil
}
