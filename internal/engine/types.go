// Package engine wraps the external media engine binaries (ffmpeg, ffprobe)
// behind subprocess execution with bounded diagnostics capture.
package engine

import (
	"errors"
	"strings"
	"time"

	"github.com/vidsplit/vidsplit/internal/split"
)

// ErrEngineUnavailable means the engine binary could not be found.
var ErrEngineUnavailable = errors.New("media engine unavailable")

// InvokeRequest describes one segment extraction.
type InvokeRequest struct {
	InputPath  string
	OutputPath string
	Segment    split.Segment
	Scale      *split.ScaleSpec
}

// RunResult is the structured outcome of one engine invocation.
type RunResult struct {
	Index       int           `json:"index"`
	ExitCode    int           `json:"exit_code"`
	OutputPath  string        `json:"output_path,omitempty"`
	StderrTail  string        `json:"stderr_tail,omitempty"` // last N bytes of stderr
	OutputBytes int64         `json:"output_bytes,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// IsSuccess returns true when the engine process exited cleanly.
func (r RunResult) IsSuccess() bool { return r.ExitCode == 0 }

// ProbeResult holds the media properties read from the container.
type ProbeResult struct {
	Duration   float64 `json:"duration"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	VideoCodec string  `json:"video_codec,omitempty"`
	FrameRate  float64 `json:"frame_rate,omitempty"`
	Container  string  `json:"container,omitempty"`
	SizeBytes  int64   `json:"size_bytes,omitempty"`
}

// Capabilities reports which engine tools are usable, as discovered by the
// doctor probe.
type Capabilities struct {
	FFmpeg  ToolInfo `json:"ffmpeg"`
	FFprobe ToolInfo `json:"ffprobe"`

	ProbedAt time.Time `json:"-"`
}

// ToolInfo represents the availability of a single engine binary.
type ToolInfo struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Path      string `json:"path,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CanSplit reports whether segment extraction is possible at all.
func (c *Capabilities) CanSplit() bool { return c.FFmpeg.Available }

// CanProbe reports whether media properties can be read before planning.
func (c *Capabilities) CanProbe() bool { return c.FFprobe.Available }

// StderrHint maps well-known engine complaints to a one-line suggestion.
// Returns the empty string for unrecognized output.
func StderrHint(stderrTail string) string {
	switch {
	case strings.Contains(stderrTail, "Permission denied"):
		return "check write permissions on the output directory"
	case strings.Contains(stderrTail, "No such file or directory"):
		return "verify the input path and output directory exist"
	case strings.Contains(stderrTail, "Invalid argument"):
		return "the engine rejected a flag; try copy-mode or a different scale target"
	default:
		return ""
	}
}
