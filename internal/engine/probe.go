package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ffprobeOutput mirrors the JSON emitted by
// `ffprobe -print_format json -show_format -show_streams`.
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
}

// Probe reads the media container and returns duration plus the first video
// stream's properties.
func (r *FFmpegRunner) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	if r.ffprobe == "" {
		return nil, fmt.Errorf("%w: ffprobe not found", ErrEngineUnavailable)
	}

	if r.cfg.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.ProbeTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("ffprobe failed: %s", truncate(string(exitErr.Stderr), 512))
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	result, err := parseProbeOutput(out)
	if err != nil {
		return nil, err
	}

	r.cfg.Logger.Debug("media probed",
		"path", r.safePath(path),
		"duration_s", result.Duration,
		"resolution", fmt.Sprintf("%dx%d", result.Width, result.Height),
	)
	return result, nil
}

func parseProbeOutput(data []byte) (*ProbeResult, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("cannot parse ffprobe JSON: %w", err)
	}

	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("no duration in probe output")
	}

	result := &ProbeResult{
		Duration:  duration,
		Container: probe.Format.FormatName,
	}

	if probe.Format.Size != "" {
		if size, err := strconv.ParseInt(probe.Format.Size, 10, 64); err == nil {
			result.SizeBytes = size
		}
	}

	for _, stream := range probe.Streams {
		if stream.CodecType != "video" {
			continue
		}
		result.Width = stream.Width
		result.Height = stream.Height
		result.VideoCodec = stream.CodecName
		result.FrameRate = parseFrameRate(stream.RFrameRate)
		break
	}

	return result, nil
}

// parseFrameRate converts ffprobe's rational rate ("30000/1001") to a float.
func parseFrameRate(raw string) float64 {
	num, den, found := strings.Cut(raw, "/")
	if !found {
		v, _ := strconv.ParseFloat(raw, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
