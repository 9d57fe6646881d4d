package split

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultAudioBitrate is applied when a custom scale spec names no audio rate.
const DefaultAudioBitrate = "128k"

// ScaleSpec describes the re-encode target for scale-mode runs.
type ScaleSpec struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	VideoBitrate string `json:"video_bitrate"`
	AudioBitrate string `json:"audio_bitrate"`
}

func (s ScaleSpec) String() string {
	return fmt.Sprintf("%dx%d @ %s video / %s audio", s.Width, s.Height, s.VideoBitrate, s.AudioBitrate)
}

var scalePresets = map[string]ScaleSpec{
	"720p": {Width: 1280, Height: 720, VideoBitrate: "2M", AudioBitrate: "128k"},
	"480p": {Width: 854, Height: 480, VideoBitrate: "1M", AudioBitrate: "96k"},
	"360p": {Width: 640, Height: 360, VideoBitrate: "500k", AudioBitrate: "64k"},
	"240p": {Width: 426, Height: 240, VideoBitrate: "250k", AudioBitrate: "64k"},
}

// ResolveScale maps a scale directive to a concrete target. Empty input
// means copy-mode and resolves to nil. A preset token resolves from the
// fixed table, case-insensitively; anything else must be
// width:height:bitrate with exactly three fields, positive integer
// dimensions and an opaque rate string.
func ResolveScale(spec string) (*ScaleSpec, error) {
	trimmed := strings.TrimSpace(spec)
	if trimmed == "" {
		return nil, nil
	}

	if preset, ok := scalePresets[strings.ToLower(trimmed)]; ok {
		return &preset, nil
	}

	fields := strings.Split(trimmed, ":")
	if len(fields) != 3 {
		return nil, fmt.Errorf("%w: %q (want a preset or width:height:bitrate)", ErrInvalidScaleSpec, spec)
	}

	width, err := strconv.Atoi(fields[0])
	if err != nil || width <= 0 {
		return nil, fmt.Errorf("%w: bad width in %q", ErrInvalidScaleSpec, spec)
	}
	height, err := strconv.Atoi(fields[1])
	if err != nil || height <= 0 {
		return nil, fmt.Errorf("%w: bad height in %q", ErrInvalidScaleSpec, spec)
	}
	bitrate := strings.TrimSpace(fields[2])
	if bitrate == "" {
		return nil, fmt.Errorf("%w: empty bitrate in %q", ErrInvalidScaleSpec, spec)
	}

	return &ScaleSpec{
		Width:        width,
		Height:       height,
		VideoBitrate: bitrate,
		AudioBitrate: DefaultAudioBitrate,
	}, nil
}

// ScalePresets lists the reserved preset tokens in display order.
func ScalePresets() []string {
	return []string{"720p", "480p", "360p", "240p"}
}
