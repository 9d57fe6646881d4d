package api

import (
	"time"

	"github.com/vidsplit/vidsplit/internal/engine"
	"github.com/vidsplit/vidsplit/internal/jobs"
	"github.com/vidsplit/vidsplit/internal/split"
)

type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	UptimeS    int64  `json:"uptime_s"`
	InstanceID string `json:"instance_id"`
}

type CapabilitiesResponse struct {
	FFmpeg   engine.ToolInfo `json:"ffmpeg"`
	FFprobe  engine.ToolInfo `json:"ffprobe"`
	CanSplit bool            `json:"can_split"`
	CanProbe bool            `json:"can_probe"`
	ProbedAt string          `json:"probed_at,omitempty"`
}

type PreviewRequest struct {
	InputPath    string   `json:"input_path"`
	OutputPrefix string   `json:"output_prefix,omitempty"`
	Timestamps   []string `json:"timestamps"`
	Scale        string   `json:"scale,omitempty"`
}

type PreviewResponse struct {
	Input    string            `json:"input"`
	Media    *MediaResponse    `json:"media,omitempty"`
	Scale    *split.ScaleSpec  `json:"scale,omitempty"`
	Segments []SegmentResponse `json:"segments"`
}

type MediaResponse struct {
	DurationSeconds float64 `json:"duration_seconds"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	VideoCodec      string  `json:"video_codec,omitempty"`
	FrameRate       float64 `json:"frame_rate,omitempty"`
	SizeBytes       int64   `json:"size_bytes,omitempty"`
}

type SegmentResponse struct {
	Index        int      `json:"index"`
	StartSeconds float64  `json:"start_seconds"`
	EndSeconds   *float64 `json:"end_seconds,omitempty"`
	OutputName   string   `json:"output_name"`
}

type SubmitJobResponse struct {
	JobID string `json:"job_id"`
}

type JobResponse struct {
	ID              string   `json:"id"`
	InputPath       string   `json:"input_path"`
	OutputDir       string   `json:"output_dir"`
	OutputPrefix    string   `json:"output_prefix"`
	Timestamps      []string `json:"timestamps"`
	Scale           string   `json:"scale,omitempty"`
	Status          string   `json:"status"`
	Progress        int      `json:"progress"`
	Error           string   `json:"error,omitempty"`
	Succeeded       int      `json:"succeeded"`
	Failed          int      `json:"failed"`
	TotalBytes      int64    `json:"total_bytes"`
	DurationSeconds float64  `json:"duration_seconds,omitempty"`
	FrameRate       float64  `json:"frame_rate,omitempty"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
	StartedAt       string   `json:"started_at,omitempty"`
	FinishedAt      string   `json:"finished_at,omitempty"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type JobDetailResponse struct {
	JobResponse
	Segments []SegmentResultResponse `json:"segments"`
}

type SegmentResultResponse struct {
	Index        int      `json:"index"`
	StartSeconds float64  `json:"start_seconds"`
	EndSeconds   *float64 `json:"end_seconds,omitempty"`
	OutputPath   string   `json:"output_path"`
	ExitCode     int      `json:"exit_code"`
	StderrTail   string   `json:"stderr_tail,omitempty"`
	OutputBytes  int64    `json:"output_bytes"`
	InvokeMs     int64    `json:"invoke_ms"`
	CreatedAt    string   `json:"created_at"`
}

type CancelResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func JobToResponse(j *jobs.Job) JobResponse {
	resp := JobResponse{
		ID:              j.ID,
		InputPath:       j.InputPath,
		OutputDir:       j.OutputDir,
		OutputPrefix:    j.OutputPrefix,
		Timestamps:      j.Timestamps,
		Scale:           j.Scale,
		Status:          j.Status,
		Progress:        j.Progress,
		Error:           j.Error,
		Succeeded:       j.Succeeded,
		Failed:          j.Failed,
		TotalBytes:      j.TotalBytes,
		DurationSeconds: j.DurationSeconds,
		FrameRate:       j.FrameRate,
		CreatedAt:       j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       j.UpdatedAt.Format(time.RFC3339),
	}
	if j.StartedAt != nil {
		resp.StartedAt = j.StartedAt.Format(time.RFC3339)
	}
	if j.FinishedAt != nil {
		resp.FinishedAt = j.FinishedAt.Format(time.RFC3339)
	}
	return resp
}

func SegmentResultToResponse(sr *jobs.SegmentResult) SegmentResultResponse {
	return SegmentResultResponse{
		Index:        sr.Index,
		StartSeconds: sr.StartSeconds,
		EndSeconds:   sr.EndSeconds,
		OutputPath:   sr.OutputPath,
		ExitCode:     sr.ExitCode,
		StderrTail:   sr.StderrTail,
		OutputBytes:  sr.OutputBytes,
		InvokeMs:     sr.InvokeMs,
		CreatedAt:    sr.CreatedAt.Format(time.RFC3339),
	}
}

func SegmentToResponse(seg split.Segment) SegmentResponse {
	resp := SegmentResponse{
		Index:        seg.Index,
		StartSeconds: seg.Start,
		OutputName:   seg.OutputName,
	}
	if seg.HasEnd {
		end := seg.End
		resp.EndSeconds = &end
	}
	return resp
}

func CapabilitiesToResponse(caps *engine.Capabilities) CapabilitiesResponse {
	resp := CapabilitiesResponse{
		FFmpeg:   caps.FFmpeg,
		FFprobe:  caps.FFprobe,
		CanSplit: caps.CanSplit(),
		CanProbe: caps.CanProbe(),
	}
	if !caps.ProbedAt.IsZero() {
		resp.ProbedAt = caps.ProbedAt.Format(time.RFC3339)
	}
	return resp
}

func MediaToResponse(m *engine.ProbeResult) *MediaResponse {
	return &MediaResponse{
		DurationSeconds: m.Duration,
		Width:           m.Width,
		Height:          m.Height,
		VideoCodec:      m.VideoCodec,
		FrameRate:       m.FrameRate,
		SizeBytes:       m.SizeBytes,
	}
}
