// Package jobs persists split jobs and runs them one at a time in the
// background.
package jobs

import (
	"crypto/rand"
	"fmt"
	"time"
)

const (
	StatusPending             = "pending"
	StatusRunning             = "running"
	StatusCompleted           = "completed"
	StatusCompletedWithErrors = "completed_with_errors"
	StatusFailed              = "failed"
	StatusCanceled            = "canceled"
)

type Job struct {
	ID              string     `json:"id"`
	InputPath       string     `json:"input_path"`
	OutputDir       string     `json:"output_dir"`
	OutputPrefix    string     `json:"output_prefix"`
	Timestamps      []string   `json:"timestamps"`
	Scale           string     `json:"scale,omitempty"`
	Status          string     `json:"status"`
	Progress        int        `json:"progress"`
	Error           string     `json:"error,omitempty"`
	Succeeded       int        `json:"succeeded"`
	Failed          int        `json:"failed"`
	TotalBytes      int64      `json:"total_bytes"`
	DurationSeconds float64    `json:"duration_seconds,omitempty"`
	FrameRate       float64    `json:"frame_rate,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// IsTerminal reports whether the job can no longer change state.
func (j *Job) IsTerminal() bool {
	switch j.Status {
	case StatusCompleted, StatusCompletedWithErrors, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// SegmentResult is one engine invocation's outcome, persisted as the run
// progresses.
type SegmentResult struct {
	JobID        string    `json:"-"`
	Index        int       `json:"index"`
	StartSeconds float64   `json:"start_seconds"`
	EndSeconds   *float64  `json:"end_seconds,omitempty"` // nil for the open-ended segment
	OutputPath   string    `json:"output_path"`
	ExitCode     int       `json:"exit_code"`
	StderrTail   string    `json:"stderr_tail,omitempty"`
	OutputBytes  int64     `json:"output_bytes"`
	InvokeMs     int64     `json:"invoke_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

func (sr *SegmentResult) IsSuccess() bool {
	return sr.ExitCode == 0
}

func NewID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}
