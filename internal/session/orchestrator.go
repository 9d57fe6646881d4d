// Package session sequences one split run: validate, probe, plan, then one
// engine invocation per segment with best-effort aggregation.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vidsplit/vidsplit/internal/engine"
	"github.com/vidsplit/vidsplit/internal/split"
)

// ErrInputNotFound means the input path does not exist or is not a file.
var ErrInputNotFound = errors.New("input not found")

// DefaultOutputPrefix is used when a run names no prefix.
const DefaultOutputPrefix = "output"

// Request carries everything one run needs.
type Request struct {
	InputPath    string
	OutputDir    string
	OutputPrefix string
	Timestamps   []string
	Scale        string

	// DryRun stops after planning; no engine process is started.
	DryRun bool

	// Progress, when set, receives one event as each segment starts and one
	// as it finishes.
	Progress func(Event)
}

// Event reports per-segment progress. Result is nil while the segment is
// still running.
type Event struct {
	Segment split.Segment
	Total   int
	Result  *engine.RunResult
}

// Summary aggregates one run's outcome.
type Summary struct {
	Input      string
	OutputDir  string
	Media      *engine.ProbeResult // nil when the duration could not be read
	Scale      *split.ScaleSpec
	Segments   []split.Segment
	Results    []engine.RunResult
	Succeeded  int
	Failed     int
	TotalBytes int64
	Elapsed    time.Duration
}

// Ok reports whether every segment succeeded.
func (s *Summary) Ok() bool { return s.Failed == 0 }

// Failures returns the results of failed segments, in segment order.
func (s *Summary) Failures() []engine.RunResult {
	var failures []engine.RunResult
	for _, r := range s.Results {
		if !r.IsSuccess() {
			failures = append(failures, r)
		}
	}
	return failures
}

// Orchestrator runs split sessions against an engine runner.
type Orchestrator struct {
	runner engine.Runner
	logger *slog.Logger
}

func New(runner engine.Runner, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{runner: runner, logger: logger}
}

// Run executes one session. Validation failures abort before any engine
// process starts; a failed segment is recorded and the remaining segments
// still run. On context cancellation the partial summary is returned
// together with the context error; an in-flight engine process is stopped
// but no further segments start.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Summary, error) {
	start := time.Now()

	info, err := os.Stat(req.InputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, req.InputPath)
		}
		return nil, fmt.Errorf("cannot stat input: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInputNotFound, req.InputPath)
	}

	caps, err := o.runner.Doctor(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrEngineUnavailable, err)
	}
	if !caps.CanSplit() {
		return nil, fmt.Errorf("%w: %s", engine.ErrEngineUnavailable, caps.FFmpeg.Error)
	}

	scale, err := split.ResolveScale(req.Scale)
	if err != nil {
		return nil, err
	}

	media, err := o.runner.Probe(ctx, req.InputPath)
	if err != nil {
		o.logger.Warn("media probe failed, duration unknown",
			"input", filepath.Base(req.InputPath),
			"error", err,
		)
		media = nil
	}

	totalDuration := 0.0
	if media != nil {
		totalDuration = media.Duration
	}

	prefix := req.OutputPrefix
	if prefix == "" {
		prefix = DefaultOutputPrefix
	}

	segments, err := split.Plan(req.Timestamps, totalDuration, prefix, filepath.Ext(req.InputPath))
	if err != nil {
		return nil, err
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = "."
	}

	summary := &Summary{
		Input:     req.InputPath,
		OutputDir: outputDir,
		Media:     media,
		Scale:     scale,
		Segments:  segments,
	}

	if req.DryRun {
		summary.Elapsed = time.Since(start)
		return summary, nil
	}

	if err := prepareOutputDir(outputDir); err != nil {
		return nil, err
	}

	o.logger.Info("starting split run",
		"input", filepath.Base(req.InputPath),
		"segments", len(segments),
		"copy_mode", scale == nil,
	)

	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			summary.Elapsed = time.Since(start)
			return summary, err
		}

		o.emit(req, Event{Segment: seg, Total: len(segments)})

		result := o.runner.Invoke(ctx, engine.InvokeRequest{
			InputPath:  req.InputPath,
			OutputPath: filepath.Join(outputDir, seg.OutputName),
			Segment:    seg,
			Scale:      scale,
		})

		summary.Results = append(summary.Results, result)
		if result.IsSuccess() {
			summary.Succeeded++
			summary.TotalBytes += result.OutputBytes
		} else {
			summary.Failed++
			o.logger.Warn("segment failed",
				"index", seg.Index,
				"exit_code", result.ExitCode,
			)
		}

		o.emit(req, Event{Segment: seg, Total: len(segments), Result: &result})
	}

	summary.Elapsed = time.Since(start)
	o.logger.Info("split run finished",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"elapsed_ms", summary.Elapsed.Milliseconds(),
	)
	return summary, nil
}

func (o *Orchestrator) emit(req Request, ev Event) {
	if req.Progress != nil {
		req.Progress(ev)
	}
}

// prepareOutputDir creates the output directory when missing and confirms
// it is writable with a throwaway file, so permission problems surface
// before the first engine process rather than N times during the run.
func prepareOutputDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}

	probe, err := os.CreateTemp(dir, ".vidsplit-write-check-*")
	if err != nil {
		return fmt.Errorf("output directory not writable: %w", err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return nil
}
