package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vidsplit/vidsplit/internal/notify"
	"github.com/vidsplit/vidsplit/internal/session"
)

const defaultPollInterval = 2 * time.Second

// Runner picks up pending jobs on a ticker and runs them sequentially
// through the session orchestrator.
type Runner struct {
	repo         Repository
	orch         *session.Orchestrator
	notifier     *notify.Notifier
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool

	mu           sync.Mutex
	activeID     string
	cancelActive context.CancelFunc
}

func NewRunner(repo Repository, orch *session.Orchestrator, notifier *notify.Notifier, logger *slog.Logger, pollInterval time.Duration) *Runner {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Runner{
		repo:         repo,
		orch:         orch,
		notifier:     notifier,
		logger:       logger,
		pollInterval: pollInterval,
	}
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("job runner started", "poll_interval", r.pollInterval)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("job runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.processNextJob(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("job runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("job runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// Active returns the job currently being executed, if any.
func (r *Runner) Active() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID, r.activeID != ""
}

// Cancel stops the named job if it is the one in flight. The engine process
// is interrupted and the job lands in the canceled state.
func (r *Runner) Cancel(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeID != jobID || r.cancelActive == nil {
		return false
	}
	r.cancelActive()
	return true
}

func (r *Runner) processNextJob(ctx context.Context) {
	pending, err := r.repo.ListPendingJobs(ctx)
	if err != nil {
		r.logger.Error("failed to list pending jobs", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	r.execute(ctx, pending[0])
}

func (r *Runner) execute(ctx context.Context, job *Job) {
	started, err := r.repo.MarkJobStarted(ctx, job.ID)
	if err != nil {
		r.logger.Error("failed to mark job started", "job_id", job.ID, "error", err)
		return
	}
	if !started {
		// Canceled between pickup and start.
		return
	}

	r.logger.Info("processing job", "job_id", job.ID, "input", job.InputPath)

	jobCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.activeID = job.ID
	r.cancelActive = cancel
	r.mu.Unlock()
	defer func() {
		cancel()
		r.mu.Lock()
		r.activeID = ""
		r.cancelActive = nil
		r.mu.Unlock()
	}()

	completed := 0
	summary, runErr := r.orch.Run(jobCtx, session.Request{
		InputPath:    job.InputPath,
		OutputDir:    job.OutputDir,
		OutputPrefix: job.OutputPrefix,
		Timestamps:   job.Timestamps,
		Scale:        job.Scale,
		Progress: func(ev session.Event) {
			if ev.Result == nil {
				return
			}
			completed++
			if err := r.repo.UpdateJobProgress(ctx, job.ID, completed*100/ev.Total); err != nil {
				r.logger.Warn("failed to update job progress", "job_id", job.ID, "error", err)
			}
			r.recordSegment(ctx, job.ID, ev)
		},
	})

	// Terminal state writes use a fresh context so a canceled job still
	// gets recorded.
	dbCtx := context.Background()

	if summary != nil && summary.Media != nil {
		r.repo.SetJobMedia(dbCtx, job.ID, summary.Media.Duration, summary.Media.FrameRate)
	}

	switch {
	case runErr == nil && summary.Ok():
		r.finish(dbCtx, job, StatusCompleted, "", summary)
	case runErr == nil:
		msg := fmt.Sprintf("%d of %d segments failed", summary.Failed, len(summary.Results))
		r.finish(dbCtx, job, StatusCompletedWithErrors, msg, summary)
	case errors.Is(runErr, context.Canceled) && ctx.Err() == nil:
		r.finish(dbCtx, job, StatusCanceled, "canceled by request", summary)
	case ctx.Err() != nil:
		// Daemon shutdown; the restart sweep marks the job interrupted.
		r.logger.Info("job interrupted by shutdown", "job_id", job.ID)
	default:
		r.finish(dbCtx, job, StatusFailed, runErr.Error(), summary)
	}
}

func (r *Runner) recordSegment(ctx context.Context, jobID string, ev session.Event) {
	result := ev.Result
	sr := &SegmentResult{
		JobID:        jobID,
		Index:        ev.Segment.Index,
		StartSeconds: ev.Segment.Start,
		OutputPath:   result.OutputPath,
		ExitCode:     result.ExitCode,
		StderrTail:   result.StderrTail,
		OutputBytes:  result.OutputBytes,
		InvokeMs:     result.Duration.Milliseconds(),
		CreatedAt:    time.Now(),
	}
	if ev.Segment.HasEnd {
		end := ev.Segment.End
		sr.EndSeconds = &end
	}
	if err := r.repo.AddSegmentResult(ctx, sr); err != nil {
		r.logger.Warn("failed to record segment result", "job_id", jobID, "index", sr.Index, "error", err)
	}
}

func (r *Runner) finish(ctx context.Context, job *Job, status, errMsg string, summary *session.Summary) {
	var succeeded, failed int
	var totalBytes int64
	if summary != nil {
		succeeded = summary.Succeeded
		failed = summary.Failed
		totalBytes = summary.TotalBytes
	}

	if err := r.repo.FinishJob(ctx, job.ID, status, errMsg, succeeded, failed, totalBytes); err != nil {
		r.logger.Error("failed to finish job", "job_id", job.ID, "error", err)
		return
	}

	r.logger.Info("job finished",
		"job_id", job.ID,
		"status", status,
		"succeeded", succeeded,
		"failed", failed,
	)

	if r.notifier != nil {
		r.notifier.JobFinished(ctx, buildJobEvent(job, status, succeeded, failed, totalBytes, summary))
	}
}

func buildJobEvent(job *Job, status string, succeeded, failed int, totalBytes int64, summary *session.Summary) notify.JobEvent {
	ev := notify.JobEvent{
		JobID:      job.ID,
		Status:     status,
		Succeeded:  succeeded,
		Failed:     failed,
		TotalBytes: totalBytes,
	}
	if summary == nil {
		return ev
	}
	for _, result := range summary.Results {
		if result.IsSuccess() {
			ev.Outputs = append(ev.Outputs, result.OutputPath)
		} else {
			ev.Failures = append(ev.Failures, notify.SegmentFailure{
				Index:      result.Index,
				ExitCode:   result.ExitCode,
				StderrTail: result.StderrTail,
			})
		}
	}
	return ev
}
