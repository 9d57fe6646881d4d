package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vidsplit/vidsplit/internal/engine"
	"github.com/vidsplit/vidsplit/internal/logging"
	"github.com/vidsplit/vidsplit/internal/session"
)

// fakeEngine is healthy, probes a 600s file, and succeeds every invocation
// unless invokeFn overrides that.
type fakeEngine struct {
	invoked  atomic.Int32
	invokeFn func(ctx context.Context, req engine.InvokeRequest) engine.RunResult
}

func (f *fakeEngine) Invoke(ctx context.Context, req engine.InvokeRequest) engine.RunResult {
	f.invoked.Add(1)
	if f.invokeFn != nil {
		return f.invokeFn(ctx, req)
	}
	return engine.RunResult{Index: req.Segment.Index, OutputPath: req.OutputPath, OutputBytes: 512}
}

func (f *fakeEngine) Probe(ctx context.Context, path string) (*engine.ProbeResult, error) {
	return &engine.ProbeResult{Duration: 600, FrameRate: 25}, nil
}

func (f *fakeEngine) Doctor(ctx context.Context) (*engine.Capabilities, error) {
	return &engine.Capabilities{
		FFmpeg: engine.ToolInfo{Available: true, Path: "/usr/bin/ffmpeg"},
	}, nil
}

func setupRunnerTest(t *testing.T, eng engine.Runner) (*Runner, Repository) {
	t.Helper()

	repo := setupTestDB(t)
	orch := session.New(eng, logging.NewNopLogger())
	runner := NewRunner(repo, orch, nil, logging.NewNopLogger(), 10*time.Millisecond)
	return runner, repo
}

func submitTestJob(t *testing.T, repo Repository, timestamps []string) *Job {
	t.Helper()

	dir := t.TempDir()
	input := filepath.Join(dir, "input.mp4")
	if err := os.WriteFile(input, []byte("fake video"), 0644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	now := time.Now()
	job := &Job{
		ID:           NewID(),
		InputPath:    input,
		OutputDir:    filepath.Join(dir, "out"),
		OutputPrefix: "output",
		Timestamps:   timestamps,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

func TestExecute_CompletesJob(t *testing.T) {
	eng := &fakeEngine{}
	runner, repo := setupRunnerTest(t, eng)
	job := submitTestJob(t, repo, []string{"1:30"})

	runner.execute(context.Background(), job)

	got, _ := repo.GetJob(context.Background(), job.ID)
	if got.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.Progress != 100 {
		t.Errorf("progress = %d, want 100", got.Progress)
	}
	if got.Succeeded != 2 || got.Failed != 0 {
		t.Errorf("counts = %d/%d, want 2/0", got.Succeeded, got.Failed)
	}
	if got.TotalBytes != 1024 {
		t.Errorf("total bytes = %d, want 1024", got.TotalBytes)
	}
	if got.DurationSeconds != 600 || got.FrameRate != 25 {
		t.Errorf("media = %v/%v, want 600/25", got.DurationSeconds, got.FrameRate)
	}

	results, _ := repo.GetSegmentResults(context.Background(), job.ID)
	if len(results) != 2 {
		t.Fatalf("got %d segment rows, want 2", len(results))
	}
	if results[1].EndSeconds != nil {
		t.Error("last segment row should be open-ended")
	}
}

func TestExecute_PartialFailure(t *testing.T) {
	eng := &fakeEngine{}
	eng.invokeFn = func(ctx context.Context, req engine.InvokeRequest) engine.RunResult {
		if req.Segment.Index == 2 {
			return engine.RunResult{Index: 2, ExitCode: 1, OutputPath: req.OutputPath, StderrTail: "boom"}
		}
		return engine.RunResult{Index: req.Segment.Index, OutputPath: req.OutputPath, OutputBytes: 512}
	}

	runner, repo := setupRunnerTest(t, eng)
	job := submitTestJob(t, repo, []string{"1:30"})

	runner.execute(context.Background(), job)

	got, _ := repo.GetJob(context.Background(), job.ID)
	if got.Status != StatusCompletedWithErrors {
		t.Errorf("status = %s, want completed_with_errors", got.Status)
	}
	if got.Error != "1 of 2 segments failed" {
		t.Errorf("error = %q", got.Error)
	}
	if got.Succeeded != 1 || got.Failed != 1 {
		t.Errorf("counts = %d/%d, want 1/1", got.Succeeded, got.Failed)
	}
}

func TestExecute_RunValidationFailure(t *testing.T) {
	eng := &fakeEngine{}
	runner, repo := setupRunnerTest(t, eng)
	job := submitTestJob(t, repo, []string{"1:30"})

	// The input disappears between submission and pickup.
	os.Remove(job.InputPath)

	runner.execute(context.Background(), job)

	got, _ := repo.GetJob(context.Background(), job.ID)
	if got.Status != StatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
	if got.Error == "" {
		t.Error("error message missing")
	}
	if eng.invoked.Load() != 0 {
		t.Error("engine must not be invoked when validation fails")
	}
}

func TestExecute_SkipsCanceledJob(t *testing.T) {
	eng := &fakeEngine{}
	runner, repo := setupRunnerTest(t, eng)
	job := submitTestJob(t, repo, []string{"1:30"})

	if _, err := repo.CancelJobIfPending(context.Background(), job.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	runner.execute(context.Background(), job)

	got, _ := repo.GetJob(context.Background(), job.ID)
	if got.Status != StatusCanceled {
		t.Errorf("status = %s, want canceled", got.Status)
	}
	if eng.invoked.Load() != 0 {
		t.Error("engine must not run for a canceled job")
	}
}

func TestRunner_CancelActiveJob(t *testing.T) {
	invokeStarted := make(chan struct{})
	eng := &fakeEngine{}
	eng.invokeFn = func(ctx context.Context, req engine.InvokeRequest) engine.RunResult {
		close(invokeStarted)
		<-ctx.Done()
		return engine.RunResult{Index: req.Segment.Index, ExitCode: -1, OutputPath: req.OutputPath, StderrTail: "interrupted"}
	}

	runner, repo := setupRunnerTest(t, eng)
	job := submitTestJob(t, repo, []string{"1:30", "3:00"})

	done := make(chan struct{})
	go func() {
		runner.execute(context.Background(), job)
		close(done)
	}()

	<-invokeStarted

	if id, ok := runner.Active(); !ok || id != job.ID {
		t.Errorf("Active() = %q, %v; want %q, true", id, ok, job.ID)
	}
	if !runner.Cancel(job.ID) {
		t.Fatal("Cancel() = false for active job")
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("execute did not return after cancel")
	}

	got, _ := repo.GetJob(context.Background(), job.ID)
	if got.Status != StatusCanceled {
		t.Errorf("status = %s, want canceled", got.Status)
	}
	if _, ok := runner.Active(); ok {
		t.Error("Active() should be empty after the job ends")
	}
}

func TestRunner_CancelWrongJob(t *testing.T) {
	runner, _ := setupRunnerTest(t, &fakeEngine{})
	if runner.Cancel("not-the-active-job") {
		t.Error("Cancel() = true with nothing running")
	}
}

func TestRunner_PauseResume(t *testing.T) {
	runner, _ := setupRunnerTest(t, &fakeEngine{})

	if runner.IsPaused() {
		t.Error("runner should start unpaused")
	}
	runner.Pause()
	if !runner.IsPaused() {
		t.Error("Pause() did not take")
	}
	runner.Resume()
	if runner.IsPaused() {
		t.Error("Resume() did not take")
	}
}

func TestProcessNextJob_Empty(t *testing.T) {
	runner, _ := setupRunnerTest(t, &fakeEngine{})
	// Must be a no-op with an empty queue.
	runner.processNextJob(context.Background())
}

func TestProcessNextJob_PicksOldest(t *testing.T) {
	eng := &fakeEngine{}
	runner, repo := setupRunnerTest(t, eng)

	input := filepath.Join(t.TempDir(), "input.mp4")
	if err := os.WriteFile(input, []byte("fake video"), 0644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	makeJob := func(createdAt time.Time) *Job {
		job := &Job{
			ID:           NewID(),
			InputPath:    input,
			OutputDir:    t.TempDir(),
			OutputPrefix: "output",
			Timestamps:   []string{"1:30"},
			Status:       StatusPending,
			CreatedAt:    createdAt,
			UpdatedAt:    createdAt,
		}
		if err := repo.CreateJob(context.Background(), job); err != nil {
			t.Fatalf("create job: %v", err)
		}
		return job
	}

	older := makeJob(time.Now().Add(-time.Hour))
	newer := makeJob(time.Now())

	runner.processNextJob(context.Background())

	gotOlder, _ := repo.GetJob(context.Background(), older.ID)
	gotNewer, _ := repo.GetJob(context.Background(), newer.ID)
	if !gotOlder.IsTerminal() {
		t.Errorf("oldest job not executed, status = %s", gotOlder.Status)
	}
	if gotNewer.Status != StatusPending {
		t.Errorf("newer job should stay pending, status = %s", gotNewer.Status)
	}
}

// progressFailRepo drops every progress write. The run must still finish
// and record its terminal state.
type progressFailRepo struct {
	Repository
}

func (p *progressFailRepo) UpdateJobProgress(ctx context.Context, id string, progress int) error {
	return errors.New("progress write refused")
}

func TestExecute_ProgressWriteFailureDoesNotAbort(t *testing.T) {
	repo := &progressFailRepo{Repository: setupTestDB(t)}
	orch := session.New(&fakeEngine{}, logging.NewNopLogger())
	runner := NewRunner(repo, orch, nil, logging.NewNopLogger(), 10*time.Millisecond)
	job := submitTestJob(t, repo, []string{"1:30"})

	runner.execute(context.Background(), job)

	got, _ := repo.GetJob(context.Background(), job.ID)
	if got.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.Succeeded != 2 || got.Failed != 0 {
		t.Errorf("counts = %d/%d, want 2/0", got.Succeeded, got.Failed)
	}
}
