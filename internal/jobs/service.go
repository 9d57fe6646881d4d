package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vidsplit/vidsplit/internal/export"
	"github.com/vidsplit/vidsplit/internal/session"
	"github.com/vidsplit/vidsplit/internal/split"
)

type SubmitRequest struct {
	InputPath    string   `json:"input_path"`
	OutputDir    string   `json:"output_dir,omitempty"`
	OutputPrefix string   `json:"output_prefix,omitempty"`
	Timestamps   []string `json:"timestamps"`
	Scale        string   `json:"scale,omitempty"`
}

// Service validates and records jobs. Execution belongs to the Runner.
type Service struct {
	repo             Repository
	logger           *slog.Logger
	defaultOutputDir string
}

func NewService(repo Repository, logger *slog.Logger, defaultOutputDir string) *Service {
	return &Service{repo: repo, logger: logger, defaultOutputDir: defaultOutputDir}
}

// Submit validates the request the same way a run would and stores a
// pending job. The duration range check is deferred to run time, when the
// input gets probed.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Job, error) {
	if len(req.Timestamps) == 0 {
		return nil, fmt.Errorf("%w: at least one timestamp is required", split.ErrInvalidTimestamp)
	}

	absPath, err := filepath.Abs(req.InputPath)
	if err != nil {
		return nil, fmt.Errorf("invalid input path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", session.ErrInputNotFound, absPath)
		}
		return nil, fmt.Errorf("cannot stat input: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", session.ErrInputNotFound, absPath)
	}

	prefix := req.OutputPrefix
	if prefix == "" {
		prefix = session.DefaultOutputPrefix
	}

	if _, err := split.Plan(req.Timestamps, 0, prefix, filepath.Ext(absPath)); err != nil {
		return nil, err
	}
	if _, err := split.ResolveScale(req.Scale); err != nil {
		return nil, err
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = s.defaultOutputDir
	} else if err := export.ValidateOutputDir(outputDir); err != nil {
		return nil, err
	}

	now := time.Now()
	job := &Job{
		ID:           NewID(),
		InputPath:    absPath,
		OutputDir:    outputDir,
		OutputPrefix: prefix,
		Timestamps:   req.Timestamps,
		Scale:        req.Scale,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("job submitted",
			"job_id", job.ID,
			"input", filepath.Base(absPath),
			"timestamps", len(req.Timestamps),
		)
	}
	return job, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	return s.repo.GetJob(ctx, id)
}

func (s *Service) List(ctx context.Context, limit int) ([]*Job, error) {
	return s.repo.ListJobs(ctx, limit)
}

func (s *Service) SegmentResults(ctx context.Context, jobID string) ([]*SegmentResult, error) {
	return s.repo.GetSegmentResults(ctx, jobID)
}

// CancelPending cancels a job that has not been picked up yet. It reports
// false when the job already left the pending state.
func (s *Service) CancelPending(ctx context.Context, id string) (bool, error) {
	canceled, err := s.repo.CancelJobIfPending(ctx, id)
	if err != nil {
		return false, err
	}
	if canceled && s.logger != nil {
		s.logger.Info("pending job canceled", "job_id", id)
	}
	return canceled, nil
}
