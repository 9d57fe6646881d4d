package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics

	killGracePeriod = 2 * time.Second
)

// Runner executes media engine commands as subprocesses. It is the single
// implementation of the engine execution contract used throughout vidsplit.
type Runner interface {
	// Invoke extracts one segment. A non-zero exit code is reported in the
	// RunResult, never as an error; the caller decides whether to continue.
	Invoke(ctx context.Context, req InvokeRequest) RunResult

	// Probe reads duration and stream properties from a media file.
	Probe(ctx context.Context, path string) (*ProbeResult, error)

	// Doctor checks which engine binaries are usable.
	Doctor(ctx context.Context) (*Capabilities, error)
}

// Config holds the runner's configuration.
type Config struct {
	FFmpegPath    string        // path to ffmpeg binary; empty = search PATH
	FFprobePath   string        // path to ffprobe binary; empty = search PATH
	InvokeTimeout time.Duration // per-segment extraction timeout
	ProbeTimeout  time.Duration // timeout for probe and doctor commands
	Logger        *slog.Logger
	DebugPaths    bool // if true, log full file paths; otherwise sanitise
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig(logger *slog.Logger) Config {
	return Config{
		InvokeTimeout: time.Hour,
		ProbeTimeout:  30 * time.Second,
		Logger:        logger,
	}
}

// FFmpegRunner is the production implementation of Runner.
type FFmpegRunner struct {
	cfg     Config
	ffmpeg  string // resolved ffmpeg path
	ffprobe string // resolved ffprobe path, empty when unavailable
}

// NewRunner creates an FFmpegRunner, resolving the engine binaries. A
// missing ffmpeg is fatal; a missing ffprobe only disables probing.
func NewRunner(cfg Config) (*FFmpegRunner, error) {
	ffmpeg, err := resolveBinary(cfg.FFmpegPath, "ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}

	ffprobe, err := resolveBinary(cfg.FFprobePath, "ffprobe")
	if err != nil {
		cfg.Logger.Warn("ffprobe not found, media probing disabled", "error", err)
		ffprobe = ""
	}

	cfg.Logger.Info("engine runner initialised",
		"ffmpeg", ffmpeg,
		"ffprobe", ffprobe,
	)

	return &FFmpegRunner{cfg: cfg, ffmpeg: ffmpeg, ffprobe: ffprobe}, nil
}

// Invoke runs one segment extraction and stats the output on success.
func (r *FFmpegRunner) Invoke(ctx context.Context, req InvokeRequest) RunResult {
	if r.cfg.InvokeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.InvokeTimeout)
		defer cancel()
	}

	result := r.exec(ctx, req.OutputPath, BuildSegmentArgs(req)...)
	result.Index = req.Segment.Index

	if result.IsSuccess() {
		if info, err := os.Stat(req.OutputPath); err == nil {
			result.OutputBytes = info.Size()
		}
	}
	return result
}

// BuildSegmentArgs constructs the engine argv for one segment. Copy-mode
// transfers streams as-is; scale-mode re-encodes to the target resolution
// and bitrates. The final segment of a plan has no end flag, so the engine
// runs to the end of the media.
func BuildSegmentArgs(req InvokeRequest) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", req.InputPath,
		"-ss", formatSeconds(req.Segment.Start),
	}

	if req.Segment.HasEnd {
		args = append(args, "-to", formatSeconds(req.Segment.End))
	}

	if req.Scale == nil {
		args = append(args, "-c", "copy", "-avoid_negative_ts", "make_zero")
	} else {
		args = append(args,
			"-vf", fmt.Sprintf("scale=%d:%d", req.Scale.Width, req.Scale.Height),
			"-b:v", req.Scale.VideoBitrate,
			"-b:a", req.Scale.AudioBitrate,
		)
	}

	return append(args, "-y", req.OutputPath)
}

func formatSeconds(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

// exec is the core subprocess execution helper.
func (r *FFmpegRunner) exec(ctx context.Context, outPath string, args ...string) RunResult {
	start := time.Now()

	cmd := exec.CommandContext(ctx, r.ffmpeg, args...)

	// Capture stderr with bounded buffer
	var stderrBuf bytes.Buffer
	cmd.Stderr = &limitedWriter{w: &stderrBuf, limit: maxStderrBytes}
	cmd.Stdout = io.Discard

	// On cancellation ask the engine to stop cleanly before killing it, so
	// partially written outputs get their trailers flushed where possible.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = killGracePeriod

	r.cfg.Logger.Info("executing engine command", "args", args)

	err := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
			if stderrBuf.Len() == 0 {
				stderrBuf.WriteString(err.Error())
			}
		}
	}

	stderrTail := stderrBuf.String()

	if exitCode != 0 {
		r.cfg.Logger.Warn("engine command failed",
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncate(stderrTail, 512),
		)
	} else {
		r.cfg.Logger.Info("engine command succeeded",
			"duration_ms", elapsed.Milliseconds(),
			"output", r.safePath(outPath),
		)
	}

	return RunResult{
		ExitCode:   exitCode,
		OutputPath: outPath,
		StderrTail: stderrTail,
		Duration:   elapsed,
	}
}

func (r *FFmpegRunner) safePath(path string) string {
	if r.cfg.DebugPaths {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Base(path)
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return filepath.Base(path)
}

// resolveBinary finds a usable engine binary.
func resolveBinary(preferred, name string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured %s %q not found", name, preferred)
	}
	if p, err := exec.LookPath(name); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("no %s binary found on PATH", name)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		// Keep only the tail
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}
