// Command vidsplit splits one video file into contiguous segments at the
// given timestamps, optionally re-encoding to a lower resolution. It is the
// one-shot counterpart of the vidsplitd agent and shares its entire
// pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/vidsplit/vidsplit/internal/config"
	"github.com/vidsplit/vidsplit/internal/engine"
	"github.com/vidsplit/vidsplit/internal/logging"
	"github.com/vidsplit/vidsplit/internal/session"
	"github.com/vidsplit/vidsplit/internal/split"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// timestampList accepts repeated flags and comma-separated values.
type timestampList []string

func (l *timestampList) String() string { return strings.Join(*l, ",") }

func (l *timestampList) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

func run(args []string) int {
	fs := flag.NewFlagSet("vidsplit", flag.ExitOnError)

	var timestamps timestampList
	fs.Var(&timestamps, "t", "cut-point (SS, MM:SS or HH:MM:SS); repeatable or comma-separated")
	fs.Var(&timestamps, "timestamps", "alias for -t")

	var prefix, scale, outputDir, logLevel string
	fs.StringVar(&prefix, "o", session.DefaultOutputPrefix, "output name prefix")
	fs.StringVar(&prefix, "output-prefix", session.DefaultOutputPrefix, "alias for -o")
	fs.StringVar(&scale, "s", "", "scale preset ("+strings.Join(split.ScalePresets(), "|")+") or width:height:bitrate")
	fs.StringVar(&scale, "scale", "", "alias for -s")
	fs.StringVar(&outputDir, "d", ".", "output directory, created if missing")
	fs.StringVar(&outputDir, "output-dir", ".", "alias for -d")
	fs.StringVar(&logLevel, "log-level", "warn", "log level (debug|info|warn|error)")

	var dryRun, showVersion bool
	fs.BoolVar(&dryRun, "dry-run", false, "print the planned segments and exit")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: vidsplit [flags] <input video>\n\n")
		fmt.Fprintf(fs.Output(), "Splits a video at the given timestamps using ffmpeg.\n\nFlags:\n")
		fs.PrintDefaults()
	}

	fs.Parse(args)

	if showVersion {
		fmt.Printf("vidsplit %s (built %s, commit %s)\n", config.Version, config.BuildTime, config.GitCommit)
		return 0
	}

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "error: exactly one input video path is required")
		fs.Usage()
		return 1
	}
	inputPath := fs.Arg(0)

	if len(timestamps) == 0 {
		fmt.Fprintln(os.Stderr, "error: at least one -t timestamp is required")
		return 1
	}

	logger := logging.NewCLILogger(logLevel)

	engineCfg := engine.DefaultConfig(logger)
	engineCfg.FFmpegPath = os.Getenv(config.EnvFFmpegPath)
	engineCfg.FFprobePath = os.Getenv(config.EnvFFprobePath)

	runner, err := engine.NewRunner(engineCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Probe once up front so the media line prints before progress starts;
	// the orchestrator re-probes cheaply for its own range validation.
	if media, probeErr := runner.Probe(ctx, inputPath); probeErr == nil {
		printMediaLine(inputPath, media)
	}

	orch := session.New(runner, logger)

	summary, err := orch.Run(ctx, session.Request{
		InputPath:    inputPath,
		OutputDir:    outputDir,
		OutputPrefix: prefix,
		Timestamps:   timestamps,
		Scale:        scale,
		DryRun:       dryRun,
		Progress:     printProgress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", friendly(err))
		return 1
	}

	if dryRun {
		printPlanTable(summary)
		return 0
	}

	printSummary(summary)
	if !summary.Ok() {
		return 1
	}
	return 0
}

// friendly keeps the wrapped sentinel message but strips nothing; it exists
// so interrupt reads as a cancellation instead of a raw context error.
func friendly(err error) string {
	if errors.Is(err, context.Canceled) {
		return "canceled before all segments finished"
	}
	return err.Error()
}

func printProgress(ev session.Event) {
	seg := ev.Segment
	if ev.Result == nil {
		end := "end"
		if seg.HasEnd {
			end = split.FormatTimestamp(seg.End)
		}
		fmt.Printf("[%d/%d] %s  %s -> %s\n",
			seg.Index, ev.Total, seg.OutputName, split.FormatTimestamp(seg.Start), end)
		return
	}

	r := ev.Result
	if r.IsSuccess() {
		fmt.Printf("      done in %s, %s\n", r.Duration.Round(time.Millisecond), humanize.Bytes(uint64(r.OutputBytes)))
		return
	}
	fmt.Printf("      FAILED (exit code %d)\n", r.ExitCode)
}

func printMediaLine(input string, m *engine.ProbeResult) {
	fmt.Printf("%s: %s", input, split.FormatTimestamp(m.Duration))
	if m.Width > 0 {
		fmt.Printf(", %dx%d", m.Width, m.Height)
	}
	if m.VideoCodec != "" {
		fmt.Printf(", %s", m.VideoCodec)
	}
	fmt.Println()
}

func printPlanTable(s *session.Summary) {
	total := 0.0
	if s.Media != nil {
		total = s.Media.Duration
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSTART\tEND\tDURATION\tOUTPUT")
	for _, seg := range s.Segments {
		end := "end"
		if seg.HasEnd {
			end = split.FormatTimestamp(seg.End)
		}
		dur := "?"
		if d := seg.Duration(total); d > 0 {
			dur = split.FormatTimestamp(d)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			seg.Index, split.FormatTimestamp(seg.Start), end, dur, seg.OutputName)
	}
	w.Flush()
}

func printSummary(s *session.Summary) {
	fmt.Printf("\n%d succeeded, %d failed, %s written in %s\n",
		s.Succeeded, s.Failed, humanize.Bytes(uint64(s.TotalBytes)), s.Elapsed.Round(time.Millisecond))

	for _, r := range s.Failures() {
		fmt.Printf("\nsegment %d failed (exit code %d):\n", r.Index, r.ExitCode)
		if tail := strings.TrimSpace(r.StderrTail); tail != "" {
			for _, line := range strings.Split(tail, "\n") {
				fmt.Printf("  %s\n", line)
			}
		}
		if hint := engine.StderrHint(r.StderrTail); hint != "" {
			fmt.Printf("  hint: %s\n", hint)
		}
	}
}
