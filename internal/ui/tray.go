// Package ui drives the system tray menu for the daemon.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/getlantern/systray"
	"github.com/vidsplit/vidsplit/internal/jobs"
)

const refreshInterval = 5 * time.Second

type Tray struct {
	repo   jobs.Repository
	runner *jobs.Runner
	logger *slog.Logger

	statusItem *systray.MenuItem
	jobsItem   *systray.MenuItem
	pauseItem  *systray.MenuItem

	mu sync.Mutex

	onQuit func()
}

type TrayConfig struct {
	Repository jobs.Repository
	Runner     *jobs.Runner
	Logger     *slog.Logger
	OnQuit     func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		repo:   cfg.Repository,
		runner: cfg.Runner,
		logger: cfg.Logger,
		onQuit: cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Vidsplit")
	systray.SetTooltip("Vidsplit Agent")

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current splitter status")
	t.statusItem.Disable()

	t.jobsItem = systray.AddMenuItem("Jobs: none yet", "Finished job tally")
	t.jobsItem.Disable()

	systray.AddSeparator()

	t.pauseItem = systray.AddMenuItem("Pause", "Pause job processing")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Vidsplit Agent")

	go func() {
		refresh := time.NewTicker(refreshInterval)
		defer refresh.Stop()

		for {
			select {
			case <-t.pauseItem.ClickedCh:
				t.togglePause()
			case <-refresh.C:
				t.refreshJobs()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) togglePause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runner == nil {
		return
	}

	if t.runner.IsPaused() {
		t.runner.Resume()
		t.pauseItem.SetTitle("Pause")
		t.statusItem.SetTitle("Status: Idle")
	} else {
		t.runner.Pause()
		t.pauseItem.SetTitle("Resume")
		t.statusItem.SetTitle("Status: Paused")
	}
}

func (t *Tray) refreshJobs() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	list, err := t.repo.ListJobs(ctx, 50)
	if err != nil {
		return
	}

	var done, queued int
	var totalBytes int64
	running := false
	for _, j := range list {
		switch j.Status {
		case jobs.StatusPending:
			queued++
		case jobs.StatusRunning:
			running = true
		case jobs.StatusCompleted, jobs.StatusCompletedWithErrors:
			done++
			totalBytes += j.TotalBytes
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// While paused, togglePause owns the status line.
	if t.runner == nil || !t.runner.IsPaused() {
		if running {
			t.statusItem.SetTitle("Status: Splitting")
		} else {
			t.statusItem.SetTitle("Status: Idle")
		}
	}

	if done == 0 && queued == 0 {
		t.jobsItem.SetTitle("Jobs: none yet")
	} else {
		t.jobsItem.SetTitle(fmt.Sprintf("Jobs: %d done (%s), %d queued",
			done, humanize.Bytes(uint64(totalBytes)), queued))
	}
}

func (t *Tray) Quit() {
	systray.Quit()
}
