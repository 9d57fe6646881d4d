package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vidsplit/vidsplit/internal/api"
	"github.com/vidsplit/vidsplit/internal/config"
	"github.com/vidsplit/vidsplit/internal/db"
	"github.com/vidsplit/vidsplit/internal/engine"
	"github.com/vidsplit/vidsplit/internal/jobs"
	"github.com/vidsplit/vidsplit/internal/logging"
	"github.com/vidsplit/vidsplit/internal/notify"
	"github.com/vidsplit/vidsplit/internal/playback"
	"github.com/vidsplit/vidsplit/internal/session"
	"github.com/vidsplit/vidsplit/internal/ui"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting vidsplit agent",
		"version", config.Version,
		"data_dir", logging.SanitizePath(cfg.DataDir()),
	)

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := jobs.NewRepository(database.Conn())

	instanceID, err := ensureInstanceID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure instance ID: %w", err)
	}

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Printf("║  VIDSPLIT AGENT v%-48s ║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:     http://127.0.0.1:%-34d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token:  %-52s ║\n", authToken)
	fmt.Printf("║  Instance ID: %-52s ║\n", instanceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Println()

	runnerCfg := engine.Config{
		FFmpegPath:    cfg.FFmpegPath(),
		FFprobePath:   cfg.FFprobePath(),
		InvokeTimeout: cfg.InvokeTimeout(),
		ProbeTimeout:  cfg.ProbeTimeout(),
		Logger:        logging.WithComponent(logger, "engine"),
	}

	engineRunner, err := engine.NewRunner(runnerCfg)
	if err != nil {
		return fmt.Errorf("media engine not usable: %w", err)
	}

	doctor := engine.NewCachedDoctor(engineRunner, logger)

	initCtx, initCancel := context.WithTimeout(context.Background(), cfg.ProbeTimeout())
	if caps, err := doctor.Refresh(initCtx); err != nil {
		logger.Warn("initial doctor probe failed", "error", err)
	} else {
		logger.Info("engine capabilities detected",
			"ffmpeg", caps.FFmpeg.Version,
			"ffprobe", caps.FFprobe.Version,
		)
	}
	initCancel()

	orch := session.New(engineRunner, logging.WithComponent(logger, "session"))
	jobService := jobs.NewService(repo, logger, cfg.OutputDir())

	var notifier *notify.Notifier
	if cfg.WebhookURL() != "" {
		notifier = notify.New(cfg.WebhookURL(), cfg.WebhookToken(), instanceID, logger)
		logger.Info("completion webhook enabled",
			"url", cfg.WebhookURL(),
			"token", logging.SanitizeToken(cfg.WebhookToken()),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobRunner := jobs.NewRunner(repo, orch, notifier, logging.WithComponent(logger, "jobs"), cfg.PollInterval())
	go jobRunner.Start(ctx)

	apiServer := api.NewServer(api.ServerConfig{
		Port:         cfg.Port(),
		JobService:   jobService,
		Repository:   repo,
		Runner:       jobRunner,
		Orchestrator: orch,
		Doctor:       doctor,
		Files:        playback.NewFileServer(logging.WithComponent(logger, "playback")),
		Logger:       logging.WithComponent(logger, "api"),
		StartTime:    startTime,
		InstanceID:   instanceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
		<-quitCh
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Repository: repo,
			Runner:     jobRunner,
			Logger:     logging.WithComponent(logger, "tray"),
			OnQuit: func() {
				close(quitCh)
			},
		})
		go func() {
			<-quitCh
			tray.Quit()
		}()
		// systray.Run must own the main thread; it returns on Quit.
		tray.Run()
	}

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureInstanceID(repo jobs.Repository) (string, error) {
	return ensureConfigValue(repo, "instance_id", 16)
}

func ensureAuthToken(repo jobs.Repository) (string, error) {
	return ensureConfigValue(repo, "auth_token", 32)
}

func ensureConfigValue(repo jobs.Repository, key string, numBytes int) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, key)
	if err == nil && existing != "" {
		return existing, nil
	}

	buf := make([]byte, numBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	value := hex.EncodeToString(buf)

	if err := repo.SetConfig(ctx, key, value); err != nil {
		return "", err
	}
	return value, nil
}
