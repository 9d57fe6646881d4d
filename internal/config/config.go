// Package config provides configuration management for vidsplit.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort      = 8791
	DefaultLogLevel  = "info"
	DefaultDataDir   = ".vidsplit"
	DefaultOutputDir = "."

	// Environment variable names
	EnvPort      = "VIDSPLIT_PORT"
	EnvLogLevel  = "VIDSPLIT_LOG_LEVEL"
	EnvDataDir   = "VIDSPLIT_DATA_DIR"
	EnvOutputDir = "VIDSPLIT_OUTPUT_DIR"
	EnvHeadless  = "VIDSPLIT_HEADLESS"

	// Engine environment variable names
	EnvFFmpegPath  = "VIDSPLIT_FFMPEG"
	EnvFFprobePath = "VIDSPLIT_FFPROBE"

	EnvPollIntervalSeconds  = "VIDSPLIT_POLL_INTERVAL_SECONDS"
	EnvInvokeTimeoutSeconds = "VIDSPLIT_INVOKE_TIMEOUT_SECONDS"
	EnvProbeTimeoutSeconds  = "VIDSPLIT_PROBE_TIMEOUT_SECONDS"

	EnvWebhookURL   = "VIDSPLIT_WEBHOOK_URL"
	EnvWebhookToken = "VIDSPLIT_WEBHOOK_TOKEN"

	// Database filename
	DBFilename = "vidsplit.db"

	// Engine defaults
	DefaultPollIntervalSeconds  = 2
	DefaultInvokeTimeoutSeconds = 3600 // one hour per segment
	DefaultProbeTimeoutSeconds  = 30
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	OutputDir() string
	Headless() bool
	FFmpegPath() string
	FFprobePath() string
	PollInterval() time.Duration
	InvokeTimeout() time.Duration
	ProbeTimeout() time.Duration
	WebhookURL() string
	WebhookToken() string
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port      int
	logLevel  string
	dataDir   string
	outputDir string
	headless  bool

	ffmpegPath  string
	ffprobePath string

	pollIntervalSeconds  int
	invokeTimeoutSeconds int
	probeTimeoutSeconds  int

	webhookURL   string
	webhookToken string
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:                 DefaultPort,
		logLevel:             DefaultLogLevel,
		dataDir:              defaultDataDir(),
		outputDir:            DefaultOutputDir,
		pollIntervalSeconds:  DefaultPollIntervalSeconds,
		invokeTimeoutSeconds: DefaultInvokeTimeoutSeconds,
		probeTimeoutSeconds:  DefaultProbeTimeoutSeconds,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if od := os.Getenv(EnvOutputDir); od != "" {
		cfg.outputDir = od
	}

	if h := os.Getenv(EnvHeadless); h == "1" || h == "true" {
		cfg.headless = true
	}

	cfg.ffmpegPath = os.Getenv(EnvFFmpegPath)
	cfg.ffprobePath = os.Getenv(EnvFFprobePath)

	var err error
	if cfg.pollIntervalSeconds, err = intFromEnv(EnvPollIntervalSeconds, cfg.pollIntervalSeconds); err != nil {
		return nil, err
	}
	if cfg.invokeTimeoutSeconds, err = intFromEnv(EnvInvokeTimeoutSeconds, cfg.invokeTimeoutSeconds); err != nil {
		return nil, err
	}
	if cfg.probeTimeoutSeconds, err = intFromEnv(EnvProbeTimeoutSeconds, cfg.probeTimeoutSeconds); err != nil {
		return nil, err
	}

	cfg.webhookURL = os.Getenv(EnvWebhookURL)
	cfg.webhookToken = os.Getenv(EnvWebhookToken)

	return cfg, nil
}

func intFromEnv(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return n, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// OutputDir returns the default directory for produced segments
func (c *EnvConfig) OutputDir() string {
	return c.outputDir
}

// Headless reports whether the agent should run without a system tray
func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

func (c *EnvConfig) FFprobePath() string {
	return c.ffprobePath
}

func (c *EnvConfig) PollInterval() time.Duration {
	return time.Duration(c.pollIntervalSeconds) * time.Second
}

func (c *EnvConfig) InvokeTimeout() time.Duration {
	return time.Duration(c.invokeTimeoutSeconds) * time.Second
}

func (c *EnvConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.probeTimeoutSeconds) * time.Second
}

func (c *EnvConfig) WebhookURL() string {
	return c.webhookURL
}

func (c *EnvConfig) WebhookToken() string {
	return c.webhookToken
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
