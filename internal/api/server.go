// Package api exposes the daemon's local HTTP control surface: job
// submission and inspection, split previews, capability probes and segment
// downloads. The server binds to loopback only.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vidsplit/vidsplit/internal/engine"
	"github.com/vidsplit/vidsplit/internal/jobs"
	"github.com/vidsplit/vidsplit/internal/playback"
	"github.com/vidsplit/vidsplit/internal/session"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port         int
	JobService   *jobs.Service
	Repository   jobs.Repository
	Runner       *jobs.Runner
	Orchestrator *session.Orchestrator
	Doctor       *engine.CachedDoctor
	Files        *playback.FileServer
	Logger       *slog.Logger
	StartTime    time.Time
	InstanceID   string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler: router,
			// WriteTimeout stays 0 so large segment downloads are not cut off.
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
