package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ArranJacques/paplin/internal/auth"
	"github.com/ArranJacques/paplin/internal/config"
)

// Version is reported by /health and /capabilities.
const Version = "1.0.0"

// Server represents the HTTP API server.
type Server struct {
	mu         sync.Mutex
	httpServer *http.Server

	telemetryHub   TelemetryPort
	arms           ArmPort
	authMiddleware *auth.Middleware
	auditLogger    AuditPort
	timing         *config.TimingConfig
	cfg            config.ServerConfig
	startTime      time.Time
}

// NewServer creates a new API server without authentication.
func NewServer(telemetryHub TelemetryPort, arms ArmPort, timing *config.TimingConfig, cfg config.ServerConfig) *Server {
	if timing == nil {
		timing = config.LoadTimingBaseline()
	}
	return &Server{
		telemetryHub: telemetryHub,
		arms:         arms,
		timing:       timing,
		cfg:          cfg,
		startTime:    time.Now(),
	}
}

// NewServerWithAuth creates a new API server with authentication middleware.
func NewServerWithAuth(telemetryHub TelemetryPort, arms ArmPort, authMiddleware *auth.Middleware, timing *config.TimingConfig, cfg config.ServerConfig) *Server {
	s := NewServer(telemetryHub, arms, timing, cfg)
	s.authMiddleware = authMiddleware
	return s
}

// SetAuditLogger sets the logger used for arm selection.
func (s *Server) SetAuditLogger(logger AuditPort) {
	s.auditLogger = logger
}

// Handler returns the router with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// Start starts the HTTP server and blocks until it is stopped.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}
