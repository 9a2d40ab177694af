// ABOUTME: Console server that wires coordinator, backend client, command flow and dashboard
// ABOUTME: Owns the HTTP listener lifecycle with graceful shutdown

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/2389/copilot-console/internal/agentstatus"
	"github.com/2389/copilot-console/internal/auth"
	"github.com/2389/copilot-console/internal/backend"
	"github.com/2389/copilot-console/internal/config"
	"github.com/2389/copilot-console/internal/coordinator"
	"github.com/2389/copilot-console/internal/copilot"
	"github.com/2389/copilot-console/internal/dashboard"
)

const shutdownTimeout = 5 * time.Second

// Server runs the copilot console.
type Server struct {
	config      *config.Config
	coordinator *coordinator.Coordinator
	backend     *backend.Client
	copilot     *copilot.Service
	httpServer  *http.Server
	logger      *slog.Logger

	// ready is closed once the listener is bound.
	ready chan struct{}
	addr  net.Addr
}

// New builds every component from cfg. Call Run to serve, or Shutdown to
// release resources without serving.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	activation, err := coordinator.ParseActivationPolicy(cfg.Status.ActivateOn)
	if err != nil {
		return nil, fmt.Errorf("status.activate_on: %w", err)
	}

	// A nil interface, not a nil *JWTVerifier, disables auth.
	var verifier auth.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		v, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
		if err != nil {
			return nil, fmt.Errorf("creating token verifier: %w", err)
		}
		verifier = v
	} else {
		logger.Warn("auth.jwt_secret not set, API is unauthenticated")
	}

	coord := coordinator.New(coordinator.Config{
		Capacity:   cfg.Activity.Capacity,
		Dwell:      cfg.Status.Dwell,
		Roster:     agentstatus.Roster(cfg.Status.Roster),
		MetaAgents: cfg.Status.MetaAgents,
		Activation: activation,
		Logger:     logger,
	})

	client := backend.NewClient(backend.Config{
		URL:         cfg.Backend.URL,
		Timeout:     cfg.Backend.Timeout,
		MaxFailures: cfg.Backend.MaxFailures,
		OpenTimeout: cfg.Backend.OpenTimeout,
		Logger:      logger,
	})

	svc := copilot.NewService(copilot.Config{
		Executor:        client,
		Recorder:        coord,
		RatePerMinute:   cfg.Commands.RatePerMinute,
		Burst:           cfg.Commands.Burst,
		DedupeWindow:    cfg.Commands.DedupeWindow,
		TranscriptLimit: cfg.Commands.TranscriptLimit,
		Logger:          logger,
	})

	mux := http.NewServeMux()
	dashboard.New(dashboard.Config{
		State:     coord,
		Commands:  svc,
		Backend:   client,
		Customers: client,
		Verifier:  verifier,
		Logger:    logger,
	}).RegisterRoutes(mux)

	s := &Server{
		config:      cfg,
		coordinator: coord,
		backend:     client,
		copilot:     svc,
		logger:      logger.With("component", "server"),
		ready:       make(chan struct{}),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           requestLogger(mux, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Coordinator returns the activity coordinator.
func (s *Server) Coordinator() *coordinator.Coordinator {
	return s.coordinator
}

// Addr blocks until the listener is bound and returns its address.
func (s *Server) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-s.ready:
		return s.addr, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run serves HTTP until ctx is canceled or the server fails.
// Returns nil on graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		_ = s.Shutdown(context.Background())
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	s.addr = ln.Addr()
	close(s.ready)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening",
			"addr", ln.Addr().String(),
			"backend", s.backend.URL(),
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown uses a fresh context since the run context is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops the HTTP server and closes the coordinator and command
// service. Closing the coordinator ends open event streams first so the HTTP
// shutdown is not held up by them.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")

	s.coordinator.Close()
	s.copilot.Close()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	return nil
}

// requestLogger logs each request at debug level.
func requestLogger(next http.Handler, logger *slog.Logger) http.Handler {
	logger = logger.With("component", "http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}
