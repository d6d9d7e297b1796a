// Package api exposes the generator over HTTP for automation pipelines.
//
// Endpoints:
//
//	GET  /health        liveness probe
//	GET  /ready         readiness probe (pings the database)
//	GET  /api/status    collection name, existence, and entry count
//	POST /api/generate  run the query pipeline for a user story
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: recovery, request IDs, request logging
//   - health.go: health check endpoints
//   - status.go: collection status endpoint
//   - generate.go: generation endpoint (rate limited)
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/qaforge/casegen/internal/log"
	"github.com/qaforge/casegen/internal/testgen"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:3500"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Generation calls a local model synchronously, so this is generous.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Config carries the dependencies and tuning for the HTTP server.
type Config struct {
	Pool       *pgxpool.Pool
	Store      StatusStore
	Generator  SuiteGenerator
	Collection string

	// GenerateRPS and GenerateBurst bound the rate of /api/generate calls.
	// Each call occupies a local model, so the limit defaults low.
	GenerateRPS   float64
	GenerateBurst int
}

// Server is the HTTP server for the casegen REST API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health   *HealthHandler
	status   *StatusHandler
	generate *GenerateHandler
}

// NewServer creates a new HTTP server with all routes registered.
func NewServer(cfg Config, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNop()
	}
	if cfg.GenerateRPS <= 0 {
		cfg.GenerateRPS = 1
	}
	if cfg.GenerateBurst <= 0 {
		cfg.GenerateBurst = 3
	}

	mux := http.NewServeMux()
	limiter := rate.NewLimiter(rate.Limit(cfg.GenerateRPS), cfg.GenerateBurst)

	s := &Server{
		mux:      mux,
		logger:   logger,
		health:   NewHealthHandler(cfg.Pool, logger),
		status:   NewStatusHandler(cfg.Store, cfg.Collection, logger),
		generate: NewGenerateHandler(cfg.Generator, limiter, logger),
	}

	s.health.RegisterRoutes(mux)
	s.status.RegisterRoutes(mux)
	s.generate.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → request ID → logging → handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		s.recoveryMiddleware,
		requestIDMiddleware,
		s.loggingMiddleware,
	)
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// SuiteGenerator is the slice of the query pipeline the API needs.
type SuiteGenerator interface {
	Generate(ctx context.Context, story string) (*testgen.Suite, error)
}
