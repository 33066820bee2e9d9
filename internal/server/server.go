// Package server exposes the read-only monitoring API: liveness, loop
// status, Prometheus metrics and a WebSocket stream of tick reports.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/tickbot/internal/server/handler"
	"github.com/alanyoungcy/tickbot/internal/server/middleware"
	"github.com/alanyoungcy/tickbot/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port   int
	APIKey string // if empty, authentication is disabled
}

// Handlers aggregates the HTTP handlers the server registers. Metrics may
// be nil.
type Handlers struct {
	Health  *handler.HealthHandler
	Status  *handler.StatusHandler
	Metrics http.Handler
}

// Server is the monitoring HTTP + WebSocket server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered. Health and
// metrics stay open for health checks and scrapers; status and the stream sit
// behind the API key.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	auth := middleware.Auth(cfg.APIKey)

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.Handle("GET /api/status", auth(http.HandlerFunc(handlers.Status.GetStatus)))

	if handlers.Metrics != nil {
		mux.Handle("GET /metrics", handlers.Metrics)
	}
	if wsHub != nil {
		mux.Handle("GET /ws", auth(http.HandlerFunc(wsHub.HandleWS)))
	}

	h := middleware.Logging(logger)(mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "http_server")),
	}
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
