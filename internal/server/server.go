// Package server exposes the session lifecycle and the media pipeline
// over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/wagate/internal/metrics"
	"github.com/harun/wagate/pkg/media"
	"github.com/harun/wagate/pkg/session"
)

// Options configures the HTTP server
type Options struct {
	Host string
	Port int

	// QRWaitTimeout bounds how long /qr waits for a fresh challenge
	// after auto-initializing a session
	QRWaitTimeout time.Duration

	// StatusWaitTimeout bounds how long /status waits for readiness
	StatusWaitTimeout time.Duration

	// PollInterval is the readiness poll cadence
	PollInterval time.Duration
}

// Server is the gateway HTTP server
type Server struct {
	options  Options
	server   *http.Server
	sessions *session.Manager
	pipeline *media.Pipeline
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	startTime      time.Time
	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// NewServer creates the gateway HTTP server
func NewServer(options Options, sessions *session.Manager, pipeline *media.Pipeline, m *metrics.Metrics, logger zerolog.Logger) (*Server, error) {
	if options.Port == 0 {
		options.Port = 3000
	}
	if options.Host == "" {
		options.Host = "0.0.0.0"
	}
	if options.QRWaitTimeout == 0 {
		options.QRWaitTimeout = 2 * time.Second
	}
	if options.StatusWaitTimeout == 0 {
		options.StatusWaitTimeout = 10 * time.Second
	}
	if options.PollInterval == 0 {
		options.PollInterval = 500 * time.Millisecond
	}

	if sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if pipeline == nil {
		return nil, fmt.Errorf("media pipeline is required")
	}

	return &Server{
		options:   options,
		sessions:  sessions,
		pipeline:  pipeline,
		metrics:   m,
		logger:    logger.With().Str("module", "server").Logger(),
		startTime: time.Now(),
	}, nil
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("GET /qr/{userId}", s.track(s.handleQR))
	mux.HandleFunc("GET /status/{userId}", s.track(s.handleStatus))
	mux.HandleFunc("GET /me/{userId}", s.track(s.handleMe))
	mux.HandleFunc("POST /logout/{userId}", s.track(s.handleLogout))
	mux.HandleFunc("POST /send/{userId}", s.track(s.handleSend))

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.options.Host, s.options.Port),
		Handler: mux,
	}

	s.logger.Info().
		Str("host", s.options.Host).
		Int("port", s.options.Port).
		Msg("Starting gateway server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start gateway server: %w", err)
	}

	return nil
}

// Stop gracefully stops the server, draining in-flight requests
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down gateway server")

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown gateway server: %w", err)
	}

	s.logger.Info().Msg("Gateway server stopped")
	return nil
}

// track wraps a handler with in-flight accounting and shutdown rejection
func (s *Server) track(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.shutdownMu.RLock()
		shuttingDown := s.isShuttingDown
		s.shutdownMu.RUnlock()
		if shuttingDown {
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "server is shutting down"})
			return
		}

		s.inFlightReqs.Add(1)
		defer s.inFlightReqs.Done()
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		UptimeSeconds: time.Since(s.startTime).Seconds(),
		Sessions:      s.sessions.SessionCount(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
