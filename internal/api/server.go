// Package api assembles the HTTP surface of the transcription service: the
// websocket streaming endpoint, the synchronous REST transcription endpoint,
// and the read-only inspection endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/voxstream/voxstream/internal/config"
	"github.com/voxstream/voxstream/internal/observe"
	"github.com/voxstream/voxstream/internal/session"
)

// shutdownTimeout bounds the drain of in-flight requests on Stop.
const shutdownTimeout = 10 * time.Second

// Server wires the session registry into HTTP and websocket handlers.
type Server struct {
	cfg      *config.Config
	registry *session.Registry
	metrics  *observe.Metrics
	version  string

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics wires observability instruments into the handlers. Without it
// nothing is recorded and /metrics serves only runtime collectors.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithVersion sets the version string reported by the health endpoint.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer builds a Server around the given registry.
func NewServer(cfg *config.Config, reg *session.Registry, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		registry: reg,
		version:  "dev",
	}
	for _, o := range opts {
		o(s)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           s.buildHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the assembled HTTP handler. Exposed for tests that serve
// it through httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) buildHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	mux.HandleFunc("POST /v1/transcribe", s.handleTranscribe)
	mux.HandleFunc("GET /v1/sessions", s.handleListSessions)
	mux.HandleFunc("GET /v1/sessions/metrics", s.handleSessionMetrics)
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleDeleteSession)
	mux.Handle("GET /metrics", promhttp.Handler())

	if s.metrics != nil {
		return observe.Middleware(s.metrics)(mux)
	}
	return mux
}

// Run serves HTTP until ctx is cancelled, then drains connections with a
// bounded shutdown.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// writeJSON encodes v as JSON with the given status code. On encoding
// failure it falls back to a plain 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failure"}`, http.StatusInternalServerError)
	}
}

// errorBody is the JSON shape of REST error responses.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
