// Package web exposes the engine over HTTP: a JSON API for submitting
// requests and inspecting the panel, plus an SSE stream bridging the event
// bus to connected clients.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/events"
	"github.com/conclave-ai/conclave/internal/logging"
)

// Coordinator runs one request through the pipeline. *service.Engine
// implements it; tests substitute stubs.
type Coordinator interface {
	Handle(ctx context.Context, req *core.Request) (*core.Outcome, error)
}

// Server provides the HTTP API over a running engine.
type Server struct {
	router      chi.Router
	coordinator Coordinator
	registry    core.ExpertRegistry
	history     core.HistoryStore
	analyzer    core.StructuralAnalyzer
	bus         *events.Bus
	heartbeat   time.Duration
	corsOrigins []string
	logger      *logging.Logger
}

// Option configures the server.
type Option func(*Server)

// WithHistory attaches the outcome store backing the history endpoints.
func WithHistory(store core.HistoryStore) Option {
	return func(s *Server) {
		s.history = store
	}
}

// WithAnalyzer attaches the structural analyzer applied when a submission
// carries source text.
func WithAnalyzer(analyzer core.StructuralAnalyzer) Option {
	return func(s *Server) {
		s.analyzer = analyzer
	}
}

// WithBus attaches the event bus backing the SSE stream.
func WithBus(bus *events.Bus) Option {
	return func(s *Server) {
		s.bus = bus
	}
}

// WithHeartbeat sets the SSE keep-alive interval.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

// WithCORSOrigins restricts the allowed CORS origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates an API server over the given coordinator and panel.
func NewServer(coordinator Coordinator, registry core.ExpertRegistry, opts ...Option) *Server {
	s := &Server{
		coordinator: coordinator,
		registry:    registry,
		heartbeat:   15 * time.Second,
		corsOrigins: []string{"*"},
		logger:      logging.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("web")

	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/requests", s.handleSubmitRequest)
		r.Get("/requests/{requestID}", s.handleGetOutcome)
		r.Get("/experts", s.handleListExperts)
		r.Get("/history", s.handleListHistory)
		r.Get("/events", s.handleSSE)
	})

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	experts := 0
	if s.registry != nil {
		experts = len(s.registry.List())
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"experts": experts,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// ListenAndServe starts the HTTP server and shuts it down gracefully when
// ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting API server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
