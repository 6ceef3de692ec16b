// Package server provides the HTTP API for kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/session"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Server is the HTTP server for the kotae API.
type Server struct {
	sessions *session.Manager
	pipeline *session.Pipeline
	storage  storage.Storage
	config   *config.Config
	limiter  *rate.Limiter
	version  string
	started  time.Time
	logger   *zap.Logger
	server   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithStorage enables the ingestion history endpoints.
func WithStorage(st storage.Storage) Option {
	return func(s *Server) { s.storage = st }
}

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithVersion sets the version reported by /api/v1/status.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates a server with the given dependencies.
func NewServer(sessions *session.Manager, pipeline *session.Pipeline, cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		pipeline: pipeline,
		config:   cfg,
		version:  "dev",
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.OrNop(s.logger)
	if r := cfg.Server.IngestRatePerSecond; r > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(r), cfg.Server.IngestBurst)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(requestTimeout(config.Seconds(s.config.Server.RequestTimeoutSeconds)))
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", staticHandler()))

	r.With(s.rateLimit).Post("/process_url", s.handleProcessURL)
	r.Post("/query", s.handleQuery)

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions", s.handleListSessions)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.With(s.rateLimit).Post("/ingest", s.handleSessionIngest)
			r.Post("/query", s.handleSessionQuery)
			r.Get("/ingestions", s.handleListIngestions)
		})
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// requestTimeout bounds each request's context by d. Unlike middleware.Timeout it
// writes nothing itself: handlers map the deadline error to their own response,
// so the status is written once. d <= 0 leaves requests unbounded.
func requestTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// rateLimit rejects ingestion requests once the token bucket is empty.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			s.respondJSON(w, http.StatusTooManyRequests, errorBody{
				Error:  "too many ingestion requests, try again shortly",
				Kind:   "rate_limited",
				Detail: "too many ingestion requests, try again shortly",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
