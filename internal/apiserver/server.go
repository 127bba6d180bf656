// Package apiserver exposes the task runtime over HTTP so that tasks can be
// submitted from other processes and followed while they run.
package apiserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/klubi/claw/internal/store"
	v1alpha1 "github.com/klubi/claw/pkg/apis/v1alpha1"
)

// Runner starts tasks in the background. *agent.Runtime implements it.
type Runner interface {
	// Start runs task on a background goroutine. The task is already
	// persisted in Pending phase.
	Start(task *v1alpha1.Task)
	// IsActive reports whether the task is running.
	IsActive(project, name string) bool
}

// Server is the claw REST API server. It persists submitted tasks in the
// Store and hands them to the Runner.
type Server struct {
	router *mux.Router
	store  store.Store
	runner Runner
	logger *zap.Logger
	server *http.Server

	allowedOrigins []string
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins answers CORS requests from the given origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// NewServer creates a fully-wired Server ready to Start().
func NewServer(addr string, s store.Store, runner Runner, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{
		router: mux.NewRouter(),
		store:  s,
		runner: runner,
		logger: logger,
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.registerRoutes()
	srv.server = &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return srv
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	if len(s.allowedOrigins) == 0 {
		return s.router
	}
	return cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(s.router)
}

// Start begins listening and serving HTTP requests. It blocks until the
// server is shut down or encounters a fatal error.
func (s *Server) Start() error {
	s.logger.Info("API server starting", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
