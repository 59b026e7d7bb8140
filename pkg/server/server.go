// Package server exposes the guarded agent over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/rs/cors"

	"github.com/run-bigpig/agent-guard/pkg/logging"
)

// Server is the HTTP API of the agent
type Server struct {
	runner         Runner
	logger         logging.Logger
	allowedOrigins []string
	container      *restful.Container
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger for the server
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAllowedOrigins sets the CORS origins
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// New creates a server that runs turns with runner
func New(runner Runner, options ...Option) *Server {
	s := &Server{
		runner:         runner,
		logger:         logging.NewNop(),
		allowedOrigins: []string{"*"},
	}
	for _, opt := range options {
		opt(s)
	}

	restful.DefaultResponseContentType(restful.MIME_JSON)
	s.container = restful.NewContainer()
	s.container.Filter(requestLogger(s.logger))
	s.container.Filter(recoverPanic(s.logger))
	RegisterRoutes(s.container, NewHandler(runner, s.logger))
	return s
}

// Handler returns the CORS wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	return corsHandler.Handler(s.container)
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", map[string]interface{}{"address": addr})
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info(ctx, "Shutting down HTTP server", nil)
		return server.Shutdown(shutdownCtx)
	}
}
