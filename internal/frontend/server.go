// Package frontend exposes the REST and SSE surface of the engine.
package frontend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"

	"github.com/flowgrid-io/flowgrid/internal/config"
	"github.com/flowgrid-io/flowgrid/internal/dispatch"
	"github.com/flowgrid-io/flowgrid/internal/logger"
	"github.com/flowgrid-io/flowgrid/internal/registry"
	"github.com/flowgrid-io/flowgrid/internal/storage"
)

// Server is the HTTP server hosting the workflow API.
type Server struct {
	cfg      *config.Config
	store    *storage.Store
	registry *registry.Registry
	client   *dispatch.Client
	hub      *Hub

	httpServer *http.Server
}

// NewServer wires the API server.
func NewServer(cfg *config.Config, store *storage.Store, reg *registry.Registry) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		registry: reg,
		client:   dispatch.New(dispatch.WithTimeout(cfg.RequestTimeout)),
		hub:      NewHub(),
	}
}

// Routes builds the chi router for the API.
func (s *Server) Routes() http.Handler {
	requestLogger := httplog.NewLogger("http", httplog.Options{
		LogLevel:         slog.LevelInfo,
		JSON:             s.cfg.LogFormat == "json",
		Concise:          true,
		MessageFieldName: "msg",
	})

	r := chi.NewMux()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httplog.RequestLogger(requestLogger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/workflows", s.handleListWorkflows)
		r.Post("/workflows", s.handleCreateWorkflow)
		r.Get("/workflows/{workflowID}", s.handleGetWorkflow)
		r.Get("/workflows/{workflowID}/runs", s.handleListRuns)
		r.Post("/workflows/{workflowID}/runs", s.handleCreateRun)
		r.Get("/runs/{runID}", s.handleGetRun)
		r.Get("/runs/{runID}/stream", s.handleStreamRun)
	})
	return r
}

// Serve runs the HTTP server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "server listening", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
