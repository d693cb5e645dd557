// Package server serves the catalog over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/catalog/pkg/middleware"
	"github.com/vango-dev/catalog/pkg/render"
	"github.com/vango-dev/catalog/pkg/session"
)

// Config configures a Server.
type Config struct {
	// Address is the address to listen on. Default: ":8080".
	Address string

	Selector *render.Selector
	Views    *render.Views

	// Sessions serves /live. Nil disables live sessions.
	Sessions *session.Manager

	// Registry backs /metrics and the HTTP metrics. Nil disables both.
	Registry *prometheus.Registry

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	Logger *slog.Logger
}

// Server is the catalog HTTP server.
type Server struct {
	cfg        Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server and mounts its routes.
func New(cfg Config) *Server {
	if cfg.Address == "" {
		cfg.Address = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "server"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if s.cfg.Registry != nil {
		r.Use(middleware.Prometheus(middleware.WithRegistry(s.cfg.Registry)))
	}
	r.Use(middleware.OpenTelemetry(middleware.WithRequestFilter(func(r *http.Request) bool {
		return r.URL.Path != "/healthz" && r.URL.Path != "/metrics"
	})))

	base := s.cfg.Selector.BaseRoute()
	r.Get("/", s.handleHome)
	r.Get(base, s.handleList)
	r.Get(base+"/{id}", s.handleDetail)
	r.Get("/_catalog/live.js", s.handleLiveJS)
	r.Get("/healthz", s.handleHealth)
	if s.cfg.Sessions != nil {
		r.Handle("/live", s.cfg.Sessions)
	}
	if s.cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.cfg.Registry, promhttp.HandlerOpts{}))
	}
	r.NotFound(s.handleNotFound)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.cfg.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes live sessions, then stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	if s.cfg.Sessions != nil {
		if err := s.cfg.Sessions.ShutdownWithContext(ctx); err != nil {
			s.logger.Warn("session shutdown incomplete", "error", err)
		}
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.cfg.Selector.Wait()
	s.logger.Info("server shutdown complete")
	return nil
}
