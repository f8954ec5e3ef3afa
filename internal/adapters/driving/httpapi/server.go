// Package httpapi exposes the manager over HTTP: a JSON query API built on
// chi and huma, with the OpenAPI document served at /openapi.json.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// ErrMissingManager is returned when the manager is not provided.
var ErrMissingManager = errors.New("httpapi: manager is required")

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr  string
	CORSOrigins []string
	Version     string

	ReadTimeout time.Duration

	// WriteTimeout must cover a full answer, generation included.
	WriteTimeout time.Duration
}

// Server serves the query API.
type Server struct {
	router  chi.Router
	api     huma.API
	cfg     Config
	manager driving.Manager
}

// New creates a Server with routes registered.
func New(cfg Config, manager driving.Manager) (*Server, error) {
	if manager == nil {
		return nil, ErrMissingManager
	}
	if cfg.ListenAddr == "" {
		return nil, fmt.Errorf("listen address is required")
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 90 * time.Second
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(cfg.CORSOrigins))

	humaConfig := huma.DefaultConfig("docrag", cfg.Version)
	humaConfig.Info.Description = "Grounded question answering over indexed regulatory documents"

	s := &Server{
		router:  r,
		api:     humachi.New(r, humaConfig),
		cfg:     cfg,
		manager: manager,
	}
	s.registerRoutes()

	return s, nil
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Mount attaches an extra handler under pattern, e.g. the MCP endpoint.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Mount(pattern, h)
}

// Start runs the HTTP server and blocks until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.ListenAddr, err)
	}
	logger.Info("HTTP API listening on %s", ln.Addr())

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return <-errCh
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Debug("%s %s %d %s [%s]", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond),
			middleware.GetReqID(r.Context()))
	})
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
}
