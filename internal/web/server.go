// Package web provides the HTTP front end: delimited-text uploads are
// streamed from the request body through the parser into the loader.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/argius/stew5/internal/config"
	"github.com/argius/stew5/internal/load"
	mw "github.com/argius/stew5/internal/web/middleware"
)

// Loader loads one request. Satisfied by *load.Loader.
type Loader interface {
	Load(ctx context.Context, req load.Request) (*load.Result, error)
}

// Server is the HTTP server for uploads and previews.
type Server struct {
	loader Loader
	cfg    *config.Config
	router *chi.Mux
	server *http.Server
}

// NewServer creates a new Server instance.
func NewServer(loader Loader, cfg *config.Config) *Server {
	s := &Server{
		loader: loader,
		cfg:    cfg,
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	if proxies := s.cfg.Server.Proxies(); len(proxies) > 0 {
		s.router.Use(mw.TrustedRealIP(proxies))
	} else {
		s.router.Use(middleware.RealIP)
	}
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/load/{table}", s.handleLoad)
		r.Post("/preview", s.handlePreview)
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
