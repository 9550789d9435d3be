package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/funnel-monitor/internal/auth"
	"github.com/ignite/funnel-monitor/internal/config"
)

// Server represents the API server
type Server struct {
	config      config.ServerConfig
	handler     http.Handler
	handlers    *Handlers
	health      *HealthChecker
	server      *http.Server
	authManager *auth.AuthManager
	router      *chi.Mux
}

// NewServer creates the API server. authManager may be nil to serve the
// API without login.
func NewServer(cfg config.ServerConfig, h *Handlers, health *HealthChecker, authManager *auth.AuthManager) *Server {
	router := SetupRoutes(h, health, authManager, cfg.AllowedOrigins)
	return &Server{
		config:      cfg,
		handler:     router,
		handlers:    h,
		health:      health,
		authManager: authManager,
		router:      router,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       s.config.ReadTimeout(),
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
