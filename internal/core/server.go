package core

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paybridge/internal/config"
)

// Server encapsulates the router and cross-cutting dependencies for the
// payment bridge HTTP surface, allowing for easy injection during testing.
type Server struct {
	Config *config.Config
	Logger *slog.Logger

	// RouteRegistrars are callbacks that mount domain routes (the webhook
	// endpoint) onto the router. Populated by main before MountRoutes.
	RouteRegistrars []func(chi.Router)

	router *chi.Mux
}

// NewServer initializes dependencies and prepares the server for route
// mounting. It performs a fail-fast check on critical configuration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config: cfg,
		Logger: logger,
		router: chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration in tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// MountRoutes registers global middleware, the health endpoint, and all
// domain routes. Middleware order matters: Recoverer is outermost so panics
// anywhere in the chain produce a clean 500 instead of a dropped connection.
func (s *Server) MountRoutes() {
	s.router.Use(Recoverer(s.Logger))
	s.router.Use(RequestID)
	s.router.Use(RequestLogger(s.Logger))

	s.router.Get("/health", s.HandleHealth)

	for _, register := range s.RouteRegistrars {
		register(s.router)
	}
}

// healthResponse is the JSON response body for the health check endpoint.
type healthResponse struct {
	Status string `json:"status"`
}

// HandleHealth reports liveness. It deliberately checks nothing: the webhook
// endpoint must keep accepting deliveries even when the store or the
// messaging channel is degraded, so health must not depend on either.
// Mounted at GET /health, public.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, healthResponse{Status: "healthy"})
}
