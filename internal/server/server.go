// Package server provides the HTTP server and routing for Frontier.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/config"
	analysishandlers "github.com/aristath/frontier/internal/modules/analysis/handlers"
	historyhandlers "github.com/aristath/frontier/internal/modules/historical/handlers"
)

// Config holds server configuration
type Config struct {
	Log              zerolog.Logger
	Config           *config.Config
	AnalysisHandlers *analysishandlers.Handlers
	HistoryHandlers  *historyhandlers.Handlers
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    *config.Config
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg.Config,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	systemHandlers := NewSystemHandlers(s.log, cfg.Config.DataDir)

	s.router.Route("/api", func(r chi.Router) {
		cfg.AnalysisHandlers.RegisterRoutes(r)
		cfg.HistoryHandlers.RegisterRoutes(r)
		systemHandlers.RegisterRoutes(r)
	})

	return s
}

// Start begins listening on the configured port.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	s.log.Info().Int("port", s.cfg.Port).Msg("HTTP server listening")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router exposes the router, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
