// Package server provides the thin chi-based HTTP surface that exercises
// the simulation core's external interface contract end-to-end (§6). It is
// a demonstration harness, not a production router.
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

	"github.com/aristath/vesting-sim/internal/queue"
)

// Config configures a new Server.
type Config struct {
	Log          zerolog.Logger
	Port         int
	DevMode      bool
	Manager      *queue.Manager
	WorkerBudget int
}

// Server wraps a chi.Mux exposing the simulation/Monte-Carlo job lifecycle.
type Server struct {
	router       *chi.Mux
	httpServer   *http.Server
	log          zerolog.Logger
	manager      *queue.Manager
	workerBudget int
}

// New constructs a Server and wires its routes.
func New(cfg Config) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		log:          cfg.Log.With().Str("component", "server").Logger(),
		manager:      cfg.Manager,
		workerBudget: cfg.WorkerBudget,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE streams must not be cut off by a write deadline
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	if devMode {
		s.router.Use(middleware.Logger)
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.health)

	s.router.Route("/simulations", func(r chi.Router) {
		r.Post("/", s.submitSimulation)
		r.Get("/{id}", s.getStatus)
		r.Get("/{id}/result", s.getResult)
		r.Post("/{id}/cancel", s.cancel)
		r.Get("/{id}/stream", s.stream)
	})

	s.router.Route("/montecarlo", func(r chi.Router) {
		r.Post("/", s.submitMonteCarlo)
		r.Get("/{id}", s.getStatus)
		r.Get("/{id}/result", s.getResult)
		r.Post("/{id}/cancel", s.cancel)
		r.Get("/{id}/stream", s.stream)
	})
}

// ListenAndServe starts the HTTP server. It blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
