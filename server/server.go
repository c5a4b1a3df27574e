// Package server exposes the control/status surface over HTTP: start,
// stop, the state snapshot, and basic process health. The dashboard is an
// external consumer; nothing here owns trading state.
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

	"github.com/mavrikis/helmsman/entity"
)

// Controller is the engine surface the server drives. Start and Stop are
// idempotent; Snapshot is safe to call at any time, including while
// stopped.
type Controller interface {
	Start()
	Stop()
	IsRunning() bool
	Snapshot() entity.Snapshot
}

// Server is the HTTP server for the control surface.
type Server struct {
	router *chi.Mux
	server *http.Server
	engine Controller
	log    zerolog.Logger
}

// New creates the server and mounts all routes.
func New(engine Controller, port int, log zerolog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		engine: engine,
		log:    log.With().Str("component", "server").Logger(),
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	s.router.Get("/api/start", s.handleStart)
	s.router.Get("/api/stop", s.handleStop)
	s.router.Get("/api/state", s.handleState)
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/system", s.handleSystem)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Router exposes the mux for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe starts serving. Blocks until shutdown or failure.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
