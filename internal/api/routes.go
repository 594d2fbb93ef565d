// Package api provides the REST API for the meshc compile service.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/meshworks/meshc/internal/compile"
	"github.com/meshworks/meshc/internal/config"
	"github.com/meshworks/meshc/internal/events"
	"github.com/meshworks/meshc/internal/modelgraph"
	"github.com/meshworks/meshc/internal/state"
)

// Compiler is the compilation surface the API depends on.
type Compiler interface {
	Compile(ctx context.Context, opts compile.Options) (*modelgraph.Manifest, error)
	CompileMain(ctx context.Context, opts compile.Options) (*compile.RunResult, error)
}

// RunStore is the persistence surface the API depends on. A nil store
// disables run history.
type RunStore interface {
	SaveRun(ctx context.Context, run *state.CompileRun) error
	GetRun(ctx context.Context, id string) (*state.CompileRun, error)
	ListRuns(ctx context.Context, limit int64) ([]*state.CompileRun, error)
}

// Server is the HTTP server for the compile API.
type Server struct {
	config  *config.Config
	router  chi.Router
	handler *Handler
}

// NewServer creates a new API server. store and publisher may be nil.
func NewServer(cfg *config.Config, compiler Compiler, store RunStore, publisher *events.Publisher) *Server {
	s := &Server{config: cfg}
	s.handler = NewHandler(cfg, compiler, store, publisher)
	s.router = s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handler.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/compile", s.handler.CompileProject)
		r.Get("/runs", s.handler.ListRuns)
		r.Get("/runs/{id}", s.handler.GetRun)
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router returns the chi router for custom configuration.
func (s *Server) Router() chi.Router {
	return s.router
}
