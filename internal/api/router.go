// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/cobaltlab/tutorserver/internal/api/handlers"
	"github.com/cobaltlab/tutorserver/internal/api/middleware"
	"github.com/cobaltlab/tutorserver/internal/authsvc"
	"github.com/cobaltlab/tutorserver/internal/orchestrator"
	"github.com/cobaltlab/tutorserver/internal/problems"
	"github.com/cobaltlab/tutorserver/internal/registry"
	"github.com/cobaltlab/tutorserver/internal/sandbox"
	"github.com/cobaltlab/tutorserver/internal/store"
)

// ServerConfig holds the HTTP listener configuration.
type ServerConfig struct {
	Host string
	Port int
}

// Dependencies holds every collaborator the router's handlers need
// (spec §9: "scoped instances, not globals" — one Dependencies is
// built once at startup and threaded through).
type Dependencies struct {
	Store         *store.Store
	Registry      *registry.Registry
	Catalog       *problems.Catalog
	Executor      *sandbox.Executor
	Auth          *authsvc.Service
	WorkspacesDir string
	BackendCmd    []string
}

// NewRouter builds the full HTTP router: REST handlers under
// /api/..., and the WebSocket upgrade route wired directly into
// internal/orchestrator.Serve.
func NewRouter(deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS)

	authHandler := handlers.NewAuthHandler(deps.Auth)
	problemsHandler := handlers.NewProblemsHandler(deps.Catalog)
	executionHandler := handlers.NewExecutionHandler(deps.Executor, deps.Catalog, deps.Store, deps.WorkspacesDir)
	sessionsHandler := handlers.NewSessionsHandler(deps.Store)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/login", authHandler.Login).Methods("POST")
	api.HandleFunc("/auth/status", authHandler.Status).Methods("GET")

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.RequireAuth(deps.Auth))

	protected.HandleFunc("/problems", problemsHandler.List).Methods("GET")
	protected.HandleFunc("/problems/{id}", problemsHandler.Get).Methods("GET")

	protected.HandleFunc("/run", executionHandler.Run).Methods("POST")
	protected.HandleFunc("/submit", executionHandler.Submit).Methods("POST")

	protected.HandleFunc("/sessions", sessionsHandler.List).Methods("GET")
	protected.HandleFunc("/sessions/latest-resumable", sessionsHandler.LatestResumable).Methods("GET")
	protected.HandleFunc("/sessions/{id}", sessionsHandler.Get).Methods("GET")
	protected.HandleFunc("/sessions/{id}", sessionsHandler.Delete).Methods("DELETE")

	orchestratorDeps := orchestrator.Deps{
		Store:         deps.Store,
		Registry:      deps.Registry,
		Catalog:       deps.Catalog,
		Executor:      deps.Executor,
		Auth:          deps.Auth,
		WorkspacesDir: deps.WorkspacesDir,
		BackendCmd:    deps.BackendCmd,
	}
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		orchestrator.Serve(w, r, orchestratorDeps)
	})

	return r
}

// Server wraps the router with a concrete net/http.Server, matching
// the teacher's own Server type (internal/api.Server).
type Server struct {
	router *mux.Router
	cfg    ServerConfig
	server *http.Server
}

// NewServer builds a Server from cfg and deps.
func NewServer(cfg ServerConfig, deps Dependencies) *Server {
	return &Server{router: NewRouter(deps), cfg: cfg}
}

// Router returns the underlying router, mostly for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	s.server = &http.Server{Addr: addr, Handler: s.router}
	log.Printf("tutor server listening on http://%s", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts the server down within ctx's deadline, or
// a 30-second default if ctx carries none.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}
	log.Println("shutting down tutor server...")
	return s.server.Shutdown(shutdownCtx)
}
