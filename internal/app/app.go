// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app wires the tutor server's components together and runs
// their lifecycle (spec §9: startup wiring, graceful shutdown).
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cobaltlab/tutorserver/internal/api"
	"github.com/cobaltlab/tutorserver/internal/authsvc"
	"github.com/cobaltlab/tutorserver/internal/config"
	"github.com/cobaltlab/tutorserver/internal/problems"
	"github.com/cobaltlab/tutorserver/internal/registry"
	"github.com/cobaltlab/tutorserver/internal/sandbox"
	"github.com/cobaltlab/tutorserver/internal/store"
)

const (
	authPruneInterval = time.Minute
	sweepInterval      = 10 * time.Second
)

// App is the main application container, analogous to the teacher's
// own App: one struct owning every long-lived component, built once
// by New and driven to completion by Run.
type App struct {
	mu sync.Mutex

	cfg       *config.Config
	store     *store.Store
	catalog   *problems.Catalog
	registry  *registry.Registry
	auth      *authsvc.Service
	executor  *sandbox.Executor
	apiServer *api.Server

	stop     chan struct{}
	stopOnce sync.Once
}

// Options overrides config values from command-line flags, mirroring
// the teacher's Options{Host, Port, ...} shape.
type Options struct {
	Host string
	Port int
}

// New loads configuration and constructs every component, but starts
// nothing yet — matching the teacher's New/Initialize/Start split,
// collapsed here into New/Run since this server has no worktree
// discovery phase to separate out.
func New(opts Options) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.Host != "" {
		cfg.Host = opts.Host
	}
	if opts.Port > 0 {
		cfg.Port = opts.Port
	}

	catalog, err := problems.Load(cfg.ProblemsDir)
	if err != nil {
		return nil, fmt.Errorf("load problem catalog: %w", err)
	}

	st, err := store.New(cfg.SessionsDir)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	reg := registry.New(st, time.Duration(cfg.ParkTTLSeconds)*time.Second, cfg.ParkCapacity)
	auth := authsvc.New(cfg.TutorPassword)
	executor := sandbox.New(cfg.WorkspacesDir, sandbox.Limits{
		CPUSeconds: cfg.ExecCPUSeconds,
		MemoryMB:   cfg.ExecMemoryMB,
	})

	apiServer := api.NewServer(
		api.ServerConfig{Host: cfg.Host, Port: cfg.Port},
		api.Dependencies{
			Store:         st,
			Registry:      reg,
			Catalog:       catalog,
			Executor:      executor,
			Auth:          auth,
			WorkspacesDir: cfg.WorkspacesDir,
			BackendCmd:    cfg.TutorBackendCmd,
		},
	)

	return &App{
		cfg:       cfg,
		store:     st,
		catalog:   catalog,
		registry:  reg,
		auth:      auth,
		executor:  executor,
		apiServer: apiServer,
		stop:      make(chan struct{}),
	}, nil
}

// Start launches the background loops and the HTTP server, returning
// once everything is accepting work.
func (a *App) Start() {
	go a.registry.RunSweepLoop(sweepInterval, a.stop)
	go a.runAuthPruneLoop()

	go func() {
		if err := a.apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("api server error: %v", err)
		}
	}()
}

// runAuthPruneLoop periodically evicts expired tokens and stale
// rate-limit buckets, stopping when a.stop closes.
func (a *App) runAuthPruneLoop() {
	ticker := time.NewTicker(authPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			a.auth.Prune()
		}
	}
}

// Run starts the app and blocks until an interrupt/terminate signal or
// ctx is cancelled, then shuts down gracefully (spec §9: "signal-driven
// graceful shutdown", following the teacher's own App.Run).
func (a *App) Run(ctx context.Context) error {
	a.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received signal %v, shutting down", sig)
	case <-ctx.Done():
		log.Printf("context cancelled, shutting down")
	case <-a.stop:
		log.Printf("shutdown requested")
	}

	return a.Shutdown(context.Background())
}

// Shutdown stops the HTTP server and background loops within a
// 30-second default deadline.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopOnce.Do(func() { close(a.stop) })

	shutdownCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("error shutting down api server: %v", err)
	}

	log.Println("shutdown complete")
	return nil
}

// Stop signals Run to shut down. Safe to call multiple times or from
// any goroutine.
func (a *App) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
}
