// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/vibefoundry/vibefoundry/internal/api/handlers"
	"github.com/vibefoundry/vibefoundry/internal/api/middleware"
	"github.com/vibefoundry/vibefoundry/internal/api/version"
	"github.com/vibefoundry/vibefoundry/internal/broadcast"
	"github.com/vibefoundry/vibefoundry/internal/codespace"
	"github.com/vibefoundry/vibefoundry/internal/events"
	"github.com/vibefoundry/vibefoundry/internal/metadata"
	"github.com/vibefoundry/vibefoundry/internal/runner"
	"github.com/vibefoundry/vibefoundry/internal/terminal"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Host         string
	Port         int
	TLSCert      string // Path to TLS certificate file
	TLSKey       string // Path to TLS private key file
	TailscaleTLS bool   // Fetch certificates from the local Tailscale daemon
}

// Dependencies holds all dependencies for API handlers.
type Dependencies struct {
	Workspace       handlers.Workspace
	TerminalManager *terminal.Manager
	Registry        *broadcast.Registry
	EventBus        events.EventBus
	Runner          *runner.Runner
	Metadata        *metadata.Generator
	Syncer          *codespace.Syncer
	Keepalive       time.Duration // Idle time before a watch keepalive
	StaticDir       string        // Built UI; empty serves a 503 placeholder
	Version         string        // Application version string
}

// NewRouter creates the HTTP router.
func NewRouter(deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	// Version runs before CORS so preflight answers carry the header CORS exposes.
	r.Use(version.Middleware)
	r.Use(middleware.CORS)

	// WebSockets
	terminalHandler := handlers.NewTerminalHandler(deps.TerminalManager, deps.Workspace)
	watchHandler := handlers.NewWatchHandler(deps.Registry, deps.Workspace, deps.Keepalive)
	eventHandler := handlers.NewEventHandler(deps.EventBus)
	r.HandleFunc("/ws/terminal", terminalHandler.WebSocket).Methods("GET")
	r.HandleFunc("/ws/watch", watchHandler.WebSocket).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Project and files
	projectHandler := handlers.NewProjectHandler(deps.Workspace, deps.Version)
	api.HandleFunc("/health", projectHandler.Health).Methods("GET")
	api.HandleFunc("/folder/select", projectHandler.SelectFolder).Methods("POST")
	api.HandleFunc("/folder/info", projectHandler.FolderInfo).Methods("GET")
	api.HandleFunc("/fs/home", projectHandler.Home).Methods("GET")
	api.HandleFunc("/fs/list", projectHandler.ListDirs).Methods("GET")
	api.HandleFunc("/files/tree", projectHandler.Tree).Methods("GET")
	api.HandleFunc("/files/read", projectHandler.ReadFile).Methods("GET")
	api.HandleFunc("/files/write", projectHandler.WriteFile).Methods("POST")

	// Scripts and metadata
	scriptsHandler := handlers.NewScriptsHandler(deps.Workspace, deps.Runner, deps.Metadata)
	api.HandleFunc("/scripts", scriptsHandler.List).Methods("GET")
	api.HandleFunc("/scripts/run", scriptsHandler.Run).Methods("POST")
	api.HandleFunc("/metadata/generate", scriptsHandler.GenerateMetadata).Methods("POST")

	// Codespace sync
	syncHandler := handlers.NewSyncHandler(deps.Workspace, deps.Syncer)
	api.HandleFunc("/sync/pull", syncHandler.Pull).Methods("POST")
	api.HandleFunc("/sync/push", syncHandler.Push).Methods("POST")
	api.HandleFunc("/sync/metadata", syncHandler.Metadata).Methods("POST")
	api.HandleFunc("/sync/full", syncHandler.Full).Methods("POST")

	// Watching
	api.HandleFunc("/watch/check", watchHandler.Check).Methods("GET")

	// Terminals
	api.HandleFunc("/terminal/sessions", terminalHandler.ListSessions).Methods("GET")

	// Events
	api.HandleFunc("/events", eventHandler.History).Methods("GET")
	api.HandleFunc("/events/ws", eventHandler.WebSocket).Methods("GET")

	// Preflight requests are answered by the CORS middleware, but mux only
	// runs middleware for matched routes.
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	// Everything else is the UI.
	r.PathPrefix("/").Handler(handlers.NewStaticHandler(deps.StaticDir))

	return r
}

// Server represents the API server.
type Server struct {
	router *mux.Router
	cfg    ServerConfig

	mu     sync.Mutex
	server *http.Server
	closed bool // Shutdown ran; a later ListenAndServe returns at once
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, deps Dependencies) *Server {
	return &Server{
		router: NewRouter(deps),
		cfg:    cfg,
	}
}

// Router returns the underlying router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// ListenAndServe starts the server and blocks until it stops. A clean
// Shutdown returns nil.
func (s *Server) ListenAndServe() error {
	tlsConfig, err := s.tlsConfig()
	if err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.server = srv
	s.mu.Unlock()

	if tlsConfig != nil {
		log.Printf("API server listening on https://%s (TLS enabled)", s.Addr())
		err = srv.ListenAndServeTLS("", "")
	} else {
		log.Printf("API server listening on http://%s", s.Addr())
		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) tlsConfig() (*tls.Config, error) {
	if s.cfg.TailscaleTLS {
		return TailscaleTLSConfig(), nil
	}
	enabled, err := CheckTLSConfig(s.cfg.TLSCert, s.cfg.TLSKey)
	if err != nil || !enabled {
		return nil, err
	}
	return LoadTLSConfig(s.cfg.TLSCert, s.cfg.TLSKey)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	log.Println("Shutting down API server...")

	shutdownCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	return srv.Shutdown(shutdownCtx)
}
