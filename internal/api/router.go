// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

// Package api exposes the HTTP control plane.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/appyard/appyard/internal/api/handlers"
	"github.com/appyard/appyard/internal/api/middleware"
	"github.com/appyard/appyard/internal/events"
	"github.com/appyard/appyard/internal/supervisor"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Host    string
	Port    int
	TLSCert string // Path to TLS certificate file
	TLSKey  string // Path to TLS private key file
}

// Dependencies holds all dependencies for API handlers.
type Dependencies struct {
	Supervisor supervisor.Manager
	EventBus   events.EventBus
	Reconcile  handlers.ReconcileFunc
}

// NewRouter creates a new API router.
func NewRouter(deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS)

	// API v1 routes
	api := r.PathPrefix("/api/v1").Subrouter()

	appHandler := handlers.NewAppHandler(deps.Supervisor)
	api.HandleFunc("/apps", appHandler.List).Methods("GET")
	api.HandleFunc("/apps/{name}", appHandler.Get).Methods("GET")
	api.HandleFunc("/apps/{name}/start", appHandler.Start).Methods("POST")
	api.HandleFunc("/apps/{name}/stop", appHandler.Stop).Methods("POST")
	api.HandleFunc("/apps/{name}/restart", appHandler.Restart).Methods("POST")
	api.HandleFunc("/apps/{name}/logs", appHandler.Logs).Methods("GET")

	if deps.Reconcile != nil {
		reconcileHandler := handlers.NewReconcileHandler(deps.Reconcile)
		api.HandleFunc("/reconcile", reconcileHandler.Run).Methods("POST")
	}

	eventHandler := handlers.NewEventHandler(deps.EventBus)
	api.HandleFunc("/events", eventHandler.History).Methods("GET")
	api.HandleFunc("/events/ws", eventHandler.WebSocket).Methods("GET")

	return r
}

// Server represents the API server.
type Server struct {
	router *mux.Router
	cfg    ServerConfig
	server *http.Server
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

// ListenAndServe starts the server. If TLS is configured (tls_cert and
// tls_key), uses HTTPS.
func (s *Server) ListenAndServe() error {
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	tlsEnabled, err := CheckTLSConfig(s.cfg.TLSCert, s.cfg.TLSKey)
	if err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	if tlsEnabled {
		certPath := expandPath(s.cfg.TLSCert)
		keyPath := expandPath(s.cfg.TLSKey)
		log.Printf("API server listening on https://%s (TLS enabled)", addr)
		return s.server.ListenAndServeTLS(certPath, keyPath)
	}

	log.Printf("API server listening on http://%s", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	log.Println("Shutting down API server...")

	shutdownCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	return s.server.Shutdown(shutdownCtx)
}
