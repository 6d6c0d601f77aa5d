// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/appyard/appyard/internal/ports"
	"github.com/appyard/appyard/internal/supervisor"
)

// AppHandler handles app lifecycle API requests.
type AppHandler struct {
	mgr supervisor.Manager
}

// NewAppHandler creates a new app handler.
func NewAppHandler(mgr supervisor.Manager) *AppHandler {
	return &AppHandler{mgr: mgr}
}

// List returns snapshots of all apps.
func (h *AppHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.mgr.List())
}

// Get returns a single app snapshot by name.
func (h *AppHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	snap, err := h.mgr.Status(name)
	if err != nil {
		WriteError(w, http.StatusNotFound, ErrNotFound, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, snap)
}

// Start starts an app.
func (h *AppHandler) Start(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	// Background context: the app should outlive the HTTP request
	if err := h.mgr.Start(context.Background(), name); err != nil {
		writeLifecycleError(w, err)
		return
	}

	snap, _ := h.mgr.Status(name)
	WriteJSON(w, http.StatusOK, snap)
}

// Stop stops an app.
func (h *AppHandler) Stop(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	// Background context: stop should complete even if the request is cancelled
	if err := h.mgr.Stop(context.Background(), name); err != nil {
		writeLifecycleError(w, err)
		return
	}

	snap, _ := h.mgr.Status(name)
	WriteJSON(w, http.StatusOK, snap)
}

// Restart restarts an app.
func (h *AppHandler) Restart(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if err := h.mgr.Restart(context.Background(), name); err != nil {
		writeLifecycleError(w, err)
		return
	}

	snap, _ := h.mgr.Status(name)
	WriteJSON(w, http.StatusOK, snap)
}

// Logs returns the log tail for an app.
func (h *AppHandler) Logs(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	lines := 100
	if linesStr := r.URL.Query().Get("lines"); linesStr != "" {
		if n, err := strconv.Atoi(linesStr); err == nil && n > 0 {
			lines = n
		}
	}

	logs, err := h.mgr.Logs(name, lines)
	if err != nil {
		WriteError(w, http.StatusNotFound, ErrNotFound, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"app":   name,
		"lines": logs,
	})
}

// writeLifecycleError maps supervisor error kinds to HTTP statuses.
func writeLifecycleError(w http.ResponseWriter, err error) {
	var notFound *supervisor.NotFoundError
	if errors.As(err, &notFound) {
		WriteError(w, http.StatusNotFound, ErrNotFound, err.Error())
		return
	}

	var conflict *ports.ConflictError
	if errors.As(err, &conflict) {
		WriteError(w, http.StatusConflict, ErrConflict, err.Error())
		return
	}

	WriteError(w, http.StatusBadRequest, ErrAppError, err.Error())
}
