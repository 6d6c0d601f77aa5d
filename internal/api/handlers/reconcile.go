// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"net/http"

	"github.com/appyard/appyard/internal/reconcile"
)

// ReconcileFunc reloads the declared configuration and applies it.
type ReconcileFunc func(ctx context.Context) (reconcile.Report, error)

// ReconcileHandler triggers reconciliation on demand.
type ReconcileHandler struct {
	reconcile ReconcileFunc
}

// NewReconcileHandler creates a new reconcile handler.
func NewReconcileHandler(fn ReconcileFunc) *ReconcileHandler {
	return &ReconcileHandler{reconcile: fn}
}

// Run reloads the configuration and converges the runtime to it.
func (h *ReconcileHandler) Run(w http.ResponseWriter, r *http.Request) {
	// Background context: reconciliation should outlive the HTTP request
	report, err := h.reconcile(context.Background())
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, report)
}
