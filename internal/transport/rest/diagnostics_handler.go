/*
 * Copyright (c) 2025 Alessandro Faranda Gancio (dba TraceApi)
 *
 * This source code is licensed under the Business Source License 1.1.
 *
 * Change Date: 2027-11-28
 * Change License: AGPL-3.0
 */

package rest

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/TraceApi/storage-adapter/internal/core/ports"
	"github.com/go-chi/chi/v5"
)

// DiagnosticsHandler exposes raw store checks. Never mounted in production.
type DiagnosticsHandler struct {
	service   ports.DiagnosticsService
	partition string
	log       *slog.Logger
}

func NewDiagnosticsHandler(s ports.DiagnosticsService, partition string, log *slog.Logger) *DiagnosticsHandler {
	return &DiagnosticsHandler{service: s, partition: partition, log: log}
}

func (h *DiagnosticsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/storageTest", h.CountMappings)
	r.Get("/storageTest/{tenantId}", h.PeekMapping)
}

// CountMappings handles GET /storageTest
func (h *DiagnosticsHandler) CountMappings(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.CountMappings(r.Context(), h.partition)
	if err != nil {
		writeLookupError(w, h.log, "", err)
		return
	}
	writeText(w, http.StatusOK, fmt.Sprintf("Table query results: %d", n))
}

// PeekMapping handles GET /storageTest/{tenantId}
func (h *DiagnosticsHandler) PeekMapping(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")

	mapping, err := h.service.PeekMapping(r.Context(), tenantID)
	if err != nil {
		writeLookupError(w, h.log, tenantID, err)
		return
	}
	writeText(w, http.StatusOK, fmt.Sprintf("Cx Name: %s CxTenantId: %s", mapping.TenantName, mapping.TenantID))
}
