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
	"log/slog"
	"net/http"

	"github.com/TraceApi/storage-adapter/internal/core/ports"
	"github.com/TraceApi/storage-adapter/internal/transport/rest/middleware"
	"github.com/go-chi/chi/v5"
)

type MappingHandler struct {
	service ports.MappingService
	log     *slog.Logger
}

func NewMappingHandler(s ports.MappingService, log *slog.Logger) *MappingHandler {
	return &MappingHandler{service: s, log: log}
}

// RegisterRoutes wires up the endpoints to the router
func (h *MappingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/storageMapping/{tenantId}", h.GetStorageMapping)
}

// GetStorageMapping handles GET /storageMapping/{tenantId}
func (h *MappingHandler) GetStorageMapping(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")

	mapping, err := h.service.ResolveMapping(r.Context(), tenantID)
	if err != nil {
		writeLookupError(w, h.log, tenantID, err)
		return
	}

	if caller, ok := middleware.GetCaller(r.Context()); ok {
		h.log.Debug("storage mapping resolved", "tenant_id", mapping.TenantID, "caller", caller)
	}
	writeJSON(w, http.StatusOK, mapping)
}
