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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/TraceApi/storage-adapter/internal/core/domain"
)

// Problem is an RFC 9457 problem details body.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

const (
	problemType  = "https://tools.ietf.org/html/rfc9110#section-15.6.1"
	problemTitle = "An error occurred while processing your request."
)

func writeProblem(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type:   problemType,
		Title:  problemTitle,
		Status: status,
		Detail: detail,
	})
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeLookupError maps a resolver outcome to its HTTP response.
func writeLookupError(w http.ResponseWriter, log *slog.Logger, tenantID string, err error) {
	var ambiguous *domain.AmbiguousMappingError
	var storeErr *domain.StoreError

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, "invalid tenant id", http.StatusBadRequest)

	case errors.Is(err, domain.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)

	case errors.As(err, &ambiguous):
		writeText(w, http.StatusBadRequest,
			fmt.Sprintf("More than one storage mapping found for tenant id (Check mapping table!): %s", ambiguous.TenantID))

	case errors.As(err, &storeErr):
		writeProblem(w, http.StatusInternalServerError, "Unexpected Error "+storeErr.Message)

	default:
		log.Error("unexpected lookup failure", "tenant_id", tenantID, "error", err)
		writeProblem(w, http.StatusInternalServerError, "Unexpected Error "+err.Error())
	}
}
