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
	"time"

	"github.com/TraceApi/storage-adapter/internal/config"
	"github.com/TraceApi/storage-adapter/internal/core/ports"
	"github.com/TraceApi/storage-adapter/internal/transport/rest/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	welcomeMessage = "Welcome to the Storage Adapter!"
	serverSpanName = "storage-adapter"
)

// NewRouter assembles the HTTP surface. Environment-dependent routes and
// middleware are decided here, once; metrics may be nil.
func NewRouter(cfg *config.Config, mappings ports.MappingService, diagnostics ports.DiagnosticsService, metrics http.Handler, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Continues the caller's trace from the W3C traceparent header.
	r.Use(otelhttp.NewMiddleware(serverSpanName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method
		}),
	))
	if cfg.IsProduction() {
		r.Use(middleware.HTTPSRedirect)
	}
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeText(w, http.StatusOK, welcomeMessage)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeText(w, http.StatusOK, "ok")
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Group(func(r chi.Router) {
		if cfg.RateLimitPerMinute > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
		}
		if cfg.JWTSecret != "" {
			r.Use(middleware.ServiceAuth(cfg.JWTSecret, log))
		}

		NewMappingHandler(mappings, log).RegisterRoutes(r)

		if !cfg.IsProduction() && diagnostics != nil {
			NewDiagnosticsHandler(diagnostics, cfg.PartitionKey, log).RegisterRoutes(r)
			log.Info("diagnostic routes enabled", "environment", cfg.Environment)
		}
	})

	return r
}
