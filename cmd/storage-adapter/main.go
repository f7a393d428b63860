/*
 * Copyright (c) 2025 Alessandro Faranda Gancio (dba TraceApi)
 *
 * This source code is licensed under the Business Source License 1.1.
 *
 * Change Date: 2027-11-28
 * Change License: AGPL-3.0
 */

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TraceApi/storage-adapter/internal/config"
	"github.com/TraceApi/storage-adapter/internal/core/service"
	"github.com/TraceApi/storage-adapter/internal/platform/bus"
	"github.com/TraceApi/storage-adapter/internal/platform/metrics"
	"github.com/TraceApi/storage-adapter/internal/platform/secrets"
	"github.com/TraceApi/storage-adapter/internal/platform/storage"
	"github.com/TraceApi/storage-adapter/internal/platform/telemetry"
	"github.com/TraceApi/storage-adapter/internal/transport/rest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "storage-adapter"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Configuration (env + secrets provider)
	cfg, err := config.Load(ctx, secrets.OpenVault)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("storage adapter stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// 2. Tracing
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	// 3. Infrastructure
	store, closeStore, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	opts := service.Options{
		MatchMode:    cfg.TenantIDMatch,
		Timeout:      cfg.ResolveTimeout,
		AlertChannel: cfg.AlertChannel,
		Observer:     m,
	}
	if cfg.RedisAddr != "" {
		alerts := bus.NewRedisEventBus(cfg.RedisAddr)
		defer alerts.Close()
		if err := alerts.Ping(ctx); err != nil {
			// Alerts are best effort
			logger.Warn("integrity alert bus unreachable", "addr", cfg.RedisAddr, "error", err)
		}
		opts.Bus = alerts
	}

	// 4. Wiring: Store -> Service -> Router
	svc := service.NewMappingService(store, opts, logger)
	router := rest.NewRouter(cfg, svc, svc, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), logger)

	// 5. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("storage adapter starting", "addr", srv.Addr, "environment", cfg.Environment, "driver", cfg.StoreDriver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
