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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/TraceApi/storage-adapter/internal/config"
	"github.com/TraceApi/storage-adapter/internal/core/domain"
	"github.com/TraceApi/storage-adapter/internal/core/ports"
	"github.com/TraceApi/storage-adapter/internal/core/service"
	"github.com/TraceApi/storage-adapter/internal/platform/secrets"
	"github.com/TraceApi/storage-adapter/internal/platform/storage"
	"github.com/spf13/cobra"
)

// Exit codes
const (
	exitFound            = 0
	exitError            = 1
	exitNotFound         = 2
	exitAmbiguous        = 3
	exitStoreUnavailable = 4
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newCommand(openService).ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	stop()
	os.Exit(exitCode(err))
}

// serviceOpener builds the resolver from configuration. Swapped out in tests.
type serviceOpener func(ctx context.Context, cfg *config.Config, log *slog.Logger) (ports.MappingService, func(), error)

func newCommand(open serviceOpener) *cobra.Command {
	var (
		matchMode string
		pretty    bool
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:           "mapping-lookup <tenantId>",
		Short:         "Resolve a tenant id to its storage mapping",
		Long:          "mapping-lookup resolves a tenant id against the configured mapping store and prints the mapping as JSON.\n\nExit codes: 0 found, 2 not found, 3 ambiguous mapping, 4 store unavailable, 1 any other error.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(ctx, secrets.OpenVault)
			if err != nil {
				return err
			}
			if matchMode != "" {
				mode, err := domain.ParseMatchMode(matchMode)
				if err != nil {
					return err
				}
				cfg.TenantIDMatch = mode
			}

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			svc, closeFn, err := open(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			return lookup(ctx, svc, args[0], pretty, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&matchMode, "match", "", "tenant id match mode (uuid or string), overrides TENANT_ID_MATCH")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log store activity to stderr")

	return cmd
}

func openService(ctx context.Context, cfg *config.Config, log *slog.Logger) (ports.MappingService, func(), error) {
	store, closeFn, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return nil, closeFn, err
	}
	svc := service.NewMappingService(store, service.Options{
		MatchMode: cfg.TenantIDMatch,
		Timeout:   cfg.ResolveTimeout,
	}, log)
	return svc, closeFn, nil
}

func lookup(ctx context.Context, svc ports.MappingService, tenantID string, pretty bool, out io.Writer) error {
	mapping, err := svc.ResolveMapping(ctx, tenantID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(mapping)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitFound
	case errors.Is(err, domain.ErrNotFound):
		return exitNotFound
	case errors.Is(err, domain.ErrAmbiguousMapping):
		return exitAmbiguous
	case errors.Is(err, domain.ErrStoreUnavailable):
		return exitStoreUnavailable
	default:
		return exitError
	}
}
