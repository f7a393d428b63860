/*
 * Copyright (c) 2025 Alessandro Faranda Gancio (dba TraceApi)
 *
 * This source code is licensed under the Business Source License 1.1.
 *
 * Change Date: 2027-11-28
 * Change License: AGPL-3.0
 */

package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/TraceApi/storage-adapter/internal/config"
	"github.com/TraceApi/storage-adapter/internal/core/ports"
	"github.com/TraceApi/storage-adapter/internal/platform/storage/aztables"
	"github.com/TraceApi/storage-adapter/internal/platform/storage/dynamodb"
	"github.com/TraceApi/storage-adapter/internal/platform/storage/memory"
	"github.com/TraceApi/storage-adapter/internal/platform/storage/postgres"
)

// Open builds the mapping store selected by cfg.StoreDriver. The returned
// close function releases the backend's connections and is never nil.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (ports.MappingStore, func(), error) {
	noop := func() {}

	switch cfg.StoreDriver {
	case config.DriverAzureTables:
		store, err := aztables.NewMappingStore(cfg.TableURI, cfg.TableName)
		if err != nil {
			return nil, noop, err
		}
		log.Info("mapping store ready", "driver", cfg.StoreDriver, "table", cfg.TableName)
		return store, noop, nil

	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		log.Info("mapping store ready", "driver", cfg.StoreDriver, "table", cfg.TableName)
		return postgres.NewMappingStore(pool, cfg.TableName, cfg.PageSize), pool.Close, nil

	case config.DriverDynamoDB:
		store, err := dynamodb.NewMappingStore(ctx, dynamodb.Config{
			Endpoint:    cfg.AWSEndpoint,
			Region:      cfg.AWSRegion,
			AccessKey:   cfg.AWSAccessKey,
			SecretKey:   cfg.AWSSecretKey,
			Table:       cfg.TableName,
			TenantIndex: cfg.DynamoTenantIndex,
			PageSize:    cfg.PageSize,
		})
		if err != nil {
			return nil, noop, err
		}
		log.Info("mapping store ready", "driver", cfg.StoreDriver, "table", cfg.TableName)
		return store, noop, nil

	case config.DriverMemory:
		if cfg.MemorySeedFile == "" {
			log.Warn("memory store has no seed file, every lookup will miss")
			return memory.NewMappingStore(cfg.PageSize), noop, nil
		}
		store, err := memory.LoadFile(cfg.MemorySeedFile, cfg.PageSize)
		if err != nil {
			return nil, noop, err
		}
		log.Info("mapping store ready", "driver", cfg.StoreDriver, "seed", cfg.MemorySeedFile)
		return store, noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
