/*
 * Copyright (c) 2025 Alessandro Faranda Gancio (dba TraceApi)
 *
 * This source code is licensed under the Business Source License 1.1.
 *
 * Change Date: 2027-11-28
 * Change License: AGPL-3.0
 */

package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/TraceApi/storage-adapter/internal/core/ports"
	"github.com/redis/go-redis/v9"
)

// RedisEventBus publishes integrity alerts over Redis pub/sub.
type RedisEventBus struct {
	client redis.UniversalClient
}

var _ ports.EventBus = (*RedisEventBus)(nil)

func NewRedisEventBus(addr string) *RedisEventBus {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0, // Use default DB
	})
	return &RedisEventBus{client: rdb}
}

// NewRedisEventBusWithClient wraps an existing client (cluster, sentinel, tests).
func NewRedisEventBusWithClient(client redis.UniversalClient) *RedisEventBus {
	return &RedisEventBus{client: client}
}

func (b *RedisEventBus) Publish(ctx context.Context, channel string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return b.client.Publish(ctx, channel, payload).Err()
}

// Ping checks the connection once at startup.
func (b *RedisEventBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisEventBus) Close() error {
	return b.client.Close()
}
