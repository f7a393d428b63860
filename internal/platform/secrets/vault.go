/*
 * Copyright (c) 2025 Alessandro Faranda Gancio (dba TraceApi)
 *
 * This source code is licensed under the Business Source License 1.1.
 *
 * Change Date: 2027-11-28
 * Change License: AGPL-3.0
 */

package secrets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/TraceApi/storage-adapter/internal/config"
	"github.com/hashicorp/vault/api"
)

// VaultSource reads configuration secrets from a Vault KV mount.
type VaultSource struct {
	client *api.Client
}

// NewVaultSource builds a client for addr. Unset fields fall back to the
// standard VAULT_* environment variables.
func NewVaultSource(addr, token string) (*VaultSource, error) {
	cfg := api.DefaultConfig()
	if cfg.Error != nil {
		return nil, cfg.Error
	}
	if addr != "" {
		cfg.Address = addr
	}
	cfg.Timeout = 10 * time.Second

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}
	return &VaultSource{client: client}, nil
}

// OpenVault matches config.SecretSourceFunc.
func OpenVault(addr, token string) (config.SecretSource, error) {
	src, err := NewVaultSource(addr, token)
	if err != nil {
		return nil, err
	}
	return src, nil
}

// Secrets returns the string values stored at path. Both KV v2 (data nested
// under "data") and KV v1 layouts are accepted.
func (s *VaultSource) Secrets(ctx context.Context, path string) (map[string]string, error) {
	sec, err := s.client.Logical().ReadWithContext(ctx, strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("vault read %s: %w", path, err)
	}
	if sec == nil || sec.Data == nil {
		return nil, fmt.Errorf("vault read %s: no secret found", path)
	}

	data := sec.Data
	if nested, ok := sec.Data["data"].(map[string]interface{}); ok {
		data = nested
	}

	out := make(map[string]string, len(data))
	for k, v := range data {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out, nil
}
