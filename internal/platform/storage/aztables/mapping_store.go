/*
 * Copyright (c) 2025 Alessandro Faranda Gancio (dba TraceApi)
 *
 * This source code is licensed under the Business Source License 1.1.
 *
 * Change Date: 2027-11-28
 * Change License: AGPL-3.0
 */

package aztables

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/TraceApi/storage-adapter/internal/core/domain"
	"github.com/TraceApi/storage-adapter/internal/core/ports"
)

const (
	storeName = "aztables"

	// Entity property names written by the admin tooling
	propTenantID     = "CxTenantId"
	propTenantName   = "CxTenantName"
	propPartitionKey = "PartitionKey"
	propRowKey       = "RowKey"
	propTimestamp    = "Timestamp"
)

type entityLister interface {
	NewListEntitiesPager(opts *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
}

type MappingStore struct {
	client entityLister
}

// Ensure we implement the interface
var _ ports.MappingStore = (*MappingStore)(nil)

// NewMappingStore connects to tableName on the table service at serviceURL
// using the default Azure credential chain (env, workload/managed identity, CLI).
func NewMappingStore(serviceURL, tableName string) (*MappingStore, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure credential: %w", err)
	}

	svc, err := aztables.NewServiceClient(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create table service client: %w", err)
	}

	return &MappingStore{client: svc.NewClient(tableName)}, nil
}

func (s *MappingStore) Query(ctx context.Context, f domain.MappingFilter) ports.MappingPager {
	opts := &aztables.ListEntitiesOptions{}
	if filter := buildFilter(f); filter != "" {
		opts.Filter = &filter
	}
	return &pager{inner: s.client.NewListEntitiesPager(opts)}
}

type pager struct {
	inner *runtime.Pager[aztables.ListEntitiesResponse]
}

func (p *pager) More() bool { return p.inner.More() }

func (p *pager) NextPage(ctx context.Context) ([]*domain.TenantStorageMapping, error) {
	resp, err := p.inner.NextPage(ctx)
	if err != nil {
		return nil, storeError(err)
	}

	page := make([]*domain.TenantStorageMapping, 0, len(resp.Entities))
	for _, raw := range resp.Entities {
		m, err := decodeEntity(raw)
		if err != nil {
			return nil, &domain.StoreError{Store: storeName, Message: "malformed mapping entity", Err: err}
		}
		page = append(page, m)
	}
	return page, nil
}

// buildFilter renders an OData filter. In uuid mode the id is compared as an
// Edm.Guid literal, otherwise as a string literal.
func buildFilter(f domain.MappingFilter) string {
	var parts []string
	if f.TenantID != "" {
		if f.Mode == domain.MatchString {
			parts = append(parts, fmt.Sprintf("%s eq '%s'", propTenantID, quote(f.TenantID)))
		} else {
			parts = append(parts, fmt.Sprintf("%s eq guid'%s'", propTenantID, quote(f.TenantID)))
		}
	}
	if f.Partition != "" {
		parts = append(parts, fmt.Sprintf("%s eq '%s'", propPartitionKey, quote(f.Partition)))
	}
	return strings.Join(parts, " and ")
}

func quote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func decodeEntity(data []byte) (*domain.TenantStorageMapping, error) {
	var props map[string]any
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, err
	}

	// OData annotations are wire metadata, not mapping data
	for k := range props {
		if strings.HasPrefix(k, "odata.") || strings.Contains(k, "@odata.") {
			delete(props, k)
		}
	}

	m := &domain.TenantStorageMapping{
		TenantID:     take(props, propTenantID),
		TenantName:   take(props, propTenantName),
		PartitionKey: take(props, propPartitionKey),
		RowKey:       take(props, propRowKey),
	}
	if ts := take(props, propTimestamp); ts != "" {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", propTimestamp, err)
		}
		m.Timestamp = &parsed
	}

	if len(props) > 0 {
		attrs, err := json.Marshal(props)
		if err != nil {
			return nil, err
		}
		m.Attributes = attrs
	}
	return m, nil
}

func take(props map[string]any, key string) string {
	v, _ := props[key].(string)
	delete(props, key)
	return v
}

func storeError(err error) error {
	var respErr *azcore.ResponseError
	var authErr *azidentity.AuthenticationFailedError

	msg := err.Error()
	switch {
	case errors.As(err, &respErr):
		msg = fmt.Sprintf("%s (status %d)", respErr.ErrorCode, respErr.StatusCode)
	case errors.As(err, &authErr):
		msg = "authentication failed"
	case errors.Is(err, context.DeadlineExceeded):
		msg = "request timed out"
	case errors.Is(err, context.Canceled):
		msg = "request cancelled"
	}
	return &domain.StoreError{Store: storeName, Message: msg, Err: err}
}
