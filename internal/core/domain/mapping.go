/*
 * Copyright (c) 2025 Alessandro Faranda Gancio (dba TraceApi)
 *
 * This source code is licensed under the Business Source License 1.1.
 *
 * Change Date: 2027-11-28
 * Change License: AGPL-3.0
 */

package domain

import (
	"encoding/json"
	"time"
)

// DefaultPartition is the partition every mapping record is written under by
// the administrative tooling.
const DefaultPartition = "storageAdapterTenants"

// TenantStorageMapping associates a tenant with the storage location its data
// lives in. Records are maintained out-of-band; this service only reads them.
type TenantStorageMapping struct {
	TenantID   string `json:"tenantId" db:"tenant_id"`
	TenantName string `json:"tenantName" db:"tenant_name"` // informational, not unique

	// Store keys, passed through as-is
	PartitionKey string     `json:"partitionKey,omitempty" db:"partition_key"`
	RowKey       string     `json:"rowKey,omitempty" db:"row_key"`
	Timestamp    *time.Time `json:"timestamp,omitempty" db:"updated_at"`

	// Storage location attributes (account, container, endpoint...).
	// Opaque to the resolver: never unmarshalled here.
	Attributes json.RawMessage `json:"attributes,omitempty" db:"attributes"`
}

// MappingFilter is the predicate sent to the mapping store. Empty fields are
// not filtered on.
type MappingFilter struct {
	TenantID  string
	Mode      MatchMode
	Partition string
}

// ByTenant builds a filter matching the tenant's canonical identifier.
func ByTenant(id TenantID) MappingFilter {
	return MappingFilter{TenantID: id.String(), Mode: id.Mode()}
}

// ByPartition builds a filter matching every record in a partition.
func ByPartition(partition string) MappingFilter {
	return MappingFilter{Partition: partition}
}
