/*
 * Copyright (c) 2025 Alessandro Faranda Gancio (dba TraceApi)
 *
 * This source code is licensed under the Business Source License 1.1.
 *
 * Change Date: 2027-11-28
 * Change License: AGPL-3.0
 */

package domain

import "time"

// IntegrityViolation is published when the mapping table holds more than one
// record for a tenant, so operators can fix the data.
type IntegrityViolation struct {
	Kind        string    `json:"kind"`
	TenantID    string    `json:"tenantId"`
	RecordCount int       `json:"recordCount"`
	DetectedAt  time.Time `json:"detectedAt"`
}

const IntegrityKindAmbiguousMapping = "AMBIGUOUS_MAPPING"
