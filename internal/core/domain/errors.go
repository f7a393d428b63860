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
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no mapping exists for a tenant.
	ErrNotFound = errors.New("storage mapping not found")

	// ErrAmbiguousMapping is returned when more than one mapping exists for a tenant.
	// This is a data defect in the mapping table, not a client error.
	ErrAmbiguousMapping = errors.New("ambiguous storage mapping")

	// ErrStoreUnavailable is returned when the mapping store could not be queried.
	ErrStoreUnavailable = errors.New("mapping store unavailable")

	// ErrInvalidInput is returned when the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// AmbiguousMappingError names the tenant whose mapping records violate the
// one-mapping-per-tenant invariant.
type AmbiguousMappingError struct {
	TenantID string
	Count    int
}

func (e *AmbiguousMappingError) Error() string {
	return fmt.Sprintf("more than one storage mapping found for tenant id %s (%d records)", e.TenantID, e.Count)
}

func (e *AmbiguousMappingError) Is(target error) bool {
	return target == ErrAmbiguousMapping
}

// StoreError is the "store request failed" condition raised by mapping store
// backends. Message must be safe to show to callers: no credentials or
// connection strings.
type StoreError struct {
	Store   string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	return e.Store + ": " + e.Message
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Outcome labels the result of a resolution.
type Outcome string

const (
	OutcomeFound            Outcome = "found"
	OutcomeNotFound         Outcome = "not_found"
	OutcomeAmbiguous        Outcome = "ambiguous"
	OutcomeStoreUnavailable Outcome = "store_unavailable"
	OutcomeInvalidInput     Outcome = "invalid_input"
	OutcomeError            Outcome = "error"
)

// OutcomeOf classifies the result of a resolution.
func OutcomeOf(m *TenantStorageMapping, err error) Outcome {
	switch {
	case err == nil && m != nil:
		return OutcomeFound
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrAmbiguousMapping):
		return OutcomeAmbiguous
	case errors.Is(err, ErrStoreUnavailable):
		return OutcomeStoreUnavailable
	case errors.Is(err, ErrInvalidInput):
		return OutcomeInvalidInput
	default:
		return OutcomeError
	}
}
