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
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MatchMode selects how tenant identifiers are compared against the store.
type MatchMode string

const (
	// MatchUUID parses the identifier as a UUID and compares canonical forms.
	MatchUUID MatchMode = "uuid"
	// MatchString compares the raw identifier, unmodified.
	MatchString MatchMode = "string"
)

// ParseMatchMode validates a configured match mode.
func ParseMatchMode(s string) (MatchMode, error) {
	switch m := MatchMode(strings.ToLower(strings.TrimSpace(s))); m {
	case MatchUUID, MatchString:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown tenant id match mode %q", ErrInvalidInput, s)
	}
}

// TenantID is a tenant identifier validated for a match mode.
type TenantID struct {
	value string
	mode  MatchMode
}

// ParseTenantID validates raw (as received on the request path) for mode.
func ParseTenantID(raw string, mode MatchMode) (TenantID, error) {
	switch mode {
	case MatchString:
		// Compared byte for byte, surrounding whitespace included
		if raw == "" {
			return TenantID{}, fmt.Errorf("%w: tenant id is required", ErrInvalidInput)
		}
		return TenantID{value: raw, mode: MatchString}, nil
	case MatchUUID, "":
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return TenantID{}, fmt.Errorf("%w: tenant id is required", ErrInvalidInput)
		}
		uid, err := uuid.Parse(trimmed)
		if err != nil {
			return TenantID{}, fmt.Errorf("%w: tenant id %q is not a valid uuid", ErrInvalidInput, raw)
		}
		return TenantID{value: uid.String(), mode: MatchUUID}, nil
	default:
		return TenantID{}, fmt.Errorf("%w: unknown tenant id match mode %q", ErrInvalidInput, mode)
	}
}

// String returns the canonical form: lower-case hyphenated for UUIDs, the
// raw input otherwise.
func (t TenantID) String() string { return t.value }

func (t TenantID) Mode() MatchMode { return t.mode }
