/*
 * Copyright (c) 2025 Alessandro Faranda Gancio (dba TraceApi)
 *
 * This source code is licensed under the Business Source License 1.1.
 *
 * Change Date: 2027-11-28
 * Change License: AGPL-3.0
 */

// Package memory is a mapping store for local development and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/TraceApi/storage-adapter/internal/core/domain"
	"github.com/TraceApi/storage-adapter/internal/core/ports"
)

const defaultPageSize = 100

type MappingStore struct {
	mu       sync.RWMutex
	records  []domain.TenantStorageMapping
	pageSize int
}

// Ensure we implement the interface
var _ ports.MappingStore = (*MappingStore)(nil)

func NewMappingStore(pageSize int, records ...domain.TenantStorageMapping) *MappingStore {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	s := &MappingStore{pageSize: pageSize}
	s.Replace(records...)
	return s
}

// LoadFile seeds a store from a JSON array of mappings.
func LoadFile(path string, pageSize int) (*MappingStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var records []domain.TenantStorageMapping
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode seed file %s: %w", path, err)
	}
	return NewMappingStore(pageSize, records...), nil
}

// Replace swaps the whole data set, as the administrative process would.
func (s *MappingStore) Replace(records ...domain.TenantStorageMapping) {
	copied := make([]domain.TenantStorageMapping, len(records))
	copy(copied, records)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = copied
}

// Query snapshots the matching records; later updates do not affect the pager.
func (s *MappingStore) Query(ctx context.Context, filter domain.MappingFilter) ports.MappingPager {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.TenantStorageMapping
	for i := range s.records {
		if !matches(&s.records[i], filter) {
			continue
		}
		r := s.records[i]
		matched = append(matched, &r)
	}
	return &pager{records: matched, pageSize: s.pageSize, first: true}
}

func matches(r *domain.TenantStorageMapping, f domain.MappingFilter) bool {
	if f.Partition != "" && r.PartitionKey != f.Partition {
		return false
	}
	if f.TenantID == "" {
		return true
	}
	if f.Mode == domain.MatchString {
		return r.TenantID == f.TenantID
	}
	id, err := domain.ParseTenantID(r.TenantID, domain.MatchUUID)
	return err == nil && strings.EqualFold(id.String(), f.TenantID)
}

type pager struct {
	records  []*domain.TenantStorageMapping
	pageSize int
	offset   int
	first    bool
}

func (p *pager) More() bool {
	// an empty result still has one (empty) page
	return p.first || p.offset < len(p.records)
}

func (p *pager) NextPage(ctx context.Context) ([]*domain.TenantStorageMapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StoreError{Store: "memory", Message: "query cancelled", Err: err}
	}
	p.first = false
	end := p.offset + p.pageSize
	if end > len(p.records) {
		end = len(p.records)
	}
	page := p.records[p.offset:end]
	p.offset = end
	return page, nil
}
