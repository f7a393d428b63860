/*
 * Copyright (c) 2025 Alessandro Faranda Gancio (dba TraceApi)
 *
 * This source code is licensed under the Business Source License 1.1.
 *
 * Change Date: 2027-11-28
 * Change License: AGPL-3.0
 */

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TraceApi/storage-adapter/internal/core/domain"
	"github.com/TraceApi/storage-adapter/internal/core/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	storeName       = "postgres"
	defaultPageSize = 100
)

type MappingStore struct {
	db       *pgxpool.Pool
	table    string
	pageSize int
}

// Ensure we implement the interface
var _ ports.MappingStore = (*MappingStore)(nil)

// Connect opens a pool and checks the database is reachable.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

func NewMappingStore(db *pgxpool.Pool, table string, pageSize int) *MappingStore {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &MappingStore{
		db:       db,
		table:    pgx.Identifier{table}.Sanitize(),
		pageSize: pageSize,
	}
}

func (s *MappingStore) Query(ctx context.Context, filter domain.MappingFilter) ports.MappingPager {
	return &pager{store: s, filter: filter}
}

// cursor is the (partition_key, row_key) of the last row of a page.
type cursor struct {
	partitionKey string
	rowKey       string
}

type pager struct {
	store  *MappingStore
	filter domain.MappingFilter
	after  *cursor
	done   bool
}

func (p *pager) More() bool { return !p.done }

func (p *pager) NextPage(ctx context.Context) ([]*domain.TenantStorageMapping, error) {
	query, args := buildQuery(p.store.table, p.filter, p.after, p.store.pageSize)

	rows, err := p.store.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	var page []*domain.TenantStorageMapping
	for rows.Next() {
		var m domain.TenantStorageMapping
		var attributes []byte
		var updatedAt *time.Time
		if err := rows.Scan(&m.PartitionKey, &m.RowKey, &m.TenantID, &m.TenantName, &attributes, &updatedAt); err != nil {
			return nil, storeError(err)
		}
		m.Attributes = attributes
		m.Timestamp = updatedAt
		page = append(page, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}

	if len(page) < p.store.pageSize {
		p.done = true
	} else {
		last := page[len(page)-1]
		p.after = &cursor{partitionKey: last.PartitionKey, rowKey: last.RowKey}
	}
	return page, nil
}

// buildQuery renders one keyset page. In uuid mode the filter value is the
// canonical lower-case form, so the column is lower-cased to compare parsed
// identifiers instead of their spelling.
func buildQuery(table string, f domain.MappingFilter, after *cursor, limit int) (string, []any) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.TenantID != "" {
		if f.Mode == domain.MatchString {
			conds = append(conds, "tenant_id = "+arg(f.TenantID))
		} else {
			conds = append(conds, "lower(tenant_id) = "+arg(f.TenantID))
		}
	}
	if f.Partition != "" {
		conds = append(conds, "partition_key = "+arg(f.Partition))
	}
	if after != nil {
		conds = append(conds, fmt.Sprintf("(partition_key, row_key) > (%s, %s)", arg(after.partitionKey), arg(after.rowKey)))
	}

	var b strings.Builder
	b.WriteString("SELECT partition_key, row_key, tenant_id, COALESCE(tenant_name, ''), attributes, updated_at FROM ")
	b.WriteString(table)
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY partition_key, row_key LIMIT ")
	b.WriteString(arg(limit))

	return b.String(), args
}

// storeError keeps server codes and drops anything that could carry the DSN.
func storeError(err error) error {
	var pgErr *pgconn.PgError
	var connErr *pgconn.ConnectError

	msg := "query failed"
	switch {
	case errors.As(err, &pgErr):
		msg = pgErr.Code + ": " + pgErr.Message
	case errors.Is(err, context.DeadlineExceeded), pgconn.Timeout(err):
		msg = "query timed out"
	case errors.Is(err, context.Canceled):
		msg = "query cancelled"
	case errors.As(err, &connErr):
		msg = "database connection failed"
	}
	return &domain.StoreError{Store: storeName, Message: msg, Err: err}
}
