package ports

import (
	"context"

	"github.com/TraceApi/storage-adapter/internal/core/domain"
)

// MappingStore is the query interface of the external table holding the
// tenant-to-storage mappings. Implementations are long-lived and safe for
// concurrent use.
type MappingStore interface {
	// Query returns a pager over every record matching filter.
	// No I/O happens until NextPage is called.
	Query(ctx context.Context, filter domain.MappingFilter) MappingPager
}

// MappingPager walks a paginated result set.
type MappingPager interface {
	More() bool
	// NextPage fetches the next page. Failures are *domain.StoreError.
	NextPage(ctx context.Context) ([]*domain.TenantStorageMapping, error)
}
