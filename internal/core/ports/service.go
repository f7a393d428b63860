package ports

import (
	"context"

	"github.com/TraceApi/storage-adapter/internal/core/domain"
)

type MappingService interface {
	// ResolveMapping returns the single mapping for tenantID, or one of
	// domain.ErrNotFound, domain.ErrAmbiguousMapping, domain.ErrStoreUnavailable
	// or domain.ErrInvalidInput.
	ResolveMapping(ctx context.Context, tenantID string) (*domain.TenantStorageMapping, error)
}

// DiagnosticsService exposes raw store introspection for non-production
// deployments.
type DiagnosticsService interface {
	CountMappings(ctx context.Context, partition string) (int, error)

	// PeekMapping returns the first record for tenantID without the
	// uniqueness check.
	PeekMapping(ctx context.Context, tenantID string) (*domain.TenantStorageMapping, error)
}
