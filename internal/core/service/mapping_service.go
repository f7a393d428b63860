/*
 * Copyright (c) 2025 Alessandro Faranda Gancio (dba TraceApi)
 *
 * This source code is licensed under the Business Source License 1.1.
 *
 * Change Date: 2027-11-28
 * Change License: AGPL-3.0
 */

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/TraceApi/storage-adapter/internal/core/domain"
	"github.com/TraceApi/storage-adapter/internal/core/ports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/TraceApi/storage-adapter/internal/core/service"

// Options tunes a MappingService. Zero values are usable: uuid matching, no
// deadline, no alerts, no metrics.
type Options struct {
	MatchMode domain.MatchMode

	// Timeout bounds a single resolution, including every page fetched.
	Timeout time.Duration

	// Bus receives integrity alerts on AlertChannel. Optional.
	Bus          ports.EventBus
	AlertChannel string

	Observer ports.ResolutionObserver
}

type MappingService struct {
	store    ports.MappingStore
	opts     Options
	log      *slog.Logger
	observer ports.ResolutionObserver
	tracer   trace.Tracer
	now      func() time.Time
}

// Ensure interface implementation
var (
	_ ports.MappingService     = (*MappingService)(nil)
	_ ports.DiagnosticsService = (*MappingService)(nil)
)

func NewMappingService(store ports.MappingStore, opts Options, log *slog.Logger) *MappingService {
	if opts.MatchMode == "" {
		opts.MatchMode = domain.MatchUUID
	}
	observer := opts.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &MappingService{
		store:    store,
		opts:     opts,
		log:      log,
		observer: observer,
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
}

func (s *MappingService) ResolveMapping(ctx context.Context, tenantID string) (mapping *domain.TenantStorageMapping, err error) {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "MappingService.ResolveMapping")
	defer func() {
		outcome := domain.OutcomeOf(mapping, err)
		span.SetAttributes(attribute.String("mapping.outcome", string(outcome)))
		if outcome != domain.OutcomeFound && outcome != domain.OutcomeNotFound {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(outcome))
		}
		span.End()
		s.observer.ObserveResolution(outcome, s.now().Sub(start))
	}()

	// 1. Validate
	id, err := domain.ParseTenantID(tenantID, s.opts.MatchMode)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("tenant.id", id.String()))

	// 2. Query and drain every page
	records, err := s.collect(ctx, domain.ByTenant(id))
	if err != nil {
		s.log.Error("mapping store query failed", "tenant_id", id.String(), "error", err)
		return nil, err
	}

	// 3. Classify by cardinality
	switch len(records) {
	case 0:
		return nil, fmt.Errorf("%w: tenant id %s", domain.ErrNotFound, id)
	case 1:
		return records[0], nil
	default:
		s.reportAmbiguous(ctx, id, len(records))
		return nil, &domain.AmbiguousMappingError{TenantID: id.String(), Count: len(records)}
	}
}

func (s *MappingService) CountMappings(ctx context.Context, partition string) (int, error) {
	if partition == "" {
		partition = domain.DefaultPartition
	}
	records, err := s.collect(ctx, domain.ByPartition(partition))
	if err != nil {
		s.log.Error("mapping store query failed", "partition", partition, "error", err)
		return 0, err
	}
	return len(records), nil
}

func (s *MappingService) PeekMapping(ctx context.Context, tenantID string) (*domain.TenantStorageMapping, error) {
	id, err := domain.ParseTenantID(tenantID, s.opts.MatchMode)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	pager := s.store.Query(ctx, domain.ByTenant(id))
	for pager.More() {
		page, err := nextPage(ctx, pager)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		if len(page) > 0 {
			return page[0], nil
		}
	}
	return nil, fmt.Errorf("%w: tenant id %s", domain.ErrNotFound, id)
}

// collect materializes the full result set. Partial results are never
// returned: a failure on any page fails the whole query.
func (s *MappingService) collect(ctx context.Context, filter domain.MappingFilter) ([]*domain.TenantStorageMapping, error) {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	pager := s.store.Query(ctx, filter)

	var records []*domain.TenantStorageMapping
	pages := 0
	for pager.More() {
		page, err := nextPage(ctx, pager)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		pages++
		records = append(records, page...)
	}
	s.observer.ObservePages(pages)

	return records, nil
}

func (s *MappingService) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opts.Timeout)
}

func (s *MappingService) reportAmbiguous(ctx context.Context, id domain.TenantID, count int) {
	s.log.Error("data integrity violation: more than one storage mapping for tenant",
		"tenant_id", id.String(), "records", count)

	if s.opts.Bus == nil {
		return
	}
	event := domain.IntegrityViolation{
		Kind:        domain.IntegrityKindAmbiguousMapping,
		TenantID:    id.String(),
		RecordCount: count,
		DetectedAt:  s.now().UTC(),
	}
	if err := s.opts.Bus.Publish(ctx, s.opts.AlertChannel, event); err != nil {
		s.log.Warn("failed to publish integrity alert", "tenant_id", id.String(), "error", err)
	}
}

type pageResult struct {
	page []*domain.TenantStorageMapping
	err  error
}

// nextPage fetches a page but gives up once ctx is done, even if the store
// client itself does not honour cancellation.
func nextPage(ctx context.Context, pager ports.MappingPager) ([]*domain.TenantStorageMapping, error) {
	ch := make(chan pageResult, 1)
	go func() {
		page, err := pager.NextPage(ctx)
		ch <- pageResult{page: page, err: err}
	}()

	select {
	case r := <-ch:
		return r.page, r.err
	case <-ctx.Done():
		return nil, &domain.StoreError{
			Store:   "resolver",
			Message: "store did not respond before the deadline",
			Err:     ctx.Err(),
		}
	}
}

type noopObserver struct{}

func (noopObserver) ObserveResolution(domain.Outcome, time.Duration) {}
func (noopObserver) ObservePages(int)                                {}
