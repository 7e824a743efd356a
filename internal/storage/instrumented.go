// Package storage holds the PackageRepository implementations and the
// decorator that records metrics for any of them.
package storage

import (
	"context"
	"time"

	"travel_wizard/internal/adapters/observability"
	"travel_wizard/internal/domain"
)

// Instrumented records a counter and a latency sample per repository call.
type Instrumented struct {
	name string
	next domain.PackageRepository
}

func Instrument(name string, next domain.PackageRepository) *Instrumented {
	return &Instrumented{name: name, next: next}
}

func (r *Instrumented) Create(ctx context.Context, d domain.Draft, status domain.PackageStatus) (domain.PackageRecord, error) {
	start := time.Now()
	rec, err := r.next.Create(ctx, d, status)
	observability.ObservePersistence(r.name, "create", err, time.Since(start))
	return rec, err
}

func (r *Instrumented) Update(ctx context.Context, id string, partial domain.Draft, status domain.PackageStatus) (domain.PackageRecord, error) {
	start := time.Now()
	rec, err := r.next.Update(ctx, id, partial, status)
	observability.ObservePersistence(r.name, "update", err, time.Since(start))
	return rec, err
}

func (r *Instrumented) List(ctx context.Context, f domain.ListFilter, s domain.SortSpec, p domain.PageRequest) (domain.Page[domain.PackageRecord], error) {
	start := time.Now()
	page, err := r.next.List(ctx, f, s, p)
	observability.ObservePersistence(r.name, "list", err, time.Since(start))
	return page, err
}

func (r *Instrumented) GetByID(ctx context.Context, id string) (domain.PackageRecord, error) {
	start := time.Now()
	rec, err := r.next.GetByID(ctx, id)
	observability.ObservePersistence(r.name, "get", err, time.Since(start))
	return rec, err
}

func (r *Instrumented) Delete(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	ok, err := r.next.Delete(ctx, id)
	observability.ObservePersistence(r.name, "delete", err, time.Since(start))
	return ok, err
}
