package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"travel_wizard/internal/domain"
)

// PackageService fronts a PackageRepository with a read-through cache on
// GetByID. Writes evict the cached record. Wizard sessions persist through it
// so their saves invalidate the cache too.
type PackageService struct {
	repo     domain.PackageRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

var _ domain.PackageRepository = (*PackageService)(nil)

func NewPackageService(r domain.PackageRepository, c domain.Cache, ttl time.Duration) *PackageService {
	return &PackageService{repo: r, cache: c, cacheTTL: ttl}
}

func packageKey(id string) string { return fmt.Sprintf("package:%s", id) }

func (s *PackageService) GetByID(ctx context.Context, id string) (domain.PackageRecord, error) {
	key := packageKey(id)
	var rec domain.PackageRecord
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &rec); ok {
			return rec, nil
		}
	}
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.PackageRecord{}, err
	}
	s.store(ctx, rec)
	return rec, nil
}

func (s *PackageService) List(ctx context.Context, f domain.ListFilter, srt domain.SortSpec, p domain.PageRequest) (domain.Page[domain.PackageRecord], error) {
	return s.repo.List(ctx, f, srt, p)
}

func (s *PackageService) Create(ctx context.Context, d domain.Draft, status domain.PackageStatus) (domain.PackageRecord, error) {
	rec, err := s.repo.Create(ctx, d, status)
	if err != nil {
		return domain.PackageRecord{}, err
	}
	s.store(ctx, rec)
	return rec, nil
}

func (s *PackageService) Update(ctx context.Context, id string, partial domain.Draft, status domain.PackageStatus) (domain.PackageRecord, error) {
	s.evict(ctx, id)
	rec, err := s.repo.Update(ctx, id, partial, status)
	if err != nil {
		return domain.PackageRecord{}, err
	}
	s.store(ctx, rec)
	return rec, nil
}

func (s *PackageService) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := s.repo.Delete(ctx, id)
	s.evict(ctx, id)
	return ok, err
}

func (s *PackageService) store(ctx context.Context, rec domain.PackageRecord) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, packageKey(rec.ID), rec, s.cacheTTL); err != nil {
		log.Warn().Err(err).Str("id", rec.ID).Msg("package cache set failed")
	}
}

func (s *PackageService) evict(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, packageKey(id)); err != nil {
		log.Warn().Err(err).Str("id", id).Msg("package cache evict failed")
	}
}
