package domain

import (
	"context"
	"time"
)

// PackageRepository is the persistence boundary behind the wizard. The
// in-memory mock, the MySQL store and the remote backend client all satisfy it.
type PackageRepository interface {
	Create(ctx context.Context, d Draft, status PackageStatus) (PackageRecord, error)
	// Update merges partial into the stored fields. A non-empty status also
	// moves the record to that status.
	Update(ctx context.Context, id string, partial Draft, status PackageStatus) (PackageRecord, error)
	List(ctx context.Context, f ListFilter, s SortSpec, p PageRequest) (Page[PackageRecord], error)
	// GetByID returns ErrNotFound when no record has id.
	GetByID(ctx context.Context, id string) (PackageRecord, error)
	// Delete reports whether a record was removed.
	Delete(ctx context.Context, id string) (bool, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type ListFilter struct {
	Type        *PackageType
	Status      *PackageStatus
	Search      string // case-insensitive match on title and description
	Destination string
}

type SortField string

const (
	SortCreatedAt  SortField = "createdAt"
	SortUpdatedAt  SortField = "updatedAt"
	SortTitle      SortField = "title"
	SortAdultPrice SortField = "adultPrice"
)

func (f SortField) Valid() bool {
	switch f {
	case SortCreatedAt, SortUpdatedAt, SortTitle, SortAdultPrice:
		return true
	}
	return false
}

type SortSpec struct {
	Field SortField
	Desc  bool
}

// DefaultSort lists newest packages first.
var DefaultSort = SortSpec{Field: SortCreatedAt, Desc: true}

type PageRequest struct {
	Page  int // 1-based
	Limit int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Normalize clamps p to a valid page and limit.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p PageRequest) Offset() int { return (p.Page - 1) * p.Limit }

type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

func NewPage[T any](items []T, total int, p PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Page[T]{Items: items, Total: total, Page: p.Page, Limit: p.Limit, TotalPages: pages}
}
