package memory

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"travel_wizard/internal/domain"
)

// ErrSimulated is returned by operations picked by Options.FailureRate.
var ErrSimulated = errors.New("memory: simulated failure")

// FailureFunc lets tests and demos inject persistence errors. Returning a
// non-nil error fails the named operation before it touches the store.
type FailureFunc func(op string) error

type Options struct {
	Latency     time.Duration
	FailureRate float64 // 0..1, fails ops with ErrSimulated
	Fail        FailureFunc
	Now         func() time.Time
}

// Repo is the mock package service: an in-memory slice behind a simulated
// network delay.
type Repo struct {
	opts Options

	mu      sync.RWMutex
	items   []domain.PackageRecord
	lastTS  time.Time
	rnd     *rand.Rand
	rndLock sync.Mutex
}

func New(opts Options) *Repo {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Repo{opts: opts, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// SetFailure replaces the failure hook.
func (r *Repo) SetFailure(f FailureFunc) {
	r.mu.Lock()
	r.opts.Fail = f
	r.mu.Unlock()
}

// Seed appends records as-is, for fixtures.
func (r *Repo) Seed(recs ...domain.PackageRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range recs {
		r.items = append(r.items, cloneRecord(rec))
	}
}

func (r *Repo) Create(ctx context.Context, d domain.Draft, status domain.PackageStatus) (domain.PackageRecord, error) {
	if err := r.enter(ctx, "create"); err != nil {
		return domain.PackageRecord{}, err
	}
	if status == "" {
		status = domain.StatusDraft
	}
	rec, perr := domain.NewRecord(d, status)
	if perr != nil {
		log.Warn().Err(perr).Str("context", "memory.Create").Msg("draft projection incomplete")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.stampLocked()
	rec.ID = uuid.NewString()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if status == domain.StatusPublished {
		rec.PublishedAt = &now
	}
	r.items = append(r.items, rec)
	return cloneRecord(rec), nil
}

func (r *Repo) Update(ctx context.Context, id string, partial domain.Draft, status domain.PackageStatus) (domain.PackageRecord, error) {
	if err := r.enter(ctx, "update"); err != nil {
		return domain.PackageRecord{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return domain.PackageRecord{}, domain.ErrNotFound
	}
	rec := r.items[i]
	rec.Fields = rec.Fields.Merge(partial.Clone())
	if perr := rec.Project(); perr != nil {
		log.Warn().Err(perr).Str("context", "memory.Update").Str("id", id).Msg("draft projection incomplete")
	}
	now := r.stampLocked()
	rec.UpdatedAt = now
	if status != "" {
		if status == domain.StatusPublished && rec.Status != domain.StatusPublished {
			rec.PublishedAt = &now
		}
		rec.Status = status
	}
	r.items[i] = rec
	return cloneRecord(rec), nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (domain.PackageRecord, error) {
	if err := r.enter(ctx, "get"); err != nil {
		return domain.PackageRecord{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexLocked(id)
	if i < 0 {
		return domain.PackageRecord{}, domain.ErrNotFound
	}
	return cloneRecord(r.items[i]), nil
}

func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	if err := r.enter(ctx, "delete"); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return false, nil
	}
	r.items = append(r.items[:i], r.items[i+1:]...)
	return true, nil
}

func (r *Repo) List(ctx context.Context, f domain.ListFilter, s domain.SortSpec, p domain.PageRequest) (domain.Page[domain.PackageRecord], error) {
	if err := r.enter(ctx, "list"); err != nil {
		return domain.Page[domain.PackageRecord]{}, err
	}
	if s.Field == "" {
		s = domain.DefaultSort
	}
	if !s.Field.Valid() {
		return domain.Page[domain.PackageRecord]{}, domain.ErrInvalidQuery
	}
	p = p.Normalize()

	r.mu.RLock()
	matched := make([]domain.PackageRecord, 0, len(r.items))
	for _, rec := range r.items {
		if matches(rec, f) {
			matched = append(matched, rec)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if s.Desc {
			return lessBy(matched[j], matched[i], s.Field)
		}
		return lessBy(matched[i], matched[j], s.Field)
	})

	total := len(matched)
	start := p.Offset()
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	items := make([]domain.PackageRecord, 0, end-start)
	for _, rec := range matched[start:end] {
		items = append(items, cloneRecord(rec))
	}
	return domain.NewPage(items, total, p), nil
}

// enter simulates the round trip: wait, then maybe fail.
func (r *Repo) enter(ctx context.Context, op string) error {
	if r.opts.Latency > 0 {
		t := time.NewTimer(r.opts.Latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.RLock()
	fail := r.opts.Fail
	r.mu.RUnlock()
	if fail != nil {
		if err := fail(op); err != nil {
			return err
		}
	}
	if r.opts.FailureRate > 0 {
		r.rndLock.Lock()
		roll := r.rnd.Float64()
		r.rndLock.Unlock()
		if roll < r.opts.FailureRate {
			return ErrSimulated
		}
	}
	return nil
}

// stampLocked returns a timestamp strictly after the previous one so records
// created back to back still order deterministically.
func (r *Repo) stampLocked() time.Time {
	now := r.opts.Now().UTC()
	if !now.After(r.lastTS) {
		now = r.lastTS.Add(time.Microsecond)
	}
	r.lastTS = now
	return now
}

func (r *Repo) indexLocked(id string) int {
	for i := range r.items {
		if r.items[i].ID == id {
			return i
		}
	}
	return -1
}

func matches(rec domain.PackageRecord, f domain.ListFilter) bool {
	if f.Type != nil && rec.Type != *f.Type {
		return false
	}
	if f.Status != nil && rec.Status != *f.Status {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(rec.Title), q) &&
			!strings.Contains(strings.ToLower(rec.Description), q) {
			return false
		}
	}
	if dst := strings.ToLower(strings.TrimSpace(f.Destination)); dst != "" {
		found := false
		for _, d := range rec.Destinations {
			if strings.ToLower(d) == dst {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func lessBy(a, b domain.PackageRecord, f domain.SortField) bool {
	switch f {
	case domain.SortUpdatedAt:
		return a.UpdatedAt.Before(b.UpdatedAt)
	case domain.SortTitle:
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	case domain.SortAdultPrice:
		return a.Pricing.AdultPrice < b.Pricing.AdultPrice
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

func cloneRecord(r domain.PackageRecord) domain.PackageRecord {
	r.Fields = r.Fields.Clone()
	r.Destinations = append([]string(nil), r.Destinations...)
	r.Itinerary = append([]domain.ItineraryDay(nil), r.Itinerary...)
	if r.PublishedAt != nil {
		t := *r.PublishedAt
		r.PublishedAt = &t
	}
	return r
}
