package app

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"gopkg.in/yaml.v3"

	"travel_wizard/internal/domain"
	"travel_wizard/internal/rules"
)

// ImportOutcome is the result for one record of an import file.
type ImportOutcome struct {
	Index    int                    `json:"index"`
	RecordID string                 `json:"recordId,omitempty"`
	Status   domain.PackageStatus   `json:"status,omitempty"`
	Warnings []string               `json:"warnings,omitempty"`
	Errors   rules.ValidationErrors `json:"errors,omitempty"`
	Err      error                  `json:"-"`
}

// Importer bulk-loads partner packages. Records are validated with the same
// rules the wizard uses; only records that pass are published.
type Importer struct {
	repo    domain.PackageRepository
	publish bool
	workers int
}

func NewImporter(repo domain.PackageRepository, publish bool, workers int) *Importer {
	if workers <= 0 {
		workers = 4
	}
	return &Importer{repo: repo, publish: publish, workers: workers}
}

// DecodeRecords reads a YAML or JSON document holding either a list of
// records or {"packages": [...]}.
func DecodeRecords(r io.Reader) ([]map[string]any, error) {
	var doc any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode import file: %w", err)
	}
	if m, ok := doc.(map[string]any); ok {
		doc = m["packages"]
	}
	list, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("import file must hold a list of packages")
	}
	out := make([]map[string]any, 0, len(list))
	for i, it := range list {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d is not an object", i)
		}
		out = append(out, m)
	}
	return out, nil
}

// ImportOne maps, validates and stores a single record.
func (im *Importer) ImportOne(ctx context.Context, idx int, raw map[string]any) ImportOutcome {
	d, warns := MapImport(raw)
	t, _ := d.Type()
	errs := rules.Evaluate(d, t)

	out := ImportOutcome{Index: idx, Warnings: warns}
	if !errs.Empty() {
		out.Errors = errs
	}
	status := domain.StatusDraft
	if im.publish && errs.Empty() {
		status = domain.StatusPublished
	}
	rec, err := im.repo.Create(ctx, d, status)
	if err != nil {
		out.Err = err
		return out
	}
	out.RecordID = rec.ID
	out.Status = rec.Status
	return out
}

// Run imports records with at most workers in flight. Outcomes keep the
// input order.
func (im *Importer) Run(ctx context.Context, records []map[string]any) []ImportOutcome {
	out := make([]ImportOutcome, len(records))
	sem := semaphore.NewWeighted(int64(im.workers))
	var wg sync.WaitGroup

	for i, raw := range records {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(records); j++ {
				out[j] = ImportOutcome{Index: j, Err: err}
			}
			break
		}
		wg.Add(1)
		go func(idx int, raw map[string]any) {
			defer wg.Done()
			defer sem.Release(1)

			res := im.ImportOne(ctx, idx, raw)
			ev := log.Info()
			if res.Err != nil {
				ev = log.Warn().Err(res.Err)
			}
			ev.Int("index", idx).Str("id", res.RecordID).Str("status", string(res.Status)).
				Int("invalid_fields", len(res.Errors)).Msg("import record")
			out[idx] = res
		}(i, raw)
	}

	wg.Wait()
	return out
}
