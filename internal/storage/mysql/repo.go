package mysql

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"travel_wizard/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return *p
}

func valJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

type Repo struct {
	db  *sql.DB
	now func() time.Time

	mu     sync.Mutex
	lastTS time.Time
}

var _ domain.PackageRepository = (*Repo)(nil)

func New(db *sql.DB) *Repo { return &Repo{db: db, now: time.Now} }

// Migrate applies the embedded schema files in name order. Each file holds
// statements separated by ";" at line end.
func Migrate(ctx context.Context, db *sql.DB) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		for _, stmt := range strings.Split(string(b), ";\n") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("exec %s: %w", name, err)
			}
		}
	}
	return nil
}

// stamp returns a microsecond timestamp strictly after the previous one so
// back-to-back writes keep a stable order.
func (r *Repo) stamp() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC().Truncate(time.Microsecond)
	if !now.After(r.lastTS) {
		now = r.lastTS.Add(time.Microsecond)
	}
	r.lastTS = now
	return now
}

func (r *Repo) Create(ctx context.Context, d domain.Draft, status domain.PackageStatus) (domain.PackageRecord, error) {
	if status == "" {
		status = domain.StatusDraft
	}
	rec, perr := domain.NewRecord(d, status)
	if perr != nil {
		log.Warn().Err(perr).Str("context", "mysql.Create").Msg("draft projection incomplete")
	}
	now := r.stamp()
	rec.ID = uuid.NewString()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if status == domain.StatusPublished {
		rec.PublishedAt = &now
	}

	fields, dests, err := encodeRecord(rec)
	if err != nil {
		return domain.PackageRecord{}, err
	}
	_, err = r.db.ExecContext(ctx, insertPackageSQL,
		rec.ID,
		string(rec.Type),
		string(rec.Status),
		rec.Title,
		valStr(rec.Description),
		dests,
		rec.Pricing.AdultPrice,
		fields,
		rec.CreatedAt,
		rec.UpdatedAt,
		valTime(rec.PublishedAt),
	)
	if err != nil {
		return domain.PackageRecord{}, fmt.Errorf("insert package: %w", err)
	}
	return rec, nil
}

// Update merges partial into the stored fields inside a transaction so
// concurrent saves of the same package do not lose each other's fields.
func (r *Repo) Update(ctx context.Context, id string, partial domain.Draft, status domain.PackageStatus) (domain.PackageRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.PackageRecord{}, err
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := scanRecord(tx.QueryRowContext(ctx, lockPackageSQL, id))
	if err != nil {
		return domain.PackageRecord{}, err
	}
	rec.Fields = rec.Fields.Merge(partial.Clone())
	if perr := rec.Project(); perr != nil {
		log.Warn().Err(perr).Str("context", "mysql.Update").Str("id", id).Msg("draft projection incomplete")
	}
	now := r.stamp()
	rec.UpdatedAt = now
	if status != "" {
		if status == domain.StatusPublished && rec.Status != domain.StatusPublished {
			rec.PublishedAt = &now
		}
		rec.Status = status
	}

	fields, dests, err := encodeRecord(rec)
	if err != nil {
		return domain.PackageRecord{}, err
	}
	if _, err := tx.ExecContext(ctx, updatePackageSQL,
		string(rec.Type),
		string(rec.Status),
		rec.Title,
		valStr(rec.Description),
		dests,
		rec.Pricing.AdultPrice,
		fields,
		rec.UpdatedAt,
		valTime(rec.PublishedAt),
		rec.ID,
	); err != nil {
		return domain.PackageRecord{}, fmt.Errorf("update package: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.PackageRecord{}, err
	}
	return rec, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (domain.PackageRecord, error) {
	return scanRecord(r.db.QueryRowContext(ctx, getPackageSQL, id))
}

func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, deletePackageSQL, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repo) List(ctx context.Context, f domain.ListFilter, s domain.SortSpec, p domain.PageRequest) (domain.Page[domain.PackageRecord], error) {
	if s.Field == "" {
		s = domain.DefaultSort
	}
	col, ok := orderColumns[string(s.Field)]
	if !ok {
		return domain.Page[domain.PackageRecord]{}, domain.ErrInvalidQuery
	}
	p = p.Normalize()

	where, args := buildWhere(f)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM packages"+where, args...).Scan(&total); err != nil {
		return domain.Page[domain.PackageRecord]{}, fmt.Errorf("count packages: %w", err)
	}

	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	q := "SELECT " + selectPackageCols + " FROM packages" + where +
		" ORDER BY " + col + " " + dir + ", created_at " + dir + ", id " + dir +
		" LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(args, p.Limit, p.Offset())...)
	if err != nil {
		return domain.Page[domain.PackageRecord]{}, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PackageRecord, 0, p.Limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return domain.Page[domain.PackageRecord]{}, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.PackageRecord]{}, err
	}
	return domain.NewPage(out, total, p), nil
}

func buildWhere(f domain.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Type != nil {
		conds = append(conds, "type = ?")
		args = append(args, string(*f.Type))
	}
	if f.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*f.Status))
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		like := "%" + escapeLike(q) + "%"
		conds = append(conds, "(LOWER(title) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?)")
		args = append(args, like, like)
	}
	if d := strings.ToLower(strings.TrimSpace(f.Destination)); d != "" {
		conds = append(conds, "JSON_SEARCH(LOWER(destinations), 'one', ?) IS NOT NULL")
		args = append(args, escapeLike(d))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord reads the stored fields and re-projects the typed members from
// them.
func scanRecord(row scanner) (domain.PackageRecord, error) {
	var (
		rec       domain.PackageRecord
		status    string
		fieldsRaw []byte
		published sql.NullTime
	)
	if err := row.Scan(&rec.ID, &status, &fieldsRaw, &rec.CreatedAt, &rec.UpdatedAt, &published); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PackageRecord{}, domain.ErrNotFound
		}
		return domain.PackageRecord{}, err
	}
	rec.Status = domain.PackageStatus(status)
	rec.Fields = domain.Draft{}
	if len(fieldsRaw) > 0 {
		if err := json.Unmarshal(fieldsRaw, &rec.Fields); err != nil {
			return domain.PackageRecord{}, fmt.Errorf("decode fields of %s: %w", rec.ID, err)
		}
	}
	if rec.Fields == nil {
		rec.Fields = domain.Draft{}
	}
	if err := rec.Project(); err != nil {
		log.Warn().Err(err).Str("context", "mysql.scan").Str("id", rec.ID).Msg("stored fields do not fully project")
	}
	if published.Valid {
		t := published.Time
		rec.PublishedAt = &t
	}
	return rec, nil
}

func encodeRecord(rec domain.PackageRecord) (fields, dests any, err error) {
	if len(rec.Fields) == 0 {
		fields = "{}"
	} else if fields, err = valJSON(rec.Fields); err != nil {
		return nil, nil, fmt.Errorf("encode fields: %w", err)
	}
	if len(rec.Destinations) > 0 {
		if dests, err = valJSON(rec.Destinations); err != nil {
			return nil, nil, fmt.Errorf("encode destinations: %w", err)
		}
	}
	return fields, dests, nil
}
