//go:build integration

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"travel_wizard/internal/domain"
	mysqlrepo "travel_wizard/internal/storage/mysql"
)

// ---------- small helpers ----------
func ptype(t domain.PackageType) *domain.PackageType       { return &t }
func pstatus(s domain.PackageStatus) *domain.PackageStatus { return &s }

// startMySQL runs an isolated MySQL container and returns a migrated handle.
func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=wizard",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "wizard")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := mysqlrepo.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// ---------- the test ----------
func TestRepo_MySQL_CreateUpdateList(t *testing.T) {
	repo := mysqlrepo.New(startMySQL(t))
	ctx := context.Background()

	a, err := repo.Create(ctx, domain.Draft{
		"type":         "MULTI_CITY_PACKAGES",
		"title":        "Grand Italy",
		"description":  "Rome, Florence and Venice",
		"destinations": []any{"Rome", "Florence", "Venice"},
		"duration":     map[string]any{"days": 8, "nights": 7},
		"adultPrice":   1890,
	}, domain.StatusDraft)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := repo.Create(ctx, domain.Draft{"type": "TRANSFERS", "name": "Airport Pickup"}, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.ID == b.ID || !b.CreatedAt.After(a.CreatedAt) {
		t.Fatalf("expected distinct ids and increasing timestamps: %+v %+v", a, b)
	}

	got, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "Grand Italy" || got.Duration.Days != 8 || got.Pricing.AdultPrice != 1890 {
		t.Fatalf("unexpected record: %+v", got)
	}

	upd, err := repo.Update(ctx, a.ID, domain.Draft{"adultPrice": 1750, "description": nil}, domain.StatusPublished)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if upd.Status != domain.StatusPublished || upd.PublishedAt == nil || upd.Pricing.AdultPrice != 1750 {
		t.Fatalf("unexpected update: %+v", upd)
	}
	if _, ok := upd.Fields["description"]; ok {
		t.Fatalf("description should be removed: %+v", upd.Fields)
	}

	page, err := repo.List(ctx, domain.ListFilter{Destination: "florence"}, domain.SortSpec{}, domain.PageRequest{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 1 || page.Items[0].ID != a.ID {
		t.Fatalf("destination filter: %+v", page)
	}

	page, err = repo.List(ctx, domain.ListFilter{Type: ptype(domain.TypeTransfers), Status: pstatus(domain.StatusDraft)},
		domain.SortSpec{Field: domain.SortTitle}, domain.PageRequest{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 1 || page.Items[0].Title != "Airport Pickup" {
		t.Fatalf("type filter: %+v", page)
	}

	ok, err := repo.Delete(ctx, b.ID)
	if err != nil || !ok {
		t.Fatalf("Delete: %v %v", ok, err)
	}
	if _, err := repo.GetByID(ctx, b.ID); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.Update(ctx, b.ID, domain.Draft{"title": "x"}, ""); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}
