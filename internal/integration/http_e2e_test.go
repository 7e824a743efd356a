//go:build integration

package integration

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	server "travel_wizard/internal/adapters/http_server"
	redisad "travel_wizard/internal/adapters/redis"
	"travel_wizard/internal/app"
	"travel_wizard/internal/domain"
	"travel_wizard/internal/storage"
	mysqlrepo "travel_wizard/internal/storage/mysql"
	"travel_wizard/internal/wizard"
)

// ---------- helpers ----------
type envelope[T any] struct {
	Data    T      `json:"data"`
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func call[T any](t *testing.T, method, url string, body any) (int, envelope[T]) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer res.Body.Close()
	var env envelope[T]
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return res.StatusCode, env
}

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
	return db
}

// ---------- the test ----------
func TestHTTP_EndToEnd_WizardPublishesToMySQL(t *testing.T) {
	db := startMySQL(t)
	if err := mysqlrepo.Migrate(t.Context(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cache.Close() })

	repo := storage.Instrument("mysql", mysqlrepo.New(db))
	pkgs := app.NewPackageService(repo, cache, time.Minute)
	sessions := app.NewSessionService(pkgs, cache, app.SessionOptions{TTL: time.Hour})

	srv := server.New(server.Options{})
	srv.MountHandlers(&server.Handlers{Sessions: sessions, Packages: pkgs})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	code, created := call[wizard.Snapshot](t, http.MethodPost, ts.URL+"/v1/wizard/sessions", nil)
	if code != http.StatusCreated {
		t.Fatalf("create session: %d", code)
	}
	base := ts.URL + "/v1/wizard/sessions/" + created.Data.SessionID

	code, _ = call[wizard.Snapshot](t, http.MethodPatch, base+"/form", map[string]any{
		"type":        "ACTIVITIES",
		"name":        "Sunset Kayak",
		"description": "Two hours along the coast",
		"place":       "Lisbon",
		"startTime":   "18:00",
		"adultPrice":  0,
	})
	if code != http.StatusOK {
		t.Fatalf("update form: %d", code)
	}

	code, saved := call[wizard.Snapshot](t, http.MethodPost, base+"/save", nil)
	if code != http.StatusOK || saved.Data.RecordID == "" {
		t.Fatalf("save: %d %+v", code, saved)
	}

	code, moved := call[wizard.Snapshot](t, http.MethodPost, base+"/goto", map[string]string{"step": "review"})
	if code != http.StatusOK || moved.Data.CurrentStep != domain.StepReview {
		t.Fatalf("goto review: %d %s", code, moved.Error)
	}

	code, pub := call[wizard.Snapshot](t, http.MethodPost, base+"/publish", nil)
	if code != http.StatusOK || !pub.Data.Published || pub.Data.RecordID != saved.Data.RecordID {
		t.Fatalf("publish: %d %+v", code, pub)
	}

	code, list := call[domain.Page[domain.PackageRecord]](t, http.MethodGet, ts.URL+"/v1/packages?status=published", nil)
	if code != http.StatusOK || list.Data.Total != 1 {
		t.Fatalf("list: %d %+v", code, list)
	}
	rec := list.Data.Items[0]
	if rec.Title != "Sunset Kayak" || rec.Type != domain.TypeActivities || rec.PublishedAt == nil {
		t.Fatalf("unexpected record: %+v", rec)
	}
}
