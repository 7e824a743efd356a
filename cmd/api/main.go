package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"travel_wizard/internal/adapters/backend"
	server "travel_wizard/internal/adapters/http_server"
	"travel_wizard/internal/adapters/memcache"
	"travel_wizard/internal/adapters/observability"
	redisad "travel_wizard/internal/adapters/redis"
	"travel_wizard/internal/app"
	"travel_wizard/internal/domain"
	"travel_wizard/internal/shared"
	"travel_wizard/internal/storage"
	"travel_wizard/internal/storage/memory"
	mysqlrepo "travel_wizard/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// deps
	repo, closeRepo := openRepository(ctx, cfg)
	defer closeRepo()
	cache := openCache(ctx, cfg)

	pkgs := app.NewPackageService(repo, cache, cfg.CacheTTL)
	sessions := app.NewSessionService(pkgs, cache, app.SessionOptions{
		TTL:      cfg.SessionTTL,
		Logger:   log.Logger,
		Observer: observability.ObserveTransition,
	})
	go sessions.RunSweeper(ctx, time.Minute, func(active int) {
		observability.ActiveSessions.Set(float64(active))
	})

	// http
	srv := server.New(server.Options{AllowedOrigins: cfg.CORSOrigins})
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Sessions: sessions, Packages: pkgs})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("storage", cfg.StorageDriver).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
}

// openRepository builds the package store named by STORAGE_DRIVER and wraps
// it with metrics.
func openRepository(ctx context.Context, cfg shared.Config) (domain.PackageRepository, func()) {
	switch cfg.StorageDriver {
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		if err := mysqlrepo.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
		log.Info().Msg("database connection ok")
		return storage.Instrument("mysql", mysqlrepo.New(db)), func() { _ = db.Close() }

	case "backend":
		client, err := backend.New(cfg.BackendURL, cfg.BackendRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize backend client")
		}
		return storage.Instrument("backend", client), func() {}

	default:
		if cfg.StorageDriver != "memory" {
			log.Warn().Str("driver", cfg.StorageDriver).Msg("unknown storage driver; using memory")
		}
		repo := memory.New(memory.Options{Latency: cfg.MockLatency, FailureRate: cfg.MockFailure})
		return storage.Instrument("memory", repo), func() {}
	}
}

// openCache prefers Redis and falls back to the in-process cache when Redis
// is not configured or not reachable.
func openCache(ctx context.Context, cfg shared.Config) domain.Cache {
	if cfg.RedisAddr == "" {
		return memcache.New()
	}
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; using in-process cache")
		_ = rc.Close()
		return memcache.New()
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("redis cache ok")
	return rc
}
