package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	Debug       bool
	HTTPAddr    string
	MetricsAddr string

	// StorageDriver picks the package store: memory, mysql or backend.
	StorageDriver string
	MySQLDSN      string
	BackendURL    string
	BackendRPS    int

	RedisAddr string
	RedisDB   int
	RedisPass string

	SessionTTL  time.Duration
	CacheTTL    time.Duration
	MockLatency time.Duration
	MockFailure float64

	CORSOrigins   []string
	ImportWorkers int
}

// Load reads the environment, after merging a .env file when one exists.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer; using default")
		}
		return def
	}
	c := Config{
		AppEnv:        env("APP_ENV", "prod"),
		Debug:         envBool("DEBUG", false),
		HTTPAddr:      env("HTTP_ADDR", ":8080"),
		MetricsAddr:   env("METRICS_ADDR", ":9100"),
		StorageDriver: strings.ToLower(env("STORAGE_DRIVER", "memory")),
		MySQLDSN:      env("MYSQL_DSN", "root:root@tcp(localhost:3306)/wizard?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		BackendURL:    env("BACKEND_URL", ""),
		BackendRPS:    atoi("BACKEND_RPS", 10),
		RedisAddr:     env("REDIS_ADDR", ""),
		RedisPass:     env("REDIS_PASSWORD", ""),
		RedisDB:       atoi("REDIS_DB", 0),
		SessionTTL:    time.Duration(atoi("SESSION_TTL_SECONDS", 86400)) * time.Second,
		CacheTTL:      time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		MockLatency:   time.Duration(atoi("MOCK_LATENCY_MS", 500)) * time.Millisecond,
		MockFailure:   envFloat("MOCK_FAILURE_RATE", 0),
		CORSOrigins:   envList("CORS_ORIGINS"),
		ImportWorkers: atoi("IMPORT_WORKERS", 4),
	}
	if c.MockFailure < 0 || c.MockFailure > 1 {
		log.Warn().Float64("rate", c.MockFailure).Msg("MOCK_FAILURE_RATE outside 0..1; disabled")
		c.MockFailure = 0
	}
	if c.StorageDriver == "backend" && c.BackendURL == "" {
		log.Warn().Msg("STORAGE_DRIVER=backend but BACKEND_URL is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envList(k string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(k), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
