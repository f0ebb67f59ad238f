package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BOOKSCOPE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BOOKSCOPE_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Feed ──
	setStr(&cfg.Feed.Venue, "BOOKSCOPE_FEED_VENUE")
	setStr(&cfg.Feed.Symbol, "BOOKSCOPE_FEED_SYMBOL")
	setInt(&cfg.Feed.Depth, "BOOKSCOPE_FEED_DEPTH")

	// ── Venues ──
	setStr(&cfg.Venues.OKXWsURL, "BOOKSCOPE_VENUES_OKX_WS_URL")
	setStr(&cfg.Venues.BybitWsURL, "BOOKSCOPE_VENUES_BYBIT_WS_URL")
	setStr(&cfg.Venues.DeribitWsURL, "BOOKSCOPE_VENUES_DERIBIT_WS_URL")

	// ── Simulator ──
	setFloat64(&cfg.Simulator.WarnSlippagePct, "BOOKSCOPE_SIMULATOR_WARN_SLIPPAGE_PCT")

	// ── Server ──
	setInt(&cfg.Server.Port, "BOOKSCOPE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "BOOKSCOPE_SERVER_CORS_ORIGINS")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "BOOKSCOPE_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "BOOKSCOPE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "BOOKSCOPE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "BOOKSCOPE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "BOOKSCOPE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "BOOKSCOPE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "BOOKSCOPE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "BOOKSCOPE_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "BOOKSCOPE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "BOOKSCOPE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "BOOKSCOPE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "BOOKSCOPE_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "BOOKSCOPE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BOOKSCOPE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BOOKSCOPE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BOOKSCOPE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BOOKSCOPE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BOOKSCOPE_REDIS_TLS_ENABLED")

	// ── Top-level ──
	setStr(&cfg.Mode, "BOOKSCOPE_MODE")
	setStr(&cfg.LogLevel, "BOOKSCOPE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
