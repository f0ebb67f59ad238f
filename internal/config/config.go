// Package config defines the top-level configuration for the bookscope
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by BOOKSCOPE_* environment
// variables.
type Config struct {
	Feed      FeedConfig      `toml:"feed"`
	Venues    VenuesConfig    `toml:"venues"`
	Simulator SimulatorConfig `toml:"simulator"`
	Server    ServerConfig    `toml:"server"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// FeedConfig selects the market subscribed to on startup.
type FeedConfig struct {
	Venue  string `toml:"venue"`
	Symbol string `toml:"symbol"`
	// Depth is the number of levels per side in published book views.
	Depth int `toml:"depth"`
}

// VenuesConfig holds the public WebSocket endpoint per venue.
type VenuesConfig struct {
	OKXWsURL     string `toml:"okx_ws_url"`
	BybitWsURL   string `toml:"bybit_ws_url"`
	DeribitWsURL string `toml:"deribit_ws_url"`
}

// SimulatorConfig holds execution simulator parameters.
type SimulatorConfig struct {
	// WarnSlippagePct is the slippage percentage above which a market
	// impact warning is attached to a simulation result.
	WarnSlippagePct float64 `toml:"warn_slippage_pct"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// PostgresConfig holds PostgreSQL connection parameters for simulation
// history. Persistence is disabled unless Enabled is set.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. When Enabled the signal bus
// runs over Redis Pub/Sub instead of in process.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Feed: FeedConfig{
			Venue:  "okx",
			Symbol: "BTC-USDT",
			Depth:  10,
		},
		Venues: VenuesConfig{
			OKXWsURL:     "wss://ws.okx.com:8443/ws/v5/public",
			BybitWsURL:   "wss://stream.bybit.com/v5/public/spot",
			DeribitWsURL: "wss://www.deribit.com/ws/api/v2",
		},
		Simulator: SimulatorConfig{
			WarnSlippagePct: 1.0,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "bookscope",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":   true,
	"monitor": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validVenues enumerates the accepted values for FeedConfig.Venue.
var validVenues = map[string]bool{
	"okx":     true,
	"bybit":   true,
	"deribit": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Feed
	if !validVenues[strings.ToLower(c.Feed.Venue)] {
		errs = append(errs, fmt.Sprintf("feed: unknown venue %q (valid: okx, bybit, deribit)", c.Feed.Venue))
	}
	if strings.TrimSpace(c.Feed.Symbol) == "" {
		errs = append(errs, "feed: symbol must not be empty")
	}
	if c.Feed.Depth < 1 {
		errs = append(errs, "feed: depth must be >= 1")
	}

	// Venues
	if c.Venues.OKXWsURL == "" {
		errs = append(errs, "venues: okx_ws_url must not be empty")
	}
	if c.Venues.BybitWsURL == "" {
		errs = append(errs, "venues: bybit_ws_url must not be empty")
	}
	if c.Venues.DeribitWsURL == "" {
		errs = append(errs, "venues: deribit_ws_url must not be empty")
	}

	// Simulator
	if c.Simulator.WarnSlippagePct <= 0 {
		errs = append(errs, "simulator: warn_slippage_pct must be > 0")
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// VenueURLs returns the endpoint map consumed by the feed manager.
func (c *Config) VenueURLs() map[string]string {
	return map[string]string{
		"okx":     c.Venues.OKXWsURL,
		"bybit":   c.Venues.BybitWsURL,
		"deribit": c.Venues.DeribitWsURL,
	}
}
