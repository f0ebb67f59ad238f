package app

import (
	"context"
	"fmt"

	"github.com/bookscope/bookscope/internal/bus"
	"github.com/bookscope/bookscope/internal/config"
	"github.com/bookscope/bookscope/internal/domain"
	"github.com/bookscope/bookscope/internal/store/postgres"
)

// Dependencies bundles the infrastructure-level dependencies the application
// modes need. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	SignalBus domain.SignalBus

	// SimStore is nil when persistence is disabled.
	SimStore *postgres.SimulationStore
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Signal bus: Redis Pub/Sub when enabled, otherwise in process ---
	if cfg.Redis.Enabled {
		redisBus, err := bus.NewRedis(ctx, bus.RedisConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisBus.Close() })
		deps.SignalBus = redisBus
	} else {
		deps.SignalBus = bus.NewMemory()
	}

	// --- PostgreSQL (optional simulation history) ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.SimStore = postgres.NewSimulationStore(pgClient.Pool())
	}

	return deps, cleanup, nil
}
