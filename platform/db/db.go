// Package db opens the pgx pool and runs the goose migrations.
package db

import (
	"context"
	"time"

	"procurement_backend/platform/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultMaxConns = 25

// NewPool opens and pings a pool. Closing a quotation holds a row lock for
// the duration of its transaction, so MinConns keeps a few warm
// connections for concurrent offer submissions.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDatabaseURL())
	if err != nil {
		return nil, err
	}

	maxConns := cfg.GetDatabaseMaxConns()
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	poolConfig.MaxConns = maxConns
	poolConfig.MinConns = min(5, maxConns)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// PoolAdapter backs the readiness probe.
type PoolAdapter struct {
	pool *pgxpool.Pool
}

func NewPoolAdapter(pool *pgxpool.Pool) *PoolAdapter {
	return &PoolAdapter{pool: pool}
}

func (a *PoolAdapter) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}
