package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolSettings tunes the connection pool beyond what the database URL itself
// carries. Zero values leave the pgxpool defaults in place.
type PoolSettings struct {
	MaxConns        int32
	MaxConnIdleTime time.Duration
}

// NewPostgresPool builds a PostgreSQL connection pool with the given tuning
// applied, and pings it so a bad DATABASE_URL fails at startup rather than on
// the first query.
func NewPostgresPool(ctx context.Context, url string, settings PoolSettings) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if settings.MaxConns > 0 {
		poolCfg.MaxConns = settings.MaxConns
	}
	if settings.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = settings.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("build postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}
