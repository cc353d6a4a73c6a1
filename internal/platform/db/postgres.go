package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskdesk/taskdesk/internal/shared"
)

// PoolOptions tunes the pool built by New. Zero values keep pgx defaults.
type PoolOptions struct {
	ApplicationName string
	MaxConns        int32
}

// New connects to PostgreSQL and verifies the connection with a ping.
func New(ctx context.Context, dsn string, opts ...PoolOptions) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: parse config: %w", err)
	}
	for _, o := range opts {
		if o.ApplicationName != "" {
			config.ConnConfig.RuntimeParams["application_name"] = o.ApplicationName
		}
		if o.MaxConns > 0 {
			config.MaxConns = o.MaxConns
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("platform/db: new pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("platform/db: ping: %w: %v", shared.ErrUnavailable, err)
	}
	return pool, nil
}
