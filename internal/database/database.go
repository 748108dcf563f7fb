package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashmitsharp/wallet-insights-api/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id         SERIAL PRIMARY KEY,
	user_id    VARCHAR(255)   NOT NULL,
	title      VARCHAR(255)   NOT NULL,
	amount     NUMERIC(12, 2) NOT NULL,
	category   VARCHAR(255)   NOT NULL,
	created_at TIMESTAMPTZ    NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_transactions_user_created
	ON transactions (user_id, created_at DESC);
`

// Connect opens a connection pool and verifies it with a ping
func Connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if cfg.DBMaxConnections > 0 {
		poolConfig.MaxConns = int32(cfg.DBMaxConnections)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.DBConnectionTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the transactions table and its index if they are missing
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
