// internal/adapter/storage/postgres.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS trends (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	category TEXT NOT NULL,
	sources JSONB NOT NULL DEFAULT '[]',
	confidence INTEGER NOT NULL,
	trend_score INTEGER NOT NULL,
	change_percentage INTEGER NOT NULL,
	impact TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS trends_created_at_idx ON trends (created_at DESC);

CREATE TABLE IF NOT EXISTS suggestions (
	id BIGSERIAL PRIMARY KEY,
	trend_id BIGINT,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	impact TEXT NOT NULL,
	effort TEXT NOT NULL,
	type TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS suggestions_created_at_idx ON suggestions (created_at DESC);

CREATE TABLE IF NOT EXISTS reports (
	id BIGSERIAL PRIMARY KEY,
	date TEXT NOT NULL,
	trends_count INTEGER NOT NULL DEFAULT 0,
	suggestions_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	emails_sent INTEGER NOT NULL DEFAULT 0,
	content JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS sources (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	platform TEXT NOT NULL UNIQUE,
	enabled BOOLEAN NOT NULL DEFAULT TRUE,
	status TEXT NOT NULL DEFAULT 'active',
	last_check TIMESTAMPTZ,
	error_message TEXT,
	config JSONB NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PostgresStore implements Store on a pgx connection pool
type PostgresStore struct {
	db *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new postgres-backed store
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		db: db,
	}
}

// PoolConfig tunes the connection pool
type PoolConfig struct {
	DSN         string
	MaxConns    int
	MinConns    int
	MaxLifetime time.Duration
}

// Connect opens a connection pool and verifies it
func Connect(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	}

	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates the tables if they do not exist
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("error applying schema: %w", err)
	}
	return nil
}

// Analytics summarizes store contents
func (s *PostgresStore) Analytics(ctx context.Context) (Analytics, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM trends),
			(SELECT COUNT(*) FROM suggestions),
			(SELECT COUNT(*) FROM reports),
			(SELECT COUNT(*) FROM sources WHERE platform <> 'system' AND enabled AND status = 'active'),
			COALESCE((SELECT date FROM reports ORDER BY created_at DESC, id DESC LIMIT 1), '')
	`

	var a Analytics
	err := s.db.QueryRow(ctx, query).Scan(
		&a.TotalTrends,
		&a.TotalSuggestions,
		&a.TotalReports,
		&a.ActiveSourcesCount,
		&a.LastReportDate,
	)
	if err != nil {
		return Analytics{}, fmt.Errorf("error querying analytics: %w", err)
	}
	return a, nil
}

// notFound maps pgx.ErrNoRows onto ErrNotFound
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("error querying %s: %w", what, err)
}
