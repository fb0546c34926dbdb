// Package store is the PostgreSQL persistence layer: an append-only
// trade log, decision audit records and equity snapshots shared by all
// strategy loops.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PoolInterface defines the interface for database pool operations
type PoolInterface interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Store wraps the PostgreSQL connection pool
type Store struct {
	pool PoolInterface

	// Held only when the store owns the pool, for Close
	ownedPool *pgxpool.Pool
}

// New creates a store with its own connection pool.
func New(ctx context.Context, dsn string, poolSize int) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if poolSize <= 0 {
		poolSize = 10
	}
	config.MaxConns = int32(poolSize)
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Database connection pool created successfully")

	return &Store{pool: pool, ownedPool: pool}, nil
}

// NewWithPool creates a store over an existing pool. Tests inject
// pgxmock through this.
func NewWithPool(pool PoolInterface) *Store {
	return &Store{pool: pool}
}

// Close closes the connection pool if the store owns it.
func (s *Store) Close() {
	if s.ownedPool != nil {
		s.ownedPool.Close()
		log.Info().Msg("Database connection pool closed")
	}
}

// Health checks database connectivity.
func (s *Store) Health(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return err
}

// EnsureSchema creates the tables the store needs if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id UUID PRIMARY KEY,
			decision_id UUID,
			symbol TEXT NOT NULL,
			market TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity DOUBLE PRECISION NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			commission DOUBLE PRECISION NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			pnl DOUBLE PRECISION,
			executed_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS decisions (
			id UUID PRIMARY KEY,
			symbol TEXT NOT NULL,
			action TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			reasoning TEXT NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			stop_loss DOUBLE PRECISION,
			take_profit DOUBLE PRECISION,
			position_size DOUBLE PRECISION,
			approved BOOLEAN NOT NULL DEFAULT FALSE,
			context JSONB,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS equity_snapshots (
			id BIGSERIAL PRIMARY KEY,
			equity DOUBLE PRECISION NOT NULL,
			market TEXT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
