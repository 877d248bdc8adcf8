// Package db provides PostgreSQL access for the candidate store.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoValue is returned when a key has no stored value.
var ErrNoValue = errors.New("no value stored for key")

const createKVTable = `CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const selectValue = `SELECT value FROM kv_store WHERE key = $1`

const upsertValue = `INSERT INTO kv_store (key, value, updated_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// EnsureSchema creates the key/value table if it does not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, createKVTable); err != nil {
		return fmt.Errorf("failed to create kv_store table: %w", err)
	}
	return nil
}

// GetValue returns the JSON document stored under key, or ErrNoValue.
func (db *DB) GetValue(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := db.pool.QueryRow(ctx, selectValue, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoValue
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get value %q: %w", key, err)
	}
	return value, nil
}

// PutValue stores a JSON document under key, replacing any previous value.
func (db *DB) PutValue(ctx context.Context, key string, value []byte) error {
	if _, err := db.pool.Exec(ctx, upsertValue, key, value); err != nil {
		return fmt.Errorf("failed to put value %q: %w", key, err)
	}
	return nil
}
