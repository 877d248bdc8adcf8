package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/jonathan/interview-assistant/internal/db"
)

// DefaultKey is the key the collection is saved under in Redis and Postgres.
const DefaultKey = "interview-assistant:candidates"

// MemoryBackend keeps the document in memory.
type MemoryBackend struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Load implements Backend.
func (m *MemoryBackend) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), m.data...), nil
}

// Save implements Backend.
func (m *MemoryBackend) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	m.saves++
	return nil
}

// Saves returns how many times Save was called.
func (m *MemoryBackend) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// FileBackend saves the document to a local JSON file.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend writing to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Load implements Backend.
func (f *FileBackend) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	return data, nil
}

// Save writes to a temporary file in the same directory and renames it into
// place, so readers never see a partial document.
func (f *FileBackend) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".candidates-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}

// RedisBackend saves the document under a single Redis key.
type RedisBackend struct {
	client *redis.Client
	key    string
}

// NewRedisBackend returns a backend using client and key.
func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = DefaultKey
	}
	return &RedisBackend{client: client, key: key}
}

// Load implements Backend.
func (r *RedisBackend) Load(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s failed: %w", r.key, err)
	}
	return data, nil
}

// Save implements Backend.
func (r *RedisBackend) Save(ctx context.Context, data []byte) error {
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s failed: %w", r.key, err)
	}
	return nil
}

// PostgresBackend saves the document as a row in the kv_store table.
type PostgresBackend struct {
	db  *db.DB
	key string
}

// NewPostgresBackend returns a backend using database and key.
func NewPostgresBackend(database *db.DB, key string) *PostgresBackend {
	if key == "" {
		key = DefaultKey
	}
	return &PostgresBackend{db: database, key: key}
}

// Load implements Backend.
func (p *PostgresBackend) Load(ctx context.Context) ([]byte, error) {
	data, err := p.db.GetValue(ctx, p.key)
	if errors.Is(err, db.ErrNoValue) {
		return nil, ErrNotFound
	}
	return data, err
}

// Save implements Backend.
func (p *PostgresBackend) Save(ctx context.Context, data []byte) error {
	return p.db.PutValue(ctx, p.key, data)
}
