package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a persistent, single-process Store backend. It exists to
// resolve the Open Question in spec.md §9 about `did_for_snowflake` /
// `at_uri_for_snowflake` reverse-lookup durability across cold starts: a
// never-expiring ID mapping written here survives a process restart even
// without a distributed cache.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) a SQLite database at path
// and ensures the cache table exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers

	const ddl = `CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expire_at INTEGER
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: create sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Set implements Store. A zero ttl stores expire_at as NULL (never
// expires), which is how ID mappings are persisted per spec.md §3.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expireAt sql.NullInt64
	if ttl > 0 {
		expireAt = sql.NullInt64{Int64: time.Now().Add(ttl).UnixMilli(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, expire_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expire_at = excluded.expire_at
	`, key, value, expireAt)
	return err
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	var expireAt sql.NullInt64
	row := s.db.QueryRowContext(ctx, `SELECT value, expire_at FROM cache_entries WHERE key = ?`, key)
	if err := row.Scan(&value, &expireAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if expireAt.Valid && time.Now().UnixMilli() > expireAt.Int64 {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
		return nil, ErrNotFound
	}
	return value, nil
}

// Delete implements Store; deleting an absent key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
	return err
}

// IncrIfAbsent implements Store via INSERT OR IGNORE followed by a read.
func (s *SQLiteStore) IncrIfAbsent(ctx context.Context, key string, initial []byte, ttl time.Duration) ([]byte, error) {
	var expireAt sql.NullInt64
	if ttl > 0 {
		expireAt = sql.NullInt64{Int64: time.Now().Add(ttl).UnixMilli(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, expire_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`, key, initial, expireAt)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, key)
}

var _ Store = (*SQLiteStore)(nil)
