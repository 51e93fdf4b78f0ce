// Package cache defines the gateway's shared cache abstraction and its
// backends. Every other subsystem — ID mapping, OAuth, rate limiting —
// treats the cache as the single source of truth for mutable state, per
// spec.md §6.3.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when key has no entry.
var ErrNotFound = errors.New("cache: key not found")

// Store is the required cache interface (spec.md §6.3). A zero ttl means
// the entry never expires.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error

	// IncrIfAbsent atomically creates key with the given initial value and
	// ttl if it is absent, or returns the existing value unchanged. Useful
	// for rate-limit bootstrap without a read-then-write race.
	IncrIfAbsent(ctx context.Context, key string, initial []byte, ttl time.Duration) ([]byte, error)
}

// Key namespaces used throughout the gateway, enumerated in spec.md §6.3.
const (
	KeyOAuthApp          = "oauth:app:"
	KeyOAuthCode         = "oauth:code:"
	KeyOAuthToken        = "oauth:token:"
	KeySession           = "session:"
	KeyDIDToSnowflake    = "did_to_snowflake:"
	KeySnowflakeToDID    = "snowflake_to_did:"
	KeyATURIToSnowflake  = "at_uri_to_snowflake:"
	KeySnowflakeToATURI  = "snowflake_to_at_uri:"
	KeyHandleToDID       = "handle_to_did:"
	KeyRateLimit         = "ratelimit:"
)
