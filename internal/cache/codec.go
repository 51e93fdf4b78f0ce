package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SetJSON marshals v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", key, err)
	}
	return s.Set(ctx, key, b, ttl)
}

// GetJSON looks up key and unmarshals it into dst. Returns ErrNotFound if
// absent, wrapped via errors.Is.
func GetJSON(ctx context.Context, s Store, key string, dst any) error {
	b, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("cache: unmarshal %s: %w", key, err)
	}
	return nil
}

// IsNotFound reports whether err represents a cache miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
