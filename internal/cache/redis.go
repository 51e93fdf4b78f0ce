package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a distributed Store backend so the cache can genuinely be
// shared across gateway instances (spec.md §1, §5): session data, OAuth
// tokens, ID mappings, and token-bucket state all need to agree across
// stateless processes.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing go-redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisStoreFromAddr dials a single-node Redis instance.
func NewRedisStoreFromAddr(addr, password string, db int) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// Set implements Store. ttl of zero means the key never expires.
func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Delete implements Store; deleting an absent key is not an error.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// IncrIfAbsent implements Store using SET NX as the atomic primitive.
func (r *RedisStore) IncrIfAbsent(ctx context.Context, key string, initial []byte, ttl time.Duration) ([]byte, error) {
	ok, err := r.client.SetNX(ctx, key, initial, ttl).Result()
	if err != nil {
		return nil, err
	}
	if ok {
		return initial, nil
	}
	return r.Get(ctx, key)
}

// Close releases the underlying Redis connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

var _ Store = (*RedisStore)(nil)
