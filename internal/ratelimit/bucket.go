// Package ratelimit implements the gateway's distributed token-bucket
// rate limiter (spec.md §4.7), coordinated through the shared cache so
// that any stateless instance makes the same allow/deny decision as any
// other observing the same cache entry.
package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/mastobridge/mastobridge/internal/cache"
)

// Window is the rate-limit accounting window (spec.md §4.7: "5-minute
// window").
const Window = 5 * time.Minute

// Limits are the default capacities per spec.md §6.5.
const (
	UnauthenticatedCapacity = 300
	AuthenticatedCapacity   = 1000
)

// Decision is the result of a Check call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// bucketState is the persisted (tokens, last_refill_ts) pair, per
// spec.md §4.7.
type bucketState struct {
	Tokens        float64   `json:"tokens"`
	LastRefillUTC time.Time `json:"last_refill_ts"`
}

// Limiter enforces per-key token buckets backed by store. It holds no
// in-process state: contention and persistence both live in the cache.
type Limiter struct {
	store   cache.Store
	nowFunc func() time.Time
}

// New constructs a Limiter backed by store.
func New(store cache.Store) *Limiter {
	return &Limiter{store: store, nowFunc: time.Now}
}

// Check implements spec.md §4.7's token-bucket algorithm for a single key
// (client IP for unauthenticated requests, user DID for authenticated
// ones) with the given capacity. The refill is computed deterministically
// from wall time, so any instance observing the same cache entry reaches
// the same decision.
func (l *Limiter) Check(ctx context.Context, scope, id string, capacity int) (Decision, error) {
	key := cache.KeyRateLimit + scope + ":" + id
	now := l.nowFunc().UTC()

	state, err := l.load(ctx, key, capacity, now)
	if err != nil {
		return Decision{}, err
	}

	refill := now.Sub(state.LastRefillUTC).Seconds() * float64(capacity) / Window.Seconds()
	tokens := state.Tokens + refill
	if tokens > float64(capacity) {
		tokens = float64(capacity)
	}

	allowed := tokens >= 1
	if allowed {
		tokens--
	}

	if err := l.store.Set(ctx, key, encodeState(bucketState{Tokens: tokens, LastRefillUTC: now}), Window); err != nil {
		return Decision{}, err
	}

	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   allowed,
		Limit:     capacity,
		Remaining: remaining,
		ResetAt:   now.Add(Window),
	}, nil
}

func (l *Limiter) load(ctx context.Context, key string, capacity int, now time.Time) (bucketState, error) {
	raw, err := l.store.Get(ctx, key)
	if cache.IsNotFound(err) {
		return bucketState{Tokens: float64(capacity), LastRefillUTC: now}, nil
	}
	if err != nil {
		return bucketState{}, err
	}
	var state bucketState
	if jsonErr := json.Unmarshal(raw, &state); jsonErr != nil {
		return bucketState{}, fmt.Errorf("ratelimit: decode bucket state for %s: %w", key, jsonErr)
	}
	return state, nil
}

func encodeState(s bucketState) []byte {
	b, _ := json.Marshal(s)
	return b
}

// HashKey derives a short, fixed-length cache-key suffix for identifiers
// that may be long or contain characters unsafe in a cache key (IPv6
// addresses, DIDs). Keying by the raw identifier is fine for the cache
// backends in this module, but hashing keeps keys bounded and backend-
// agnostic.
func HashKey(id string) string {
	h := xxhash.Sum64String(id)
	return fmt.Sprintf("%016x", h)
}
