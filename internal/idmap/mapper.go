// Package idmap provides the deterministic, bidirectional mapping between
// Bluesky identifiers (DIDs, AT URIs, handles) and the 64-bit Snowflake IDs
// Mastodon clients require (spec.md §4.2).
package idmap

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"github.com/mastobridge/mastobridge/internal/cache"
	"github.com/mastobridge/mastobridge/internal/snowflake"
)

// Mapper is stateless; all mapping state lives in the shared cache so the
// mapping is stable across processes and restarts.
type Mapper struct {
	store cache.Store
}

// New constructs a Mapper backed by store.
func New(store cache.Store) *Mapper {
	return &Mapper{store: store}
}

// SnowflakeForDID returns the cached Snowflake for did if primed, else
// computes it deterministically from SHA-256(did), primes both cache
// directions, and returns it. Per spec.md §4.2, §8 invariant 1.
func (m *Mapper) SnowflakeForDID(ctx context.Context, did string) (snowflake.ID, error) {
	key := cache.KeyDIDToSnowflake + did
	if b, err := m.store.Get(ctx, key); err == nil {
		return snowflake.ID(bytesToInt64(b)), nil
	} else if !cache.IsNotFound(err) {
		return 0, err
	}

	sf := hashToSnowflake(did)

	if err := m.store.Set(ctx, key, int64ToBytes(int64(sf)), 0); err != nil {
		return 0, err
	}
	if err := m.store.Set(ctx, cache.KeySnowflakeToDID+sf.String(), []byte(did), 0); err != nil {
		return 0, err
	}
	return sf, nil
}

// DIDForSnowflake is a cache lookup only; it never computes a new mapping.
func (m *Mapper) DIDForSnowflake(ctx context.Context, sf snowflake.ID) (string, bool, error) {
	b, err := m.store.Get(ctx, cache.KeySnowflakeToDID+sf.String())
	if cache.IsNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

// SnowflakeForATURI returns the cached Snowflake for uri if primed, else
// attempts TID-derived timestamp construction and falls back to the
// SHA-256 hash scheme used for DIDs. Per spec.md §4.2 and Open Question 1
// (see SPEC_FULL.md §D.1 for the exact derived_worker/derived_sequence
// byte offsets).
func (m *Mapper) SnowflakeForATURI(ctx context.Context, uri string) (snowflake.ID, error) {
	key := cache.KeyATURIToSnowflake + uri
	if b, err := m.store.Get(ctx, key); err == nil {
		return snowflake.ID(bytesToInt64(b)), nil
	} else if !cache.IsNotFound(err) {
		return 0, err
	}

	sf := m.deriveATURISnowflake(uri)

	if err := m.store.Set(ctx, key, int64ToBytes(int64(sf)), 0); err != nil {
		return 0, err
	}
	if err := m.store.Set(ctx, cache.KeySnowflakeToATURI+sf.String(), []byte(uri), 0); err != nil {
		return 0, err
	}
	return sf, nil
}

// deriveATURISnowflake implements the TID-first, hash-fallback scheme.
func (m *Mapper) deriveATURISnowflake(uri string) snowflake.ID {
	rkey := rkeyFromATURI(uri)
	if raw, ok := decodeTID(rkey); ok {
		micros := tidTimestampMicros(raw)
		ms := micros / 1000

		h := sha256.Sum256([]byte(uri))
		worker := int64(binary.BigEndian.Uint16(h[8:10])) % 1024
		sequence := int64(binary.BigEndian.Uint16(h[10:12])) % 4096

		id := ((ms - snowflake.Epoch) << 22) | (worker << 12) | sequence
		if id < 0 {
			id = -id
		}
		return snowflake.ID(id)
	}
	return hashToSnowflake(uri)
}

// ATURIForSnowflake is a cache lookup only.
func (m *Mapper) ATURIForSnowflake(ctx context.Context, sf snowflake.ID) (string, bool, error) {
	b, err := m.store.Get(ctx, cache.KeySnowflakeToATURI+sf.String())
	if cache.IsNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

// DIDForATURI extracts the DID segment from an AT URI without consulting
// the cache; used when translating reply/quote references.
func DIDForATURI(uri string) string {
	return didFromATURI(uri)
}

// PrimeHandle records that handle resolves to did, so that a subsequent
// SnowflakeForHandle call can chain through SnowflakeForDID.
func (m *Mapper) PrimeHandle(ctx context.Context, handle, did string) error {
	return m.store.Set(ctx, cache.KeyHandleToDID+handle, []byte(did), 0)
}

// SnowflakeForHandle resolves handle via the cached handle->DID mapping
// and chains through SnowflakeForDID. Returns 0, false if the handle has
// not yet been primed — per spec.md §4.2, the caller must resolve the
// handle via the upstream adapter and call PrimeHandle before retrying.
func (m *Mapper) SnowflakeForHandle(ctx context.Context, handle string) (snowflake.ID, bool, error) {
	b, err := m.store.Get(ctx, cache.KeyHandleToDID+handle)
	if cache.IsNotFound(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	sf, err := m.SnowflakeForDID(ctx, string(b))
	if err != nil {
		return 0, false, err
	}
	return sf, true, nil
}

// hashToSnowflake implements the SHA-256-first-8-bytes-big-endian-signed-
// absolute-value construction shared by DID mapping and the AT-URI
// hash fallback.
func hashToSnowflake(s string) snowflake.ID {
	h := sha256.Sum256([]byte(s))
	v := int64(binary.BigEndian.Uint64(h[:8]))
	if v < 0 {
		v = -v
	}
	return snowflake.ID(v)
}

func int64ToBytes(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func bytesToInt64(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}
