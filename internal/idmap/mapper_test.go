package idmap

import (
	"context"
	"testing"

	"github.com/mastobridge/mastobridge/internal/cache"
)

func TestSnowflakeForDIDIsDeterministic(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	m1 := New(store)
	m2 := New(cache.NewMemoryStore()) // different store, same hash input

	sf1, err := m1.SnowflakeForDID(ctx, "did:plc:abc123")
	if err != nil {
		t.Fatalf("SnowflakeForDID: %v", err)
	}
	if sf1 <= 0 {
		t.Fatalf("sf1 = %d, want positive", sf1)
	}

	sf2, err := m2.SnowflakeForDID(ctx, "did:plc:abc123")
	if err != nil {
		t.Fatalf("SnowflakeForDID: %v", err)
	}
	if sf1 != sf2 {
		t.Fatalf("hash-derived snowflake not deterministic: %d != %d", sf1, sf2)
	}

	// Reverse lookup round-trips via the shared store.
	did, ok, err := m1.DIDForSnowflake(ctx, sf1)
	if err != nil || !ok {
		t.Fatalf("DIDForSnowflake: ok=%v err=%v", ok, err)
	}
	if did != "did:plc:abc123" {
		t.Fatalf("DIDForSnowflake = %q, want did:plc:abc123", did)
	}
}

func TestSnowflakeForDIDCachesAcrossCalls(t *testing.T) {
	ctx := context.Background()
	m := New(cache.NewMemoryStore())

	first, err := m.SnowflakeForDID(ctx, "did:plc:xyz")
	if err != nil {
		t.Fatalf("SnowflakeForDID: %v", err)
	}
	second, err := m.SnowflakeForDID(ctx, "did:plc:xyz")
	if err != nil {
		t.Fatalf("SnowflakeForDID: %v", err)
	}
	if first != second {
		t.Fatalf("repeated calls diverged: %d != %d", first, second)
	}
}

func TestDIDForSnowflakeAbsentWhenUnprimed(t *testing.T) {
	ctx := context.Background()
	m := New(cache.NewMemoryStore())
	_, ok, err := m.DIDForSnowflake(ctx, 12345)
	if err != nil {
		t.Fatalf("DIDForSnowflake: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for unprimed snowflake")
	}
}

func TestSnowflakeForATURIWithTID(t *testing.T) {
	ctx := context.Background()
	m := New(cache.NewMemoryStore())

	// 13-char base32-sortable TID.
	uri := "at://did:plc:author/app.bsky.feed.post/3juj6qa6ibz2p"
	sf, err := m.SnowflakeForATURI(ctx, uri)
	if err != nil {
		t.Fatalf("SnowflakeForATURI: %v", err)
	}
	if sf <= 0 {
		t.Fatalf("sf = %d, want positive", sf)
	}

	sfAgain, err := m.SnowflakeForATURI(ctx, uri)
	if err != nil {
		t.Fatalf("SnowflakeForATURI: %v", err)
	}
	if sf != sfAgain {
		t.Fatalf("not stable across calls: %d != %d", sf, sfAgain)
	}

	back, ok, err := m.ATURIForSnowflake(ctx, sf)
	if err != nil || !ok {
		t.Fatalf("ATURIForSnowflake: ok=%v err=%v", ok, err)
	}
	if back != uri {
		t.Fatalf("ATURIForSnowflake = %q, want %q", back, uri)
	}
}

func TestSnowflakeForATURIFallsBackToHash(t *testing.T) {
	ctx := context.Background()
	m := New(cache.NewMemoryStore())

	// rkey is not a valid 13-char TID, so the hash fallback applies.
	uri := "at://did:plc:author/app.bsky.feed.post/not-a-tid"
	sf, err := m.SnowflakeForATURI(ctx, uri)
	if err != nil {
		t.Fatalf("SnowflakeForATURI: %v", err)
	}
	if sf <= 0 {
		t.Fatalf("sf = %d, want positive", sf)
	}
}

func TestSnowflakeForHandleChainsThroughDID(t *testing.T) {
	ctx := context.Background()
	m := New(cache.NewMemoryStore())

	handle := "alice.bsky.social"
	did := "did:plc:alice"

	if _, ok, err := m.SnowflakeForHandle(ctx, handle); err != nil || ok {
		t.Fatalf("expected unprimed handle to be absent, got ok=%v err=%v", ok, err)
	}

	if err := m.PrimeHandle(ctx, handle, did); err != nil {
		t.Fatalf("PrimeHandle: %v", err)
	}

	sfViaHandle, ok, err := m.SnowflakeForHandle(ctx, handle)
	if err != nil || !ok {
		t.Fatalf("SnowflakeForHandle: ok=%v err=%v", ok, err)
	}

	sfViaDID, err := m.SnowflakeForDID(ctx, did)
	if err != nil {
		t.Fatalf("SnowflakeForDID: %v", err)
	}

	if sfViaHandle != sfViaDID {
		t.Fatalf("handle chain diverged from direct DID mapping: %d != %d", sfViaHandle, sfViaDID)
	}
}

func TestDIDForATURIExtractsSegment(t *testing.T) {
	got := DIDForATURI("at://did:plc:author/app.bsky.feed.post/abc")
	if got != "did:plc:author" {
		t.Fatalf("DIDForATURI = %q, want did:plc:author", got)
	}
}
