package atproto

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mastobridge/mastobridge/internal/apperror"
	"github.com/mastobridge/mastobridge/internal/bsky"
)

func TestCreateSessionBindsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/xrpc/com.atproto.server.createSession" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"accessJwt":  "access-1",
			"refreshJwt": "refresh-1",
			"did":        "did:plc:alice",
			"handle":     "alice.bsky.social",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	session, err := c.CreateSession(context.Background(), "alice.bsky.social", "hunter2")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if session.AccessToken != "access-1" || session.DID != "did:plc:alice" {
		t.Fatalf("session = %+v", session)
	}
	if c.Session().AccessToken != "access-1" {
		t.Fatal("client should bind the new session")
	}
}

func TestXRPCErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		header string
		want   apperror.Kind
	}{
		{http.StatusUnauthorized, "", apperror.KindUnauthorized},
		{http.StatusNotFound, "", apperror.KindNotFound},
		{http.StatusTooManyRequests, "2", apperror.KindRateLimited},
		{http.StatusBadGateway, "", apperror.KindUpstreamUnavailable},
		{http.StatusTeapot, "", apperror.KindInternal},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tc.header != "" {
				w.Header().Set("Retry-After", tc.header)
			}
			w.WriteHeader(tc.status)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Boom", "message": "boom"})
		}))

		c := NewClient(srv.URL)
		_, err := c.GetProfile(context.Background(), "did:plc:alice")
		e, ok := apperror.As(err)
		if !ok {
			t.Fatalf("status %d: expected *apperror.Error, got %v", tc.status, err)
		}
		if e.Kind != tc.want {
			t.Errorf("status %d: Kind = %s, want %s", tc.status, e.Kind, tc.want)
		}
		srv.Close()
	}
}

func TestCreatePostWithFacetsAndReply(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(map[string]string{"uri": "at://did:plc:alice/app.bsky.feed.post/abc", "cid": "cid123"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.session = bsky.Session{AccessToken: "tok", DID: "did:plc:alice"}

	uri, cid, err := c.CreatePost(context.Background(), "hello #go", "at://did:plc:bob/app.bsky.feed.post/xyz", "cidxyz",
		[]bsky.Facet{{ByteStart: 6, ByteEnd: 9, Kind: bsky.FeatureTag, Tag: "go"}}, nil)
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if uri != "at://did:plc:alice/app.bsky.feed.post/abc" || cid != "cid123" {
		t.Fatalf("uri/cid = %s/%s", uri, cid)
	}
	if captured["repo"] != "did:plc:alice" {
		t.Fatalf("repo = %v", captured["repo"])
	}
	record, ok := captured["record"].(map[string]any)
	if !ok {
		t.Fatalf("record missing: %+v", captured)
	}
	if record["text"] != "hello #go" {
		t.Fatalf("text = %v", record["text"])
	}
	if _, ok := record["reply"]; !ok {
		t.Fatal("reply should be present")
	}
	if _, ok := record["facets"]; !ok {
		t.Fatal("facets should be present")
	}
}

func TestDeleteRecordExtractsCollectionAndRkey(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.session = bsky.Session{AccessToken: "tok", DID: "did:plc:alice"}

	err := c.DeleteRecord(context.Background(), "at://did:plc:alice/app.bsky.feed.like/xyz123")
	if err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if captured["collection"] != "app.bsky.feed.like" {
		t.Fatalf("collection = %v", captured["collection"])
	}
	if captured["rkey"] != "xyz123" {
		t.Fatalf("rkey = %v", captured["rkey"])
	}
}

func TestGetTimelineDecodesRepost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"cursor": "next-page",
			"feed": []map[string]any{
				{
					"post": map[string]any{
						"uri":    "at://did:plc:alice/app.bsky.feed.post/1",
						"cid":    "cid1",
						"author": map[string]any{"did": "did:plc:alice", "handle": "alice.bsky.social"},
						"record": map[string]any{"text": "original", "createdAt": "2024-01-01T00:00:00Z"},
					},
					"reason": map[string]any{
						"$type": "app.bsky.feed.defs#reasonRepost",
						"by":    map[string]any{"did": "did:plc:bob", "handle": "bob.bsky.social"},
					},
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.session = bsky.Session{AccessToken: "tok"}

	page, err := c.GetTimeline(context.Background(), 20, "")
	if err != nil {
		t.Fatalf("GetTimeline: %v", err)
	}
	if page.Cursor != "next-page" {
		t.Fatalf("Cursor = %q", page.Cursor)
	}
	if len(page.Items) != 1 {
		t.Fatalf("Items = %+v", page.Items)
	}
	if page.Items[0].RepostOf == nil {
		t.Fatal("RepostOf should be set for a reasonRepost item")
	}
	if page.Items[0].Author.DID != "did:plc:bob" {
		t.Fatalf("repost author = %+v", page.Items[0].Author)
	}
}

func TestListNotificationsFiltersByReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"notifications": []map[string]any{
				{"uri": "at://x/1", "reason": "like", "author": map[string]any{"did": "did:plc:a"}},
				{"uri": "at://x/2", "reason": "follow", "author": map[string]any{"did": "did:plc:b"}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.session = bsky.Session{AccessToken: "tok"}

	page, err := c.ListNotifications(context.Background(), 20, "", []string{"like"})
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Reason != bsky.ReasonLike {
		t.Fatalf("Items = %+v", page.Items)
	}
}

func TestMarkSeenSendsEmptyBody(t *testing.T) {
	var raw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 1024)
		n, _ := r.Body.Read(buf)
		raw = string(buf[:n])
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.session = bsky.Session{AccessToken: "tok"}
	if err := c.MarkSeen(context.Background()); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if raw != "{}" {
		t.Fatalf("body = %q, want empty object (no seenAt stamped)", raw)
	}
}
