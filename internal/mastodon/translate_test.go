package mastodon

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mastobridge/mastobridge/internal/bsky"
	"github.com/mastobridge/mastobridge/internal/cache"
	"github.com/mastobridge/mastobridge/internal/idmap"
)

func newTestTranslator() *Translator {
	return NewTranslator(idmap.New(cache.NewMemoryStore()))
}

func TestAccountTranslation(t *testing.T) {
	ctx := context.Background()
	tr := newTestTranslator()

	p := bsky.Profile{
		DID:            "did:plc:alice",
		Handle:         "alice.bsky.social",
		DisplayName:    "",
		Description:    "hello world",
		FollowersCount: 10,
		FollowsCount:   5,
		PostsCount:     42,
	}

	acc, err := tr.Account(ctx, p)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if acc.Username != "alice" {
		t.Fatalf("Username = %q, want alice", acc.Username)
	}
	if acc.Acct != "alice.bsky.social" {
		t.Fatalf("Acct = %q", acc.Acct)
	}
	if acc.DisplayName != "alice.bsky.social" {
		t.Fatalf("DisplayName fallback = %q, want full handle", acc.DisplayName)
	}
	if acc.Note != "<p>hello world</p>" {
		t.Fatalf("Note = %q", acc.Note)
	}
	if acc.Avatar == "" {
		t.Fatal("Avatar fallback should not be empty")
	}
	if acc.URL != "https://bsky.app/profile/alice.bsky.social" {
		t.Fatalf("URL = %q", acc.URL)
	}
	if acc.Bot || acc.Locked || acc.Discoverable {
		t.Fatal("Bot/Locked/Discoverable must default false")
	}
}

func TestAccountIDStableAcrossCalls(t *testing.T) {
	ctx := context.Background()
	tr := newTestTranslator()
	p := bsky.Profile{DID: "did:plc:bob", Handle: "bob.bsky.social"}

	a1, err := tr.Account(ctx, p)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	a2, err := tr.Account(ctx, p)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if a1.ID != a2.ID {
		t.Fatalf("account id not stable: %s != %s", a1.ID, a2.ID)
	}
}

func TestStatusTranslationBasicFields(t *testing.T) {
	ctx := context.Background()
	tr := newTestTranslator()

	post := bsky.Post{
		URI:  "at://did:plc:alice/app.bsky.feed.post/3k2z3h5q6wz2p",
		Text: "hello #golang",
		Facets: []bsky.Facet{
			{ByteStart: 6, ByteEnd: 13, Kind: bsky.FeatureTag, Tag: "golang"},
		},
		Author:      bsky.Profile{DID: "did:plc:alice", Handle: "alice.bsky.social"},
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		LikeCount:   3,
		RepostCount: 1,
		ReplyCount:  2,
	}

	status, err := tr.Status(ctx, post)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Visibility != "public" {
		t.Fatalf("Visibility = %q, want public", status.Visibility)
	}
	if status.FavouritesCount != 3 || status.ReblogsCount != 1 || status.RepliesCount != 2 {
		t.Fatalf("counts mismatch: %+v", status)
	}
	if !strings.Contains(status.Content, `#golang`) {
		t.Fatalf("Content missing rendered tag: %s", status.Content)
	}
	if len(status.Tags) != 1 || status.Tags[0].Name != "golang" {
		t.Fatalf("Tags = %+v", status.Tags)
	}
	if status.InReplyToID != nil {
		t.Fatal("InReplyToID should be nil for a top-level post")
	}
	if status.URI != "https://bsky.app/profile/alice.bsky.social/post/3k2z3h5q6wz2p" {
		t.Fatalf("URI = %q", status.URI)
	}
}

func TestStatusInReplyToFields(t *testing.T) {
	ctx := context.Background()
	tr := newTestTranslator()

	replyURI := "at://did:plc:bob/app.bsky.feed.post/3k2z3h5q6wz2q"
	post := bsky.Post{
		URI:        "at://did:plc:alice/app.bsky.feed.post/3k2z3h5q6wz2r",
		Text:       "a reply",
		Author:     bsky.Profile{DID: "did:plc:alice", Handle: "alice.bsky.social"},
		ReplyToURI: replyURI,
	}

	status, err := tr.Status(ctx, post)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.InReplyToID == nil {
		t.Fatal("InReplyToID should be set")
	}
	if status.InReplyToAccountID == nil {
		t.Fatal("InReplyToAccountID should be set")
	}
}

func TestStatusWithImageEmbed(t *testing.T) {
	ctx := context.Background()
	tr := newTestTranslator()

	post := bsky.Post{
		URI:    "at://did:plc:alice/app.bsky.feed.post/3k2z3h5q6wz2s",
		Text:   "look at this",
		Author: bsky.Profile{DID: "did:plc:alice", Handle: "alice.bsky.social"},
		Embed: &bsky.Embed{
			Kind: bsky.EmbedImages,
			Images: []bsky.EmbedImage{
				{URL: "https://cdn.bsky.app/img/1.jpg", Alt: "a cat", Labeled: true},
			},
		},
	}

	status, err := tr.Status(ctx, post)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(status.MediaAttachments) != 1 {
		t.Fatalf("MediaAttachments = %+v", status.MediaAttachments)
	}
	if status.MediaAttachments[0].Type != "image" {
		t.Fatalf("Type = %q", status.MediaAttachments[0].Type)
	}
	if !status.Sensitive {
		t.Fatal("Sensitive should be true when an image carries a labeler marker")
	}
}

func TestNotificationTranslationMapsReasons(t *testing.T) {
	ctx := context.Background()
	tr := newTestTranslator()

	cases := map[bsky.NotificationReason]string{
		bsky.ReasonLike:   "favourite",
		bsky.ReasonRepost: "reblog",
		bsky.ReasonFollow: "follow",
		bsky.ReasonReply:  "mention",
		bsky.ReasonMention: "mention",
		bsky.ReasonQuote:  "mention",
	}

	for reason, want := range cases {
		n := bsky.Notification{
			URI:    "at://did:plc:alice/app.bsky.notification/" + string(reason),
			Reason: reason,
			Author: bsky.Profile{DID: "did:plc:alice", Handle: "alice.bsky.social"},
		}
		out, err := tr.Notification(ctx, n)
		if err != nil {
			t.Fatalf("Notification(%s): %v", reason, err)
		}
		if out == nil {
			t.Fatalf("Notification(%s) = nil, want type %s", reason, want)
		}
		if out.Type != want {
			t.Fatalf("Notification(%s).Type = %q, want %q", reason, out.Type, want)
		}
	}
}

func TestNotificationUnknownReasonSkipped(t *testing.T) {
	ctx := context.Background()
	tr := newTestTranslator()

	n := bsky.Notification{
		Reason: bsky.NotificationReason("unknown"),
		Author: bsky.Profile{DID: "did:plc:alice", Handle: "alice.bsky.social"},
	}
	out, err := tr.Notification(ctx, n)
	if err != nil {
		t.Fatalf("Notification: %v", err)
	}
	if out != nil {
		t.Fatal("unknown reason should be skipped (nil, nil)")
	}
}
