// Package bsky defines the Bluesky/AT Protocol domain value types shared
// between the upstream adapter (internal/atproto) and the translation
// layer (internal/mastodon). These are plain data types with no behavior.
package bsky

import "time"

// Session is the round-tripped state of an authenticated PDS session
// (spec.md §3 "Bluesky session data"). It must round-trip unchanged
// through the cache.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	DID          string    `json:"did"`
	Handle       string    `json:"handle"`
	Email        string    `json:"email,omitempty"`
	PDSHost      string    `json:"pds_host"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is a Bluesky actor profile (app.bsky.actor.defs#profileView /
// #profileViewDetailed, flattened to the fields the translators need).
type Profile struct {
	DID            string `json:"did"`
	Handle         string `json:"handle"`
	DisplayName    string `json:"display_name"`
	Description    string `json:"description"`
	Avatar         string `json:"avatar"`
	Banner         string `json:"banner"`
	FollowersCount int    `json:"followers_count"`
	FollowsCount   int    `json:"follows_count"`
	PostsCount     int    `json:"posts_count"`
	IndexedAt      string `json:"indexed_at"` // ISO-8601, may be empty
}

// FeatureKind mirrors richtext.FeatureKind for facets attached to post
// records (app.bsky.richtext.facet).
type FeatureKind int

const (
	FeatureLink FeatureKind = iota
	FeatureMention
	FeatureTag
)

// Facet is a byte-range annotation on a post's text.
type Facet struct {
	ByteStart int
	ByteEnd   int
	Kind      FeatureKind
	URI       string // FeatureLink
	DID       string // FeatureMention
	Tag       string // FeatureTag
}

// EmbedKind distinguishes the embed variants a post record may carry.
type EmbedKind int

const (
	EmbedNone EmbedKind = iota
	EmbedImages
	EmbedExternal
	EmbedRecord
)

// EmbedImage is one image in an EmbedImages embed.
type EmbedImage struct {
	URL     string
	Alt     string
	Labeled bool // carries a labeler-sensitive marker
}

// EmbedExternalCard is an EmbedExternal embed (link preview card).
type EmbedExternalCard struct {
	URI         string
	Title       string
	Description string
	ThumbURL    string
}

// Embed is a post's optional embedded content.
type Embed struct {
	Kind     EmbedKind
	Images   []EmbedImage
	External *EmbedExternalCard
	// RecordURI is the quoted/reposted record's AT URI, for EmbedRecord.
	RecordURI string
}

// Post is a Bluesky feed post (app.bsky.feed.post + the feed-view
// wrapper's counts), flattened for translation.
type Post struct {
	URI           string
	CID           string
	Author        Profile
	Text          string
	Facets        []Facet
	Embed         *Embed
	CreatedAt     time.Time
	ReplyToURI    string
	ReplyToDID    string
	LikeCount     int
	RepostCount   int
	ReplyCount    int
	RepostOf      *Post // set when this Post is a repost wrapper
	RepostedByDID string
}

// NotificationReason mirrors the Bluesky notification "reason" field.
type NotificationReason string

const (
	ReasonLike   NotificationReason = "like"
	ReasonRepost NotificationReason = "repost"
	ReasonFollow NotificationReason = "follow"
	ReasonReply  NotificationReason = "reply"
	ReasonMention NotificationReason = "mention"
	ReasonQuote  NotificationReason = "quote"
)

// Notification is a Bluesky notifications-list entry.
type Notification struct {
	URI       string
	Reason    NotificationReason
	Author    Profile
	Post      *Post // populated when the reason references a record
	IndexedAt time.Time
	IsRead    bool
}

// Thread is the result of get_post_thread: the root post plus its
// ancestors and descendants.
type Thread struct {
	Post        Post
	Ancestors   []Post
	Descendants []Post
}

// BlobRef references an uploaded blob (image/video) in the PDS.
type BlobRef struct {
	CID      string `json:"cid"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// Page is a generic cursor-paginated result.
type Page[T any] struct {
	Items  []T
	Cursor string
}
