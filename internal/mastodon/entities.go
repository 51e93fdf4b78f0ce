// Package mastodon defines the Mastodon v1 API entity shapes and the pure
// translators from Bluesky domain objects to them (spec.md §4.4).
package mastodon

// Account is the Mastodon account entity.
type Account struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Acct           string `json:"acct"`
	DisplayName    string `json:"display_name"`
	Note           string `json:"note"`
	Avatar         string `json:"avatar"`
	AvatarStatic   string `json:"avatar_static"`
	Header         string `json:"header"`
	HeaderStatic   string `json:"header_static"`
	FollowersCount int    `json:"followers_count"`
	FollowingCount int    `json:"following_count"`
	StatusesCount  int    `json:"statuses_count"`
	CreatedAt      string `json:"created_at"`
	URL            string `json:"url"`
	Bot            bool   `json:"bot"`
	Locked         bool   `json:"locked"`
	Discoverable   bool   `json:"discoverable"`
}

// MediaAttachment is a Mastodon status media attachment.
type MediaAttachment struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Card is a Mastodon preview card for an external link embed.
type Card struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
}

// Mention is a Mastodon status mention entry.
type Mention struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Acct     string `json:"acct"`
	URL      string `json:"url"`
}

// Tag is a Mastodon status hashtag entry.
type Tag struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Status is the Mastodon status entity.
type Status struct {
	ID                  string            `json:"id"`
	URI                 string            `json:"uri"`
	Content             string            `json:"content"`
	Account             Account           `json:"account"`
	CreatedAt           string            `json:"created_at"`
	FavouritesCount     int               `json:"favourites_count"`
	ReblogsCount        int               `json:"reblogs_count"`
	RepliesCount        int               `json:"replies_count"`
	InReplyToID         *string           `json:"in_reply_to_id"`
	InReplyToAccountID  *string           `json:"in_reply_to_account_id"`
	MediaAttachments    []MediaAttachment `json:"media_attachments"`
	Mentions            []Mention         `json:"mentions"`
	Tags                []Tag             `json:"tags"`
	Card                *Card             `json:"card,omitempty"`
	Visibility          string            `json:"visibility"`
	Sensitive           bool              `json:"sensitive"`
	Reblog              *Status           `json:"reblog,omitempty"`
	Favourited          bool              `json:"favourited"`
	Reblogged           bool              `json:"reblogged"`
}

// Notification is the Mastodon notification entity.
type Notification struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	CreatedAt string  `json:"created_at"`
	Account   Account `json:"account"`
	Status    *Status `json:"status,omitempty"`
}

// Context is the Mastodon status-thread entity.
type Context struct {
	Ancestors   []Status `json:"ancestors"`
	Descendants []Status `json:"descendants"`
}

// Relationship is the Mastodon account-relationship entity returned by
// the relationships batch endpoint. Bluesky exposes no equivalent of
// Mastodon's blocking/muting/note concepts (spec.md Non-goals), so those
// fields are always reported false/absent.
type Relationship struct {
	ID         string `json:"id"`
	Following  bool   `json:"following"`
	FollowedBy bool   `json:"followed_by"`
	Blocking   bool   `json:"blocking"`
	Muting     bool   `json:"muting"`
	Requested  bool   `json:"requested"`
}
