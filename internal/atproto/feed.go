package atproto

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/mastobridge/mastobridge/internal/bsky"
)

type facetFeature struct {
	Type string `json:"$type"`
	URI  string `json:"uri"`
	Did  string `json:"did"`
	Tag  string `json:"tag"`
}

type facetEnv struct {
	Index struct {
		ByteStart int `json:"byteStart"`
		ByteEnd   int `json:"byteEnd"`
	} `json:"index"`
	Features []facetFeature `json:"features"`
}

func decodeFacets(envs []facetEnv) []bsky.Facet {
	out := make([]bsky.Facet, 0, len(envs))
	for _, e := range envs {
		if len(e.Features) == 0 {
			continue
		}
		feat := e.Features[0]
		f := bsky.Facet{ByteStart: e.Index.ByteStart, ByteEnd: e.Index.ByteEnd}
		switch feat.Type {
		case "app.bsky.richtext.facet#link":
			f.Kind = bsky.FeatureLink
			f.URI = feat.URI
		case "app.bsky.richtext.facet#mention":
			f.Kind = bsky.FeatureMention
			f.DID = feat.Did
		case "app.bsky.richtext.facet#tag":
			f.Kind = bsky.FeatureTag
			f.Tag = feat.Tag
		default:
			continue
		}
		out = append(out, f)
	}
	return out
}

type embedView struct {
	Type   string `json:"$type"`
	Images []struct {
		Fullsize string `json:"fullsize"`
		Alt      string `json:"alt"`
	} `json:"images"`
	External *struct {
		URI         string `json:"uri"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Thumb       string `json:"thumb"`
	} `json:"external"`
	Record *struct {
		URI string `json:"uri"`
	} `json:"record"`
}

func decodeEmbed(raw json.RawMessage) *bsky.Embed {
	if len(raw) == 0 {
		return nil
	}
	var v embedView
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	switch v.Type {
	case "app.bsky.embed.images#view":
		images := make([]bsky.EmbedImage, 0, len(v.Images))
		for _, img := range v.Images {
			images = append(images, bsky.EmbedImage{URL: img.Fullsize, Alt: img.Alt})
		}
		return &bsky.Embed{Kind: bsky.EmbedImages, Images: images}
	case "app.bsky.embed.external#view":
		if v.External == nil {
			return nil
		}
		return &bsky.Embed{Kind: bsky.EmbedExternal, External: &bsky.EmbedExternalCard{
			URI:         v.External.URI,
			Title:       v.External.Title,
			Description: v.External.Description,
			ThumbURL:    v.External.Thumb,
		}}
	case "app.bsky.embed.record#view":
		if v.Record == nil {
			return nil
		}
		return &bsky.Embed{Kind: bsky.EmbedRecord, RecordURI: v.Record.URI}
	default:
		return nil
	}
}

type postView struct {
	Uri    string      `json:"uri"`
	Cid    string      `json:"cid"`
	Author profileView `json:"author"`
	Record struct {
		Text   string     `json:"text"`
		Facets []facetEnv `json:"facets"`
		Reply  *struct {
			Parent struct {
				Uri string `json:"uri"`
			} `json:"parent"`
		} `json:"reply"`
		CreatedAt string `json:"createdAt"`
	} `json:"record"`
	Embed       json.RawMessage `json:"embed,omitempty"`
	LikeCount   int             `json:"likeCount"`
	RepostCount int             `json:"repostCount"`
	ReplyCount  int             `json:"replyCount"`
	IndexedAt   string          `json:"indexedAt"`
}

func (p postView) toPost() bsky.Post {
	createdAt, err := time.Parse(time.RFC3339, p.Record.CreatedAt)
	if err != nil {
		createdAt, _ = time.Parse(time.RFC3339, p.IndexedAt)
	}

	post := bsky.Post{
		URI:         p.Uri,
		CID:         p.Cid,
		Author:      p.Author.toProfile(),
		Text:        p.Record.Text,
		Facets:      decodeFacets(p.Record.Facets),
		Embed:       decodeEmbed(p.Embed),
		CreatedAt:   createdAt,
		LikeCount:   p.LikeCount,
		RepostCount: p.RepostCount,
		ReplyCount:  p.ReplyCount,
	}
	if p.Record.Reply != nil {
		post.ReplyToURI = p.Record.Reply.Parent.Uri
	}
	return post
}

type reasonRepost struct {
	Type      string      `json:"$type"`
	By        profileView `json:"by"`
	IndexedAt string      `json:"indexedAt"`
}

type feedViewPost struct {
	Post   postView `json:"post"`
	Reason *reasonRepost `json:"reason"`
}

func (fvp feedViewPost) toPost() bsky.Post {
	post := fvp.Post.toPost()
	if fvp.Reason != nil && fvp.Reason.Type == "app.bsky.feed.defs#reasonRepost" {
		original := post
		post = bsky.Post{
			URI:           original.URI,
			CID:           original.CID,
			Author:        fvp.Reason.By.toProfile(),
			Text:          original.Text,
			CreatedAt:     original.CreatedAt,
			RepostOf:      &original,
			RepostedByDID: fvp.Reason.By.Did,
		}
	}
	return post
}

// GetTimeline implements spec.md §4.6 get_timeline via
// app.bsky.feed.getTimeline (the authenticated user's following feed).
func (c *Client) GetTimeline(ctx context.Context, limit int, cursor string) (bsky.Page[bsky.Post], error) {
	q := cursorQuery(limit, cursor, nil)
	var resp struct {
		Feed   []feedViewPost `json:"feed"`
		Cursor string         `json:"cursor"`
	}
	if err := c.xrpcCall(ctx, "app.bsky.feed.getTimeline", true, q, nil, &resp); err != nil {
		return bsky.Page[bsky.Post]{}, err
	}
	return toPostPage(resp.Feed, resp.Cursor), nil
}

// GetAuthorFeed implements spec.md §4.6 get_author_feed via
// app.bsky.feed.getAuthorFeed. filter is passed through verbatim (e.g.
// "posts_no_replies") when non-empty.
func (c *Client) GetAuthorFeed(ctx context.Context, actor string, limit int, cursor, filter string) (bsky.Page[bsky.Post], error) {
	extra := url.Values{"actor": {actor}}
	if filter != "" {
		extra.Set("filter", filter)
	}
	q := cursorQuery(limit, cursor, extra)
	var resp struct {
		Feed   []feedViewPost `json:"feed"`
		Cursor string         `json:"cursor"`
	}
	if err := c.xrpcCall(ctx, "app.bsky.feed.getAuthorFeed", true, q, nil, &resp); err != nil {
		return bsky.Page[bsky.Post]{}, err
	}
	return toPostPage(resp.Feed, resp.Cursor), nil
}

// GetFeed implements spec.md §4.6 get_feed via app.bsky.feed.getFeed for
// a named feed generator (spec §6.1's /api/v1/timelines/list/:id route).
func (c *Client) GetFeed(ctx context.Context, feedURI string, limit int, cursor string) (bsky.Page[bsky.Post], error) {
	q := cursorQuery(limit, cursor, url.Values{"feed": {feedURI}})
	var resp struct {
		Feed   []feedViewPost `json:"feed"`
		Cursor string         `json:"cursor"`
	}
	if err := c.xrpcCall(ctx, "app.bsky.feed.getFeed", true, q, nil, &resp); err != nil {
		return bsky.Page[bsky.Post]{}, err
	}
	return toPostPage(resp.Feed, resp.Cursor), nil
}

func toPostPage(feed []feedViewPost, cursor string) bsky.Page[bsky.Post] {
	items := make([]bsky.Post, len(feed))
	for i, f := range feed {
		items[i] = f.toPost()
	}
	return bsky.Page[bsky.Post]{Items: items, Cursor: cursor}
}

type threadViewPost struct {
	Post     postView          `json:"post"`
	Parent   *threadViewPost   `json:"parent"`
	Replies  []threadViewPost  `json:"replies"`
}

// GetPostThread implements spec.md §4.6 get_post_thread via
// app.bsky.feed.getPostThread, flattening parent chain into Ancestors and
// replies into Descendants (spec.md §D.3 / SPEC_FULL.md Open Question
// decision: standard Mastodon {ancestors, descendants} shape).
func (c *Client) GetPostThread(ctx context.Context, uri string, depth int) (bsky.Thread, error) {
	q := url.Values{"uri": {uri}}
	if depth > 0 {
		q.Set("depth", strconv.Itoa(depth))
	}
	var resp struct {
		Thread threadViewPost `json:"thread"`
	}
	if err := c.xrpcCall(ctx, "app.bsky.feed.getPostThread", true, q, nil, &resp); err != nil {
		return bsky.Thread{}, err
	}

	var ancestors []bsky.Post
	for p := resp.Thread.Parent; p != nil; p = p.Parent {
		ancestors = append([]bsky.Post{p.Post.toPost()}, ancestors...)
	}

	var descendants []bsky.Post
	var walk func(replies []threadViewPost)
	walk = func(replies []threadViewPost) {
		for _, r := range replies {
			descendants = append(descendants, r.Post.toPost())
			walk(r.Replies)
		}
	}
	walk(resp.Thread.Replies)

	return bsky.Thread{
		Post:        resp.Thread.Post.toPost(),
		Ancestors:   ancestors,
		Descendants: descendants,
	}, nil
}

// GetLikedBy implements spec.md §4.6 get_liked_by via
// app.bsky.feed.getLikedBy.
func (c *Client) GetLikedBy(ctx context.Context, uri string, limit int, cursor string) (bsky.Page[bsky.Profile], error) {
	q := cursorQuery(limit, cursor, url.Values{"uri": {uri}})
	var resp struct {
		LikedBy []profileView `json:"likedBy"`
		Cursor  string        `json:"cursor"`
	}
	if err := c.xrpcCall(ctx, "app.bsky.feed.getLikedBy", true, q, nil, &resp); err != nil {
		return bsky.Page[bsky.Profile]{}, err
	}
	return toProfilePage(resp.LikedBy, resp.Cursor), nil
}

// GetRepostedBy implements spec.md §4.6 get_reposted_by via
// app.bsky.feed.getRepostedBy.
func (c *Client) GetRepostedBy(ctx context.Context, uri string, limit int, cursor string) (bsky.Page[bsky.Profile], error) {
	q := cursorQuery(limit, cursor, url.Values{"uri": {uri}})
	var resp struct {
		RepostedBy []profileView `json:"repostedBy"`
		Cursor     string        `json:"cursor"`
	}
	if err := c.xrpcCall(ctx, "app.bsky.feed.getRepostedBy", true, q, nil, &resp); err != nil {
		return bsky.Page[bsky.Profile]{}, err
	}
	return toProfilePage(resp.RepostedBy, resp.Cursor), nil
}
