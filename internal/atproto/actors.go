package atproto

import (
	"context"
	"net/url"

	"github.com/mastobridge/mastobridge/internal/bsky"
)

type profileView struct {
	Did            string `json:"did"`
	Handle         string `json:"handle"`
	DisplayName    string `json:"displayName"`
	Description    string `json:"description"`
	Avatar         string `json:"avatar"`
	Banner         string `json:"banner"`
	FollowersCount int    `json:"followersCount"`
	FollowsCount   int    `json:"followsCount"`
	PostsCount     int    `json:"postsCount"`
	IndexedAt      string `json:"indexedAt"`
}

func (p profileView) toProfile() bsky.Profile {
	return bsky.Profile{
		DID:            p.Did,
		Handle:         p.Handle,
		DisplayName:    p.DisplayName,
		Description:    p.Description,
		Avatar:         p.Avatar,
		Banner:         p.Banner,
		FollowersCount: p.FollowersCount,
		FollowsCount:   p.FollowsCount,
		PostsCount:     p.PostsCount,
		IndexedAt:      p.IndexedAt,
	}
}

// GetProfile resolves actor (handle or DID) to a full profile via
// app.bsky.actor.getProfile.
func (c *Client) GetProfile(ctx context.Context, actor string) (bsky.Profile, error) {
	var resp profileView
	q := url.Values{"actor": {actor}}
	if err := c.xrpcCall(ctx, "app.bsky.actor.getProfile", true, q, nil, &resp); err != nil {
		return bsky.Profile{}, err
	}
	return resp.toProfile(), nil
}

// SearchActors implements spec.md §4.6 search_actors via
// app.bsky.actor.searchActors.
func (c *Client) SearchActors(ctx context.Context, query string, limit int, cursor string) (bsky.Page[bsky.Profile], error) {
	q := cursorQuery(limit, cursor, url.Values{"q": {query}})
	var resp struct {
		Actors []profileView `json:"actors"`
		Cursor string        `json:"cursor"`
	}
	if err := c.xrpcCall(ctx, "app.bsky.actor.searchActors", true, q, nil, &resp); err != nil {
		return bsky.Page[bsky.Profile]{}, err
	}
	return toProfilePage(resp.Actors, resp.Cursor), nil
}

// GetFollowers implements spec.md §4.6 get_followers via
// app.bsky.graph.getFollowers.
func (c *Client) GetFollowers(ctx context.Context, actor string, limit int, cursor string) (bsky.Page[bsky.Profile], error) {
	q := cursorQuery(limit, cursor, url.Values{"actor": {actor}})
	var resp struct {
		Followers []profileView `json:"followers"`
		Cursor    string        `json:"cursor"`
	}
	if err := c.xrpcCall(ctx, "app.bsky.graph.getFollowers", true, q, nil, &resp); err != nil {
		return bsky.Page[bsky.Profile]{}, err
	}
	return toProfilePage(resp.Followers, resp.Cursor), nil
}

// GetFollows implements spec.md §4.6 get_follows via
// app.bsky.graph.getFollows.
func (c *Client) GetFollows(ctx context.Context, actor string, limit int, cursor string) (bsky.Page[bsky.Profile], error) {
	q := cursorQuery(limit, cursor, url.Values{"actor": {actor}})
	var resp struct {
		Follows []profileView `json:"follows"`
		Cursor  string        `json:"cursor"`
	}
	if err := c.xrpcCall(ctx, "app.bsky.graph.getFollows", true, q, nil, &resp); err != nil {
		return bsky.Page[bsky.Profile]{}, err
	}
	return toProfilePage(resp.Follows, resp.Cursor), nil
}

func toProfilePage(views []profileView, cursor string) bsky.Page[bsky.Profile] {
	items := make([]bsky.Profile, len(views))
	for i, v := range views {
		items[i] = v.toProfile()
	}
	return bsky.Page[bsky.Profile]{Items: items, Cursor: cursor}
}

// Follow creates an app.bsky.graph.follow record and returns its AT URI —
// the inverse (Unfollow) requires this URI, not the target DID (spec.md
// §4.6 "write inverses require the record URI returned by the write").
func (c *Client) Follow(ctx context.Context, actorDID string) (string, error) {
	return c.createRecord(ctx, "app.bsky.graph.follow", map[string]any{
		"$type":   "app.bsky.graph.follow",
		"subject": actorDID,
	})
}

// Unfollow deletes the follow record at followRecordURI.
func (c *Client) Unfollow(ctx context.Context, followRecordURI string) error {
	return c.DeleteRecord(ctx, followRecordURI)
}
