package atproto

import (
	"context"
	"time"

	"github.com/mastobridge/mastobridge/internal/apperror"
	"github.com/mastobridge/mastobridge/internal/bsky"
)

// createRecord performs com.atproto.repo.createRecord for the
// authenticated session's repo and returns the new record's AT URI.
func (c *Client) createRecord(ctx context.Context, collection string, record map[string]any) (string, error) {
	if _, ok := record["createdAt"]; !ok {
		record["createdAt"] = time.Now().UTC().Format(time.RFC3339)
	}
	req := map[string]any{
		"repo":       c.did(),
		"collection": collection,
		"record":     record,
	}
	var resp struct {
		Uri string `json:"uri"`
		Cid string `json:"cid"`
	}
	if err := c.xrpcCall(ctx, "com.atproto.repo.createRecord", true, nil, req, &resp); err != nil {
		return "", err
	}
	return resp.Uri, nil
}

// DeleteRecord deletes the record at uri via com.atproto.repo.deleteRecord.
func (c *Client) DeleteRecord(ctx context.Context, uri string) error {
	req := map[string]any{
		"repo":       c.did(),
		"collection": collectionOf(uri),
		"rkey":       rkeyOf(uri),
	}
	return c.xrpcCall(ctx, "com.atproto.repo.deleteRecord", true, nil, req, nil)
}

// collectionOf extracts the NSID segment of an AT URI
// (at://did/collection/rkey).
func collectionOf(uri string) string {
	parts := make([]string, 0, 4)
	start := 0
	for i := 0; i < len(uri); i++ {
		if uri[i] == '/' {
			parts = append(parts, uri[start:i])
			start = i + 1
		}
	}
	parts = append(parts, uri[start:])
	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}
	return ""
}

// CreatePost implements spec.md §4.6 create_post via
// app.bsky.feed.post records. replyToURI/replyToCID may both be empty for
// a top-level post.
func (c *Client) CreatePost(ctx context.Context, text string, replyToURI, replyToCID string, facets []bsky.Facet, embed *bsky.Embed) (uri string, cid string, err error) {
	record := map[string]any{
		"$type": "app.bsky.feed.post",
		"text":  text,
	}
	if len(facets) > 0 {
		record["facets"] = encodeFacets(facets)
	}
	if replyToURI != "" {
		record["reply"] = map[string]any{
			"root":   map[string]any{"uri": replyToURI, "cid": replyToCID},
			"parent": map[string]any{"uri": replyToURI, "cid": replyToCID},
		}
	}
	if e := encodeEmbed(embed); e != nil {
		record["embed"] = e
	}

	req := map[string]any{
		"repo":       c.did(),
		"collection": "app.bsky.feed.post",
		"record":     record,
	}
	var resp struct {
		Uri string `json:"uri"`
		Cid string `json:"cid"`
	}
	if err := c.xrpcCall(ctx, "com.atproto.repo.createRecord", true, nil, req, &resp); err != nil {
		return "", "", err
	}
	return resp.Uri, resp.Cid, nil
}

func encodeFacets(facets []bsky.Facet) []map[string]any {
	out := make([]map[string]any, 0, len(facets))
	for _, f := range facets {
		feature := map[string]any{}
		switch f.Kind {
		case bsky.FeatureLink:
			feature["$type"] = "app.bsky.richtext.facet#link"
			feature["uri"] = f.URI
		case bsky.FeatureMention:
			feature["$type"] = "app.bsky.richtext.facet#mention"
			feature["did"] = f.DID
		case bsky.FeatureTag:
			feature["$type"] = "app.bsky.richtext.facet#tag"
			feature["tag"] = f.Tag
		default:
			continue
		}
		out = append(out, map[string]any{
			"index": map[string]any{
				"byteStart": f.ByteStart,
				"byteEnd":   f.ByteEnd,
			},
			"features": []map[string]any{feature},
		})
	}
	return out
}

func encodeEmbed(e *bsky.Embed) map[string]any {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case bsky.EmbedExternal:
		if e.External == nil {
			return nil
		}
		return map[string]any{
			"$type": "app.bsky.embed.external",
			"external": map[string]any{
				"uri":         e.External.URI,
				"title":       e.External.Title,
				"description": e.External.Description,
			},
		}
	case bsky.EmbedRecord:
		if e.RecordURI == "" {
			return nil
		}
		return map[string]any{
			"$type": "app.bsky.embed.record",
			"record": map[string]any{
				"uri": e.RecordURI,
			},
		}
	default:
		return nil
	}
}

// LikePost creates an app.bsky.feed.like record and returns its AT URI.
func (c *Client) LikePost(ctx context.Context, uri, cid string) (string, error) {
	return c.createRecord(ctx, "app.bsky.feed.like", map[string]any{
		"$type":   "app.bsky.feed.like",
		"subject": map[string]any{"uri": uri, "cid": cid},
	})
}

// Unlike deletes the like record at likeRecordURI.
func (c *Client) Unlike(ctx context.Context, likeRecordURI string) error {
	return c.DeleteRecord(ctx, likeRecordURI)
}

// Repost creates an app.bsky.feed.repost record and returns its AT URI.
func (c *Client) Repost(ctx context.Context, uri, cid string) (string, error) {
	return c.createRecord(ctx, "app.bsky.feed.repost", map[string]any{
		"$type":   "app.bsky.feed.repost",
		"subject": map[string]any{"uri": uri, "cid": cid},
	})
}

// Unrepost deletes the repost record at repostRecordURI.
func (c *Client) Unrepost(ctx context.Context, repostRecordURI string) error {
	return c.DeleteRecord(ctx, repostRecordURI)
}

// UploadBlob uploads raw bytes via com.atproto.repo.uploadBlob.
func (c *Client) UploadBlob(ctx context.Context, data []byte, mimeType string) (bsky.BlobRef, error) {
	if len(data) == 0 {
		return bsky.BlobRef{}, apperror.ValidationFailed("file", "empty upload")
	}

	u := c.pdsHost + "/xrpc/com.atproto.repo.uploadBlob"
	req, err := newBlobRequest(ctx, u, data, mimeType)
	if err != nil {
		return bsky.BlobRef{}, apperror.Internal(err)
	}
	if tok := c.accessToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return bsky.BlobRef{}, apperror.UpstreamUnavailable(err)
	}
	defer resp.Body.Close()

	var body struct {
		Blob struct {
			Ref struct {
				Link string `json:"$link"`
			} `json:"ref"`
			MimeType string `json:"mimeType"`
			Size     int64  `json:"size"`
		} `json:"blob"`
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var xe xrpcError
		_ = decodeJSON(resp, &xe)
		return bsky.BlobRef{}, mapStatus(resp.StatusCode, resp.Header.Get("Retry-After"), xe)
	}
	if err := decodeJSON(resp, &body); err != nil {
		return bsky.BlobRef{}, apperror.Internal(err)
	}

	return bsky.BlobRef{
		CID:      body.Blob.Ref.Link,
		MimeType: body.Blob.MimeType,
		Size:     body.Blob.Size,
	}, nil
}
