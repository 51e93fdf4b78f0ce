package atproto

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/mastobridge/mastobridge/internal/bsky"
)

type notificationView struct {
	Uri       string      `json:"uri"`
	Reason    string      `json:"reason"`
	Author    profileView `json:"author"`
	Record    struct {
		Text string `json:"text"`
	} `json:"record"`
	ReasonSubject string `json:"reasonSubject"`
	IsRead        bool   `json:"isRead"`
	IndexedAt     string `json:"indexedAt"`
}

func (n notificationView) toNotification() bsky.Notification {
	indexedAt, _ := time.Parse(time.RFC3339, n.IndexedAt)
	out := bsky.Notification{
		URI:       n.Uri,
		Reason:    bsky.NotificationReason(n.Reason),
		Author:    n.Author.toProfile(),
		IndexedAt: indexedAt,
		IsRead:    n.IsRead,
	}
	if n.ReasonSubject != "" {
		out.Post = &bsky.Post{URI: n.ReasonSubject}
	}
	return out
}

// ListNotifications implements spec.md §4.6 list_notifications via
// app.bsky.notification.listNotifications. reasons filters client-side
// since the upstream endpoint does not support server-side reason
// filtering.
func (c *Client) ListNotifications(ctx context.Context, limit int, cursor string, reasons []string) (bsky.Page[bsky.Notification], error) {
	q := cursorQuery(limit, cursor, nil)
	var resp struct {
		Notifications []notificationView `json:"notifications"`
		Cursor        string             `json:"cursor"`
	}
	if err := c.xrpcCall(ctx, "app.bsky.notification.listNotifications", true, q, nil, &resp); err != nil {
		return bsky.Page[bsky.Notification]{}, err
	}

	items := make([]bsky.Notification, 0, len(resp.Notifications))
	for _, n := range resp.Notifications {
		if len(reasons) > 0 && !containsReason(reasons, n.Reason) {
			continue
		}
		items = append(items, n.toNotification())
	}
	return bsky.Page[bsky.Notification]{Items: items, Cursor: resp.Cursor}, nil
}

func containsReason(reasons []string, reason string) bool {
	for _, r := range reasons {
		if strings.EqualFold(r, reason) {
			return true
		}
	}
	return false
}

// MarkSeen implements spec.md §4.6 mark_seen via
// app.bsky.notification.updateSeen. seenAt is left absent (the request
// body is an empty JSON object, {}) rather than stamped with the current time — see
// SPEC_FULL.md Open Question decision 4.
func (c *Client) MarkSeen(ctx context.Context) error {
	return c.xrpcCall(ctx, "app.bsky.notification.updateSeen", true, nil, map[string]any{}, nil)
}

// UnreadCount implements spec.md §4.6 unread_count via
// app.bsky.notification.getUnreadCount.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := c.xrpcCall(ctx, "app.bsky.notification.getUnreadCount", true, url.Values{}, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}
