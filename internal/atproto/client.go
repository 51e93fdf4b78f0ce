// Package atproto is the session-scoped upstream adapter: it authenticates
// to a Bluesky PDS and normalizes reads/writes into the domain value types
// shared with the translation layer (spec.md §4.6).
package atproto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mastobridge/mastobridge/internal/apperror"
	"github.com/mastobridge/mastobridge/internal/bsky"
)

const defaultPDS = "https://bsky.social"

// maxResponseBodySize bounds how much of an upstream response we buffer,
// so a misbehaving PDS cannot exhaust memory.
const maxResponseBodySize = 10 * 1024 * 1024

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for upstream calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// Client is a session-scoped AT Protocol client. One is constructed per
// authenticated user per process (spec.md §5); it is safe to create and
// drop freely since upstream session tokens are interchangeable.
type Client struct {
	pdsHost string
	http    *http.Client

	mu      sync.RWMutex
	session bsky.Session
}

// NewClient constructs an unauthenticated Client targeting pdsHost (empty
// defaults to https://bsky.social).
func NewClient(pdsHost string, opts ...Option) *Client {
	if pdsHost == "" {
		pdsHost = defaultPDS
	}
	c := &Client{
		pdsHost: pdsHost,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transportFor(pdsHost),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromSession constructs a Client already bound to an existing
// session (e.g. one round-tripped through the cache).
func NewClientFromSession(session bsky.Session, opts ...Option) *Client {
	c := NewClient(session.PDSHost, opts...)
	c.session = session
	return c
}

// Session returns the client's current session snapshot.
func (c *Client) Session() bsky.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.AccessToken
}

func (c *Client) did() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.DID
}

// xrpcCall performs one XRPC request. A non-nil reqBody selects
// POST+JSON-body (procedure); a nil reqBody selects GET+query-params
// (query). authed attaches the bearer token. The decoded response is
// written into out (may be nil).
func (c *Client) xrpcCall(ctx context.Context, method string, authed bool, query url.Values, reqBody any, out any) error {
	u := c.pdsHost + "/xrpc/" + method

	var body io.Reader
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return apperror.Internal(fmt.Errorf("atproto: marshal request: %w", err))
		}
		body = bytes.NewReader(raw)
	}

	httpMethod := http.MethodGet
	if reqBody != nil {
		httpMethod = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, u, body)
	if err != nil {
		return apperror.Internal(fmt.Errorf("atproto: build request: %w", err))
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		if tok := c.accessToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperror.UpstreamUnavailable(fmt.Errorf("atproto: request %s: %w", method, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return apperror.UpstreamUnavailable(fmt.Errorf("atproto: read response %s: %w", method, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var xe xrpcError
		_ = json.Unmarshal(raw, &xe)
		return mapStatus(resp.StatusCode, resp.Header.Get("Retry-After"), xe)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperror.Internal(fmt.Errorf("atproto: decode response %s: %w", method, err))
	}
	return nil
}

func cursorQuery(limit int, cursor string, extra url.Values) url.Values {
	q := url.Values{}
	for k, vs := range extra {
		q[k] = vs
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	return q
}

// rkeyOf extracts the final path segment of an AT URI
// (at://did/collection/rkey).
func rkeyOf(uri string) string {
	if idx := strings.LastIndexByte(uri, '/'); idx >= 0 {
		return uri[idx+1:]
	}
	return uri
}
