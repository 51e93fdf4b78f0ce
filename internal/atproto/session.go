package atproto

import (
	"context"
	"time"

	"github.com/mastobridge/mastobridge/internal/bsky"
)

// CreateSession authenticates identifier (handle or email) + password
// against com.atproto.server.createSession and binds the resulting
// session to this client (spec.md §4.5 "call upstream create_session").
func (c *Client) CreateSession(ctx context.Context, identifier, password string) (bsky.Session, error) {
	req := map[string]string{
		"identifier": identifier,
		"password":   password,
	}
	var resp struct {
		AccessJwt  string `json:"accessJwt"`
		RefreshJwt string `json:"refreshJwt"`
		Did        string `json:"did"`
		Handle     string `json:"handle"`
		Email      string `json:"email"`
	}
	if err := c.xrpcCall(ctx, "com.atproto.server.createSession", false, nil, req, &resp); err != nil {
		return bsky.Session{}, err
	}

	session := bsky.Session{
		AccessToken:  resp.AccessJwt,
		RefreshToken: resp.RefreshJwt,
		DID:          resp.Did,
		Handle:       resp.Handle,
		Email:        resp.Email,
		PDSHost:      c.pdsHost,
		CreatedAt:    time.Now().UTC(),
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	return session, nil
}

// RefreshSession exchanges the session's refresh JWT for a new access
// JWT via com.atproto.server.refreshSession, per spec.md §4.5 "if the
// embedded session's access JWT is expired, call refresh_session
// transparently".
func (c *Client) RefreshSession(ctx context.Context, session bsky.Session) (bsky.Session, error) {
	refreshClient := &Client{pdsHost: c.pdsHost, http: c.http}
	refreshClient.session = bsky.Session{AccessToken: session.RefreshToken}

	var resp struct {
		AccessJwt  string `json:"accessJwt"`
		RefreshJwt string `json:"refreshJwt"`
		Did        string `json:"did"`
		Handle     string `json:"handle"`
	}
	if err := refreshClient.xrpcCall(ctx, "com.atproto.server.refreshSession", true, nil, map[string]string{}, &resp); err != nil {
		return bsky.Session{}, err
	}

	updated := session
	updated.AccessToken = resp.AccessJwt
	updated.RefreshToken = resp.RefreshJwt
	if resp.Did != "" {
		updated.DID = resp.Did
	}
	if resp.Handle != "" {
		updated.Handle = resp.Handle
	}

	c.mu.Lock()
	c.session = updated
	c.mu.Unlock()

	return updated, nil
}
