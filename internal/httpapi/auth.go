package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/mastobridge/mastobridge/internal/apperror"
	"github.com/mastobridge/mastobridge/internal/atproto"
	"github.com/mastobridge/mastobridge/internal/oauth"
)

type authContextKey struct{}

// authContext is attached to the request context once a bearer token has
// been validated, per spec.md §4.7 "attach (did, handle, session) to the
// request context".
type authContext struct {
	token    *oauth.Token
	upstream *atproto.Client
}

func withAuth(ctx context.Context, a authContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, a)
}

func authFromContext(ctx context.Context) (authContext, bool) {
	a, ok := ctx.Value(authContextKey{}).(authContext)
	return a, ok
}

// bearerToken extracts the Authorization: Bearer <token> header value, or
// "" if absent/malformed.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimPrefix(auth, prefix)
}

// requireAuth resolves the current request's authenticated context,
// reusing the token the rate-limit middleware may have already validated
// (see middleware.go) to avoid a second cache round trip, and otherwise
// validating it here. Missing or invalid credentials yield spec.md §4.7's
// exact 401 body via apperror.Unauthorized.
func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) (authContext, *http.Request, bool) {
	if a, ok := authFromContext(r.Context()); ok {
		return a, r, true
	}

	bearer := bearerToken(r)
	if bearer == "" {
		writeError(w, apperror.Unauthorized("missing bearer token"))
		return authContext{}, r, false
	}

	token, err := s.oauth.ValidateToken(r.Context(), bearer)
	if err != nil {
		writeError(w, err)
		return authContext{}, r, false
	}

	a := authContext{token: token, upstream: s.upstreamFor(token)}
	return a, r.WithContext(withAuth(r.Context(), a)), true
}

func (s *Server) upstreamFor(token *oauth.Token) *atproto.Client {
	return atproto.NewClientFromSession(token.Session, atproto.WithTimeout(s.upstreamTimeout))
}
