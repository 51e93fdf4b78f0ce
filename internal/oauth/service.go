package oauth

import (
	"context"
	"time"

	"github.com/mastobridge/mastobridge/internal/apperror"
	"github.com/mastobridge/mastobridge/internal/atproto"
	"github.com/mastobridge/mastobridge/internal/bsky"
	"github.com/mastobridge/mastobridge/internal/cache"
)

const authorizationCodeTTL = 10 * time.Minute

// Service implements the OAuth application registry and token lifecycle
// of spec.md §4.5. It is stateless; everything lives in store.
type Service struct {
	store   cache.Store
	pdsHost string
	nowFunc func() time.Time
}

// New constructs a Service backed by store, authenticating new sessions
// against pdsHost.
func New(store cache.Store, pdsHost string) *Service {
	return &Service{store: store, pdsHost: pdsHost, nowFunc: time.Now}
}

// RegisterApplication implements "register application": validates name
// and redirect_uri, mints client_id/client_secret, and stores the
// application with no TTL. The plaintext secret is returned once.
func (s *Service) RegisterApplication(ctx context.Context, name, redirectURI, website string) (Application, string, error) {
	if name == "" {
		return Application{}, "", apperror.ValidationFailed("client_name", "must not be empty")
	}
	if redirectURI == "" {
		return Application{}, "", apperror.ValidationFailed("redirect_uris", "must not be empty")
	}

	clientID := newClientID()
	secret, err := newClientSecret()
	if err != nil {
		return Application{}, "", apperror.Internal(err)
	}
	secretHash, err := hashSecret(secret)
	if err != nil {
		return Application{}, "", apperror.Internal(err)
	}

	app := Application{
		ClientID:         clientID,
		ClientSecretHash: secretHash,
		Name:             name,
		RedirectURI:      redirectURI,
		Website:          website,
		CreatedAt:        s.nowFunc().UTC(),
	}

	if err := cache.SetJSON(ctx, s.store, cache.KeyOAuthApp+clientID, app, 0); err != nil {
		return Application{}, "", apperror.Internal(err)
	}
	return app, secret, nil
}

// GenerateAuthorizationCode implements "generate authorization code":
// validates the app exists and redirect_uri matches, mints a 256-bit
// code, and stores it with a 10-minute TTL.
func (s *Service) GenerateAuthorizationCode(ctx context.Context, clientID, redirectURI string) (string, error) {
	app, err := s.getApplication(ctx, clientID)
	if err != nil {
		return "", err
	}
	if app.RedirectURI != redirectURI {
		return "", apperror.InvalidGrant("redirect_uri mismatch")
	}

	code, err := newAuthorizationCode()
	if err != nil {
		return "", apperror.Internal(err)
	}

	ac := AuthorizationCode{
		Code:        code,
		ClientID:    clientID,
		RedirectURI: redirectURI,
		CreatedAt:   s.nowFunc().UTC(),
	}
	if err := cache.SetJSON(ctx, s.store, cache.KeyOAuthCode+code, ac, authorizationCodeTTL); err != nil {
		return "", apperror.Internal(err)
	}
	return code, nil
}

// ExchangeAuthorizationCode implements "exchange authorization code":
// validates client_id/client_secret/redirect_uri against the stored
// code, authenticates identifier/password against the PDS, mints a
// bearer token, and deletes the code (single-use) before returning.
func (s *Service) ExchangeAuthorizationCode(ctx context.Context, code, clientID, clientSecret, redirectURI, identifier, password, scope string) (*Token, error) {
	var ac AuthorizationCode
	if err := cache.GetJSON(ctx, s.store, cache.KeyOAuthCode+code, &ac); err != nil {
		if cache.IsNotFound(err) {
			return nil, apperror.InvalidGrant("authorization code not found or expired")
		}
		return nil, apperror.Internal(err)
	}

	// Consume the code immediately: single-use, even if the remainder of
	// the exchange (upstream auth, token mint) subsequently fails.
	_ = s.store.Delete(ctx, cache.KeyOAuthCode+code)

	if ac.ClientID != clientID || ac.RedirectURI != redirectURI {
		return nil, apperror.InvalidGrant("authorization code does not match client")
	}

	if err := s.authenticateApp(ctx, clientID, clientSecret); err != nil {
		return nil, err
	}

	return s.mintToken(ctx, clientID, identifier, password, scope)
}

// PasswordGrant implements "password grant": as ExchangeAuthorizationCode
// but without an intermediate code.
func (s *Service) PasswordGrant(ctx context.Context, clientID, clientSecret, identifier, password, scope string) (*Token, error) {
	if err := s.authenticateApp(ctx, clientID, clientSecret); err != nil {
		return nil, err
	}
	return s.mintToken(ctx, clientID, identifier, password, scope)
}

func (s *Service) mintToken(ctx context.Context, clientID, identifier, password, scope string) (*Token, error) {
	scopes, err := parseScope(scope)
	if err != nil {
		return nil, err
	}

	upstream := atproto.NewClient(s.pdsHost)
	session, err := upstream.CreateSession(ctx, identifier, password)
	if err != nil {
		return nil, err
	}

	bearer, err := newBearerToken()
	if err != nil {
		return nil, apperror.Internal(err)
	}

	token := &Token{
		Token:     bearer,
		ClientID:  clientID,
		Scopes:    scopes,
		Session:   session,
		CreatedAt: s.nowFunc().UTC(),
	}
	if err := cache.SetJSON(ctx, s.store, cache.KeyOAuthToken+bearer, token, 0); err != nil {
		return nil, apperror.Internal(err)
	}
	return token, nil
}

// ValidateToken implements "validate token": looks up the stored token,
// transparently refreshes an expired access JWT, and rewrites the token
// record with the refreshed session. A failed refresh revokes the token.
func (s *Service) ValidateToken(ctx context.Context, bearer string) (*Token, error) {
	var token Token
	if err := cache.GetJSON(ctx, s.store, cache.KeyOAuthToken+bearer, &token); err != nil {
		if cache.IsNotFound(err) {
			return nil, apperror.Unauthorized("invalid_token")
		}
		return nil, apperror.Internal(err)
	}

	if !isSessionExpired(token.Session, s.nowFunc()) {
		return &token, nil
	}

	upstream := atproto.NewClientFromSession(token.Session)
	refreshed, err := upstream.RefreshSession(ctx, token.Session)
	if err != nil {
		_ = s.store.Delete(ctx, cache.KeyOAuthToken+bearer)
		return nil, apperror.Unauthorized("invalid_token")
	}
	refreshed.CreatedAt = s.nowFunc().UTC()

	token.Session = refreshed
	if err := cache.SetJSON(ctx, s.store, cache.KeyOAuthToken+bearer, token, 0); err != nil {
		return nil, apperror.Internal(err)
	}
	return &token, nil
}

// RevokeToken implements "revoke token": deletion is idempotent, an
// absent key is not an error.
func (s *Service) RevokeToken(ctx context.Context, bearer string) error {
	if err := s.store.Delete(ctx, cache.KeyOAuthToken+bearer); err != nil && !cache.IsNotFound(err) {
		return apperror.Internal(err)
	}
	return nil
}

func (s *Service) getApplication(ctx context.Context, clientID string) (Application, error) {
	var app Application
	if err := cache.GetJSON(ctx, s.store, cache.KeyOAuthApp+clientID, &app); err != nil {
		if cache.IsNotFound(err) {
			return Application{}, apperror.InvalidClient("unknown client_id")
		}
		return Application{}, apperror.Internal(err)
	}
	return app, nil
}

func (s *Service) authenticateApp(ctx context.Context, clientID, clientSecret string) error {
	app, err := s.getApplication(ctx, clientID)
	if err != nil {
		return err
	}
	ok, err := verifySecret(clientSecret, app.ClientSecretHash)
	if err != nil || !ok {
		return apperror.InvalidClient("client authentication failed")
	}
	return nil
}

// sessionLifetime is the conservative access-JWT lifetime assumption used
// when the PDS response gives no explicit expiry: 50 minutes, ten minutes
// short of the 1-hour lifetime the bluesky client reference assumes.
const sessionLifetime = 50 * time.Minute

func isSessionExpired(session bsky.Session, now time.Time) bool {
	return now.After(session.CreatedAt.Add(sessionLifetime))
}
