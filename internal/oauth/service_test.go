package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mastobridge/mastobridge/internal/apperror"
	"github.com/mastobridge/mastobridge/internal/cache"
)

func newTestService(t *testing.T, pdsURL string) *Service {
	t.Helper()
	return New(cache.NewMemoryStore(), pdsURL)
}

func fakePDS(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/xrpc/com.atproto.server.createSession":
			_ = json.NewEncoder(w).Encode(map[string]string{
				"accessJwt": "access-1", "refreshJwt": "refresh-1",
				"did": "did:plc:alice", "handle": "alice.bsky.social",
			})
		case "/xrpc/com.atproto.server.refreshSession":
			_ = json.NewEncoder(w).Encode(map[string]string{
				"accessJwt": "access-2", "refreshJwt": "refresh-2",
				"did": "did:plc:alice", "handle": "alice.bsky.social",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestRegisterApplicationValidates(t *testing.T) {
	svc := newTestService(t, "")
	ctx := context.Background()

	if _, _, err := svc.RegisterApplication(ctx, "", "https://app.example/cb", ""); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, _, err := svc.RegisterApplication(ctx, "My App", "", ""); err == nil {
		t.Fatal("expected error for empty redirect_uri")
	}

	app, secret, err := svc.RegisterApplication(ctx, "My App", "https://app.example/cb", "")
	if err != nil {
		t.Fatalf("RegisterApplication: %v", err)
	}
	if app.ClientID == "" || secret == "" {
		t.Fatal("client_id/secret must be non-empty")
	}
	if app.ClientSecretHash == secret {
		t.Fatal("stored hash must not equal the plaintext secret")
	}
}

func TestPasswordGrantMintsToken(t *testing.T) {
	srv := fakePDS(t)
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	ctx := context.Background()

	app, secret, err := svc.RegisterApplication(ctx, "My App", "https://app.example/cb", "")
	if err != nil {
		t.Fatalf("RegisterApplication: %v", err)
	}

	token, err := svc.PasswordGrant(ctx, app.ClientID, secret, "alice.bsky.social", "hunter2", "")
	if err != nil {
		t.Fatalf("PasswordGrant: %v", err)
	}
	if token.Token == "" {
		t.Fatal("expected a bearer token")
	}
	if len(token.Scopes) != 1 || token.Scopes[0] != "read" {
		t.Fatalf("Scopes = %v, want default [read]", token.Scopes)
	}
	if token.Session.DID != "did:plc:alice" {
		t.Fatalf("Session.DID = %q", token.Session.DID)
	}
}

func TestPasswordGrantRejectsBadSecret(t *testing.T) {
	srv := fakePDS(t)
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	ctx := context.Background()

	app, _, err := svc.RegisterApplication(ctx, "My App", "https://app.example/cb", "")
	if err != nil {
		t.Fatalf("RegisterApplication: %v", err)
	}

	_, err = svc.PasswordGrant(ctx, app.ClientID, "wrong-secret", "alice.bsky.social", "hunter2", "")
	e, ok := apperror.As(err)
	if !ok || e.Kind != apperror.KindInvalidClient {
		t.Fatalf("err = %v, want invalid_client", err)
	}
}

func TestAuthorizationCodeFlowIsSingleUse(t *testing.T) {
	srv := fakePDS(t)
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	ctx := context.Background()

	app, secret, err := svc.RegisterApplication(ctx, "My App", "https://app.example/cb", "")
	if err != nil {
		t.Fatalf("RegisterApplication: %v", err)
	}

	code, err := svc.GenerateAuthorizationCode(ctx, app.ClientID, app.RedirectURI)
	if err != nil {
		t.Fatalf("GenerateAuthorizationCode: %v", err)
	}

	token, err := svc.ExchangeAuthorizationCode(ctx, code, app.ClientID, secret, app.RedirectURI, "alice.bsky.social", "hunter2", "read write")
	if err != nil {
		t.Fatalf("ExchangeAuthorizationCode: %v", err)
	}
	if len(token.Scopes) != 2 {
		t.Fatalf("Scopes = %v", token.Scopes)
	}

	_, err = svc.ExchangeAuthorizationCode(ctx, code, app.ClientID, secret, app.RedirectURI, "alice.bsky.social", "hunter2", "")
	if err == nil {
		t.Fatal("code must not be redeemable twice")
	}
}

func TestExchangeRejectsRedirectURIMismatch(t *testing.T) {
	srv := fakePDS(t)
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	ctx := context.Background()

	app, secret, err := svc.RegisterApplication(ctx, "My App", "https://app.example/cb", "")
	if err != nil {
		t.Fatalf("RegisterApplication: %v", err)
	}
	code, err := svc.GenerateAuthorizationCode(ctx, app.ClientID, app.RedirectURI)
	if err != nil {
		t.Fatalf("GenerateAuthorizationCode: %v", err)
	}

	_, err = svc.ExchangeAuthorizationCode(ctx, code, app.ClientID, secret, "https://evil.example/cb", "alice.bsky.social", "hunter2", "")
	if err == nil {
		t.Fatal("expected redirect_uri mismatch to fail")
	}
}

func TestValidateTokenRefreshesExpiredSession(t *testing.T) {
	srv := fakePDS(t)
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	ctx := context.Background()

	app, secret, err := svc.RegisterApplication(ctx, "My App", "https://app.example/cb", "")
	if err != nil {
		t.Fatalf("RegisterApplication: %v", err)
	}
	token, err := svc.PasswordGrant(ctx, app.ClientID, secret, "alice.bsky.social", "hunter2", "")
	if err != nil {
		t.Fatalf("PasswordGrant: %v", err)
	}

	// Force the embedded session to look expired.
	svc.nowFunc = func() time.Time { return time.Now().Add(2 * time.Hour) }

	refreshed, err := svc.ValidateToken(ctx, token.Token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if refreshed.Session.AccessToken != "access-2" {
		t.Fatalf("AccessToken = %q, want refreshed value", refreshed.Session.AccessToken)
	}
}

func TestValidateTokenRejectsUnknownToken(t *testing.T) {
	svc := newTestService(t, "")
	_, err := svc.ValidateToken(context.Background(), "no-such-token")
	e, ok := apperror.As(err)
	if !ok || e.Kind != apperror.KindUnauthorized {
		t.Fatalf("err = %v, want unauthorized", err)
	}
}

func TestRevokeTokenIsIdempotent(t *testing.T) {
	svc := newTestService(t, "")
	ctx := context.Background()
	if err := svc.RevokeToken(ctx, "never-issued"); err != nil {
		t.Fatalf("RevokeToken on absent key should not error: %v", err)
	}
}

func TestScopeValidationRejectsUnrecognized(t *testing.T) {
	srv := fakePDS(t)
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	ctx := context.Background()
	app, secret, err := svc.RegisterApplication(ctx, "My App", "https://app.example/cb", "")
	if err != nil {
		t.Fatalf("RegisterApplication: %v", err)
	}

	_, err = svc.PasswordGrant(ctx, app.ClientID, secret, "alice.bsky.social", "hunter2", "read superuser")
	e, ok := apperror.As(err)
	if !ok || e.Kind != apperror.KindInvalidScope {
		t.Fatalf("err = %v, want invalid_scope", err)
	}
}
