// Package oauth implements the gateway's OAuth 2.0 application registry,
// authorization-code and password grants, and opaque bearer token
// lifecycle, per spec.md §4.5. All state lives in the shared cache; the
// service itself is stateless.
package oauth

import (
	"time"

	"github.com/mastobridge/mastobridge/internal/bsky"
)

// Application is a registered OAuth client (spec.md §4.5 "register
// application"). ClientSecretHash is an Argon2id PHC-format hash; the
// plaintext secret is returned once, at registration, and never stored.
type Application struct {
	ClientID         string    `json:"client_id"`
	ClientSecretHash string    `json:"client_secret_hash"`
	Name             string    `json:"name"`
	RedirectURI      string    `json:"redirect_uri"`
	Website          string    `json:"website,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// AuthorizationCode is a single-use code minted by the authorize step and
// redeemed by the token-exchange step (spec.md §4.5). It carries no user
// credentials — the exchange call supplies identifier/password directly.
type AuthorizationCode struct {
	Code        string    `json:"code"`
	ClientID    string    `json:"client_id"`
	RedirectURI string    `json:"redirect_uri"`
	CreatedAt   time.Time `json:"created_at"`
}

// Token is the server-side record behind an opaque bearer token: the
// embedded Bluesky session plus enough OAuth context to validate scope
// and to know which PDS host to refresh against.
type Token struct {
	Token     string        `json:"token"`
	ClientID  string        `json:"client_id"`
	Scopes    []string      `json:"scopes"`
	Session   bsky.Session  `json:"session"`
	CreatedAt time.Time     `json:"created_at"`
}
