package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
)

// argon2idParams follows OWASP's minimum Argon2id recommendation, matching
// the parameters the rest of the corpus uses for secret hashing.
var argon2idParams = &argon2id.Params{
	Memory:      47 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// newClientID mints a client_id with comfortably more than the spec's
// 32-bit entropy floor (spec.md §4.5).
func newClientID() string {
	return uuid.NewString()
}

// newRandomToken returns a URL-safe base64 encoding of n random bytes.
func newRandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("oauth: read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// newClientSecret mints a >=128-bit client_secret (spec.md §4.5).
func newClientSecret() (string, error) {
	return newRandomToken(16)
}

// newAuthorizationCode mints a 256-bit authorization code.
func newAuthorizationCode() (string, error) {
	return newRandomToken(32)
}

// newBearerToken mints a 256-bit opaque bearer token.
func newBearerToken() (string, error) {
	return newRandomToken(32)
}

func hashSecret(secret string) (string, error) {
	return argon2id.CreateHash(secret, argon2idParams)
}

func verifySecret(secret, hash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(secret, hash)
}
