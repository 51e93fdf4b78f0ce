package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:            404,
		KindUnauthorized:        401,
		KindForbidden:           403,
		KindValidationFailed:    422,
		KindRateLimited:         429,
		KindUpstreamUnavailable: 502,
		KindInternal:            500,
		KindInvalidGrant:        400,
		KindInvalidClient:       400,
		KindInvalidScope:        400,
	}
	for kind, want := range cases {
		if got := HTTPStatus(kind); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", kind, got, want)
		}
	}
}

func TestIsKindMatchViaErrorsIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFound("status 123"))
	if !errors.Is(err, NotFound("")) {
		t.Fatal("errors.Is should match on Kind regardless of Message")
	}
	if errors.Is(err, Unauthorized("")) {
		t.Fatal("errors.Is should not match a different Kind")
	}
}

func TestInternalHidesUnderlyingCause(t *testing.T) {
	cause := errors.New("leaked database password in this string")
	err := Internal(cause)
	if SafeMessage(err) == cause.Error() {
		t.Fatal("SafeMessage must not leak the wrapped cause")
	}
	if !errors.Is(err, cause) {
		t.Fatal("Unwrap chain should still expose the cause for logging")
	}
}

func TestAsExtractsTypedError(t *testing.T) {
	original := ValidationFailed("status", "must not be empty")
	wrapped := fmt.Errorf("handler: %w", original)
	e, ok := As(wrapped)
	if !ok {
		t.Fatal("As should find the wrapped *Error")
	}
	if e.Field != "status" {
		t.Fatalf("Field = %q, want status", e.Field)
	}
}
