package atproto

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mastobridge/mastobridge/internal/apperror"
)

// xrpcError is the standard com.atproto error envelope:
// {"error": "ExpiredToken", "message": "..."}.
type xrpcError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// mapStatus implements spec.md §4.6's error mapping: unauthorized → 401,
// not found → 404, rate limited → 429 with retry_after, network/5xx →
// upstream_unavailable, anything else → internal.
func mapStatus(status int, retryAfterHeader string, body xrpcError) error {
	msg := body.Message
	if msg == "" {
		msg = body.Error
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperror.Unauthorized(msg)
	case http.StatusNotFound:
		return apperror.NotFound(msg)
	case http.StatusTooManyRequests:
		return apperror.RateLimited(parseRetryAfter(retryAfterHeader))
	default:
		if status >= 500 {
			return apperror.UpstreamUnavailable(errStatusf(status, msg))
		}
		return apperror.Internal(errStatusf(status, msg))
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 5 * time.Second
}

type statusError struct {
	status int
	msg    string
}

func errStatusf(status int, msg string) error {
	return &statusError{status: status, msg: msg}
}

func (e *statusError) Error() string {
	if e.msg == "" {
		return "atproto: upstream status " + strconv.Itoa(e.status)
	}
	return "atproto: upstream status " + strconv.Itoa(e.status) + ": " + e.msg
}
