// Package httpapi implements the Mastodon-shaped HTTP surface of spec.md
// §6.1, wired atop internal/oauth, internal/atproto, internal/mastodon,
// internal/idmap, and internal/ratelimit. Route handlers follow spec.md §7's
// propagation policy: they never serialize errors themselves, returning an
// error to the AppHandler wrapper instead. writeError is the only function
// that renders a Mastodon-shaped `{"error", "error_description"}` body; it
// is called by the AppHandler wrapper, requireAuth, the rate limiter and
// the panic-recovering error normalizer.
package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mastobridge/mastobridge/internal/apperror"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 40
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// errorBody is the Mastodon/OAuth failure shape of spec.md §6.2/§7.
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// writeError renders err as the JSON body and status code spec.md §7/§6.2
// prescribe for its Kind. Any non-*apperror.Error is treated as internal.
func writeError(w http.ResponseWriter, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Internal(err)
	}

	status := apperror.HTTPStatus(appErr.Kind)
	if appErr.Kind == apperror.KindRateLimited && appErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(appErr.RetryAfter.Seconds())))
	}
	writeJSON(w, status, errorBody{
		Error:            string(appErr.Kind),
		ErrorDescription: apperror.SafeMessage(appErr),
	})
}

// pageParams is the parsed spec.md §6.1 pagination query: max_id, since_id,
// min_id, limit (default 20, cap 40).
type pageParams struct {
	MaxID   string
	SinceID string
	MinID   string
	Limit   int
}

func parsePageParams(r *http.Request) pageParams {
	q := r.URL.Query()
	limit := defaultPageLimit
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return pageParams{
		MaxID:   q.Get("max_id"),
		SinceID: q.Get("since_id"),
		MinID:   q.Get("min_id"),
		Limit:   limit,
	}
}

// setLinkHeader writes a `Link` header with `next`/`prev` relations per
// spec.md §6.1, built from the page's own path plus a cursor-bearing query
// parameter. next is set whenever nextCursor is non-empty; prev is set
// whenever the request carried a max_id (there is necessarily an earlier
// page above it).
func setLinkHeader(w http.ResponseWriter, r *http.Request, nextCursor string) {
	var links []string
	if nextCursor != "" {
		links = append(links, linkFor(r, "max_id", nextCursor, "next"))
	}
	if since := r.URL.Query().Get("max_id"); since != "" {
		links = append(links, linkFor(r, "min_id", since, "prev"))
	}
	if len(links) > 0 {
		w.Header().Set("Link", strings.Join(links, ", "))
	}
}

func linkFor(r *http.Request, param, value, rel string) string {
	u := *r.URL
	q := u.Query()
	q.Set(param, value)
	u.RawQuery = q.Encode()
	full := url.URL{Scheme: schemeOf(r), Host: r.Host, Path: u.Path, RawQuery: u.RawQuery}
	return "<" + full.String() + ">; rel=\"" + rel + "\""
}

func schemeOf(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}
