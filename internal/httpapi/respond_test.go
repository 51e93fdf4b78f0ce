package httpapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mastobridge/mastobridge/internal/apperror"
)

func TestWriteErrorRendersKindAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, apperror.NotFound("status not found"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("content-type = %q", ct)
	}
}

func TestWriteErrorSetsRetryAfterForRateLimited(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, apperror.RateLimited(30*time.Second))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("Retry-After = %q, want 30", got)
	}
}

func TestWriteErrorTreatsPlainErrorAsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("boom"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestParsePageParamsDefaultsAndCaps(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x?max_id=5&limit=9999", nil)
	p := parsePageParams(r)
	if p.Limit != maxPageLimit {
		t.Fatalf("limit = %d, want capped at %d", p.Limit, maxPageLimit)
	}
	if p.MaxID != "5" {
		t.Fatalf("max_id = %q", p.MaxID)
	}

	r2 := httptest.NewRequest(http.MethodGet, "/x", nil)
	if got := parsePageParams(r2).Limit; got != defaultPageLimit {
		t.Fatalf("default limit = %d, want %d", got, defaultPageLimit)
	}
}

func TestSetLinkHeaderNextAndPrev(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/timelines/home?max_id=10", nil)
	rec := httptest.NewRecorder()
	setLinkHeader(rec, r, "20")

	link := rec.Header().Get("Link")
	if link == "" {
		t.Fatal("expected a Link header")
	}
	for _, part := range []string{`rel="next"`, `rel="prev"`, "max_id=20", "min_id=10"} {
		if !strings.Contains(link, part) {
			t.Fatalf("Link header missing %q: %q", part, link)
		}
	}
}

func TestSetLinkHeaderOmittedWhenNoCursor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/timelines/home", nil)
	rec := httptest.NewRecorder()
	setLinkHeader(rec, r, "")

	if rec.Header().Get("Link") != "" {
		t.Fatal("expected no Link header without a next cursor or max_id")
	}
}
