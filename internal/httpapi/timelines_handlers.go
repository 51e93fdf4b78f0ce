package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mastobridge/mastobridge/internal/apperror"
)

// defaultPublicFeedURI backs /api/v1/timelines/public: Bluesky has no
// "local/public timeline" concept distinct from a feed generator, so the
// gateway serves Bluesky's own Discover feed generator by default
// (overridable via WithPublicFeedURI).
const defaultPublicFeedURI = "at://did:plc:z72i7hdynmk6r22z27h6tvur/app.bsky.feed.generator/whats-hot"

func (s *Server) mountTimelines(r chi.Router) {
	r.Get("/api/v1/timelines/home", s.register(s.handleHomeTimeline))
	r.Get("/api/v1/timelines/public", s.register(s.handlePublicTimeline))
	r.Get("/api/v1/timelines/tag/{hashtag}", s.register(s.handleTagTimeline))
	r.Get("/api/v1/timelines/list/{id}", s.register(s.handleListTimeline))
}

func (s *Server) handleHomeTimeline(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	page := parsePageParams(r)
	result, err := a.upstream.GetTimeline(r.Context(), page.Limit, page.MaxID)
	if err != nil {
		return err
	}
	statuses, err := s.translateStatuses(r, result.Items)
	if err != nil {
		return err
	}
	setLinkHeader(w, r, result.Cursor)
	writeJSON(w, http.StatusOK, statuses)
	return nil
}

func (s *Server) handlePublicTimeline(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	page := parsePageParams(r)
	feedURI := s.publicFeedURI
	if feedURI == "" {
		feedURI = defaultPublicFeedURI
	}
	result, err := a.upstream.GetFeed(r.Context(), feedURI, page.Limit, page.MaxID)
	if err != nil {
		return err
	}
	statuses, err := s.translateStatuses(r, result.Items)
	if err != nil {
		return err
	}
	setLinkHeader(w, r, result.Cursor)
	writeJSON(w, http.StatusOK, statuses)
	return nil
}

// handleTagTimeline reports not_found: AT Protocol exposes no hashtag
// feed primitive reachable from this gateway's upstream adapter (unlike
// app.bsky.feed.getFeed, which addresses a feed generator by AT URI, not
// a free-text tag). A future feed-generator lookup keyed by hashtag could
// fill this in without changing the route.
func (s *Server) handleTagTimeline(w http.ResponseWriter, r *http.Request) error {
	return apperror.NotFound("hashtag timelines are not supported by the upstream PDS")
}

func (s *Server) handleListTimeline(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	feedURI, err := s.resolveStatusURI(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		// A list/feed-generator id the gateway itself never minted (the
		// client supplied a raw feed AT URI) is passed through verbatim.
		feedURI = chi.URLParam(r, "id")
	}
	page := parsePageParams(r)
	result, err := a.upstream.GetFeed(r.Context(), feedURI, page.Limit, page.MaxID)
	if err != nil {
		return err
	}
	statuses, err := s.translateStatuses(r, result.Items)
	if err != nil {
		return err
	}
	setLinkHeader(w, r, result.Cursor)
	writeJSON(w, http.StatusOK, statuses)
	return nil
}
