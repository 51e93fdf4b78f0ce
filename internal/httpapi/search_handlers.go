package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mastobridge/mastobridge/internal/mastodon"
)

// searchResult is the Mastodon v2/search response shape. Bluesky's
// upstream adapter only exposes actor search (spec.md §4.6
// search_actors); statuses and hashtags are always reported empty rather
// than simulated (spec.md Non-goals: features Bluesky does not model
// return empty/absent).
type searchResult struct {
	Accounts []mastodon.Account `json:"accounts"`
	Statuses []mastodon.Status  `json:"statuses"`
	Hashtags []mastodon.Tag     `json:"hashtags"`
}

func (s *Server) mountSearch(r chi.Router) {
	r.Get("/api/v2/search", s.register(s.handleSearch))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	q := r.URL.Query().Get("q")
	page := parsePageParams(r)

	result := searchResult{Accounts: []mastodon.Account{}, Statuses: []mastodon.Status{}, Hashtags: []mastodon.Tag{}}
	if q != "" {
		actors, err := a.upstream.SearchActors(r.Context(), q, page.Limit, page.MaxID)
		if err != nil {
			return err
		}
		accounts, err := s.translateAccounts(r, actors.Items)
		if err != nil {
			return err
		}
		result.Accounts = accounts
	}

	writeJSON(w, http.StatusOK, result)
	return nil
}
