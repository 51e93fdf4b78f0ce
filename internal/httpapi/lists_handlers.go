package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mastobridge/mastobridge/internal/apperror"
	"github.com/mastobridge/mastobridge/internal/mastodon"
)

// List is the Mastodon list entity. Bluesky's closest equivalent (feed
// generators, app.bsky.graph.list) is reachable through
// /api/v1/timelines/list/:id for reading; mastobridge carries no list
// registry of its own, so these endpoints always report empty, per
// spec.md §6.1 "Lists (may return empty)".
type List struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func (s *Server) mountLists(r chi.Router) {
	r.Get("/api/v1/lists", s.register(s.handleListLists))
	r.Get("/api/v1/lists/{id}", s.register(s.handleGetList))
	r.Get("/api/v1/lists/{id}/accounts", s.register(s.handleListAccounts))
}

func (s *Server) handleListLists(w http.ResponseWriter, r *http.Request) error {
	if _, _, ok := s.requireAuth(w, r); !ok {
		return nil
	}
	writeJSON(w, http.StatusOK, []List{})
	return nil
}

func (s *Server) handleGetList(w http.ResponseWriter, r *http.Request) error {
	if _, _, ok := s.requireAuth(w, r); !ok {
		return nil
	}
	return apperror.NotFound("list not found")
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) error {
	if _, _, ok := s.requireAuth(w, r); !ok {
		return nil
	}
	writeJSON(w, http.StatusOK, []mastodon.Account{})
	return nil
}
