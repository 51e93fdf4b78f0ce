package httpapi

import (
	"net/http"

	"github.com/mastobridge/mastobridge/internal/bsky"
	"github.com/mastobridge/mastobridge/internal/mastodon"
)

func (s *Server) translateAccounts(r *http.Request, profiles []bsky.Profile) ([]mastodon.Account, error) {
	out := make([]mastodon.Account, 0, len(profiles))
	for _, p := range profiles {
		account, err := s.translator.Account(r.Context(), p)
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, nil
}

func (s *Server) translateStatuses(r *http.Request, posts []bsky.Post) ([]mastodon.Status, error) {
	out := make([]mastodon.Status, 0, len(posts))
	for _, p := range posts {
		status, err := s.translator.Status(r.Context(), p)
		if err != nil {
			return nil, err
		}
		out = append(out, status)
	}
	return out, nil
}
