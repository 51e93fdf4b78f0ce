package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type instanceV1 struct {
	URI              string   `json:"uri"`
	Title            string   `json:"title"`
	ShortDescription string   `json:"short_description"`
	Description      string   `json:"description"`
	Version          string   `json:"version"`
	Languages        []string `json:"languages"`
	Registrations    bool     `json:"registrations"`
	ApprovalRequired bool     `json:"approval_required"`
}

type instanceV2 struct {
	Domain      string          `json:"domain"`
	Title       string          `json:"title"`
	Version     string          `json:"version"`
	SourceURL   string          `json:"source_url"`
	Description string          `json:"description"`
	Usage       instanceUsage   `json:"usage"`
	Thumbnail   instanceThumb   `json:"thumbnail"`
	Languages   []string        `json:"languages"`
	Registrations instanceRegs  `json:"registrations"`
}

type instanceUsage struct {
	Users instanceUserCounts `json:"users"`
}

type instanceUserCounts struct {
	ActiveMonth int `json:"active_month"`
}

type instanceThumb struct {
	URL string `json:"url"`
}

type instanceRegs struct {
	Enabled bool `json:"enabled"`
}

// instanceVersion reports the fork-compatibility string Mastodon clients
// use to gate feature probing; mastobridge advertises itself plainly
// rather than spoofing a real Mastodon release.
const instanceVersion = "4.2.0 (compatible; mastobridge 0.1.0)"

func (s *Server) mountInstance(r chi.Router) {
	r.Get("/api/v1/instance", s.register(s.handleInstanceV1))
	r.Get("/api/v2/instance", s.register(s.handleInstanceV2))
}

func (s *Server) handleInstanceV1(w http.ResponseWriter, r *http.Request) error {
	writeJSON(w, http.StatusOK, instanceV1{
		URI:              s.instanceDomain,
		Title:            "mastobridge",
		ShortDescription: "A Mastodon-compatible gateway to the AT Protocol.",
		Description:      "Speaks the Mastodon HTTP API; every request is translated and proxied to a Bluesky PDS.",
		Version:          instanceVersion,
		Languages:        []string{"en"},
		Registrations:    false,
		ApprovalRequired: false,
	})
	return nil
}

func (s *Server) handleInstanceV2(w http.ResponseWriter, r *http.Request) error {
	writeJSON(w, http.StatusOK, instanceV2{
		Domain:      s.instanceDomain,
		Title:       "mastobridge",
		Version:     instanceVersion,
		SourceURL:   "",
		Description: "Speaks the Mastodon HTTP API; every request is translated and proxied to a Bluesky PDS.",
		Usage:       instanceUsage{},
		Thumbnail:   instanceThumb{},
		Languages:   []string{"en"},
		Registrations: instanceRegs{Enabled: false},
	})
	return nil
}
