package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mastobridge/mastobridge/internal/apperror"
	"github.com/mastobridge/mastobridge/internal/mastodon"
)

func (s *Server) mountNotifications(r chi.Router) {
	r.Get("/api/v1/notifications", s.register(s.handleListNotifications))
	r.Get("/api/v1/notifications/{id}", s.register(s.handleGetNotification))
	r.Post("/api/v1/notifications/clear", s.register(s.handleClearNotifications))
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	page := parsePageParams(r)
	reasons := bskyReasonsFor(r.URL.Query()["types[]"])
	result, err := a.upstream.ListNotifications(r.Context(), page.Limit, page.MaxID, reasons)
	if err != nil {
		return err
	}

	notifications := make([]mastodon.Notification, 0, len(result.Items))
	for _, n := range result.Items {
		notification, err := s.translator.Notification(r.Context(), n)
		if err != nil {
			return err
		}
		if notification == nil {
			continue
		}
		notifications = append(notifications, *notification)
	}
	setLinkHeader(w, r, result.Cursor)
	writeJSON(w, http.StatusOK, notifications)
	return nil
}

// handleGetNotification finds the single notification by scanning one
// page of the list; the upstream listNotifications endpoint has no
// get-by-id counterpart.
func (s *Server) handleGetNotification(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	id := chi.URLParam(r, "id")
	result, err := a.upstream.ListNotifications(r.Context(), maxPageLimit, "", nil)
	if err != nil {
		return err
	}
	for _, n := range result.Items {
		notification, err := s.translator.Notification(r.Context(), n)
		if err != nil {
			return err
		}
		if notification != nil && notification.ID == id {
			writeJSON(w, http.StatusOK, *notification)
			return nil
		}
	}
	return apperror.NotFound("notification not found")
}

func (s *Server) handleClearNotifications(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	if err := a.upstream.MarkSeen(r.Context()); err != nil {
		return err
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

func bskyReasonsFor(mastodonTypes []string) []string {
	if len(mastodonTypes) == 0 {
		return nil
	}
	out := make([]string, 0, len(mastodonTypes))
	for _, t := range mastodonTypes {
		switch t {
		case "favourite":
			out = append(out, "like")
		case "reblog":
			out = append(out, "repost")
		case "follow":
			out = append(out, "follow")
		case "mention":
			out = append(out, "reply", "mention", "quote")
		}
	}
	return out
}
