package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mastobridge/mastobridge/internal/apperror"
	"github.com/mastobridge/mastobridge/internal/bsky"
	"github.com/mastobridge/mastobridge/internal/cache"
	"github.com/mastobridge/mastobridge/internal/mastodon"
)

const (
	keyLikeRecord   = "like_record:"
	keyRepostRecord = "repost_record:"
)

func interactionKey(namespace, viewerDID, postURI string) string {
	return namespace + viewerDID + ":" + postURI
}

type createStatusRequest struct {
	Status      string   `json:"status"`
	InReplyToID string   `json:"in_reply_to_id"`
	MediaIDs    []string `json:"media_ids"`
	Sensitive   bool     `json:"sensitive"`
}

func (s *Server) mountStatuses(r chi.Router) {
	r.Post("/api/v1/statuses", s.register(s.handleCreateStatus))
	r.Get("/api/v1/statuses/{id}", s.register(s.handleGetStatus))
	r.Delete("/api/v1/statuses/{id}", s.register(s.handleDeleteStatus))
	r.Get("/api/v1/statuses/{id}/context", s.register(s.handleStatusContext))
	r.Post("/api/v1/statuses/{id}/favourite", s.register(s.handleFavourite))
	r.Post("/api/v1/statuses/{id}/unfavourite", s.register(s.handleUnfavourite))
	r.Post("/api/v1/statuses/{id}/reblog", s.register(s.handleReblog))
	r.Post("/api/v1/statuses/{id}/unreblog", s.register(s.handleUnreblog))
	r.Get("/api/v1/statuses/{id}/favourited_by", s.register(s.handleFavouritedBy))
	r.Get("/api/v1/statuses/{id}/reblogged_by", s.register(s.handleRebloggedBy))
}

func (s *Server) handleCreateStatus(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}

	var req createStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperror.ValidationFailed("status", "request body must be valid JSON")
	}
	if req.Status == "" && len(req.MediaIDs) == 0 {
		return apperror.ValidationFailed("status", "must not be empty")
	}

	var replyToURI, replyToCID string
	if req.InReplyToID != "" {
		uri, err := s.resolveStatusURI(r.Context(), req.InReplyToID)
		if err != nil {
			return err
		}
		replyToURI = uri
	}

	embed, err := s.embedForMediaIDs(r, req.MediaIDs)
	if err != nil {
		return err
	}

	uri, _, err := a.upstream.CreatePost(r.Context(), req.Status, replyToURI, replyToCID, nil, embed)
	if err != nil {
		return err
	}

	status, err := s.statusByURI(r, a, uri)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, status)
	return nil
}

func (s *Server) embedForMediaIDs(r *http.Request, mediaIDs []string) (*bsky.Embed, error) {
	if len(mediaIDs) == 0 {
		return nil, nil
	}
	images := make([]bsky.EmbedImage, 0, len(mediaIDs))
	for _, id := range mediaIDs {
		var rec mediaRecord
		if err := cache.GetJSON(r.Context(), s.store, keyMediaBlob+id, &rec); err != nil {
			if cache.IsNotFound(err) {
				return nil, apperror.ValidationFailed("media_ids", "unknown media id "+id)
			}
			return nil, apperror.Internal(err)
		}
		images = append(images, bsky.EmbedImage{URL: "blob:" + rec.Blob.CID, Alt: rec.Description})
	}
	return &bsky.Embed{Kind: bsky.EmbedImages, Images: images}, nil
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	uri, err := s.resolveStatusURI(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	status, err := s.statusByURI(r, a, uri)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, status)
	return nil
}

func (s *Server) handleDeleteStatus(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	uri, err := s.resolveStatusURI(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	if err := a.upstream.DeleteRecord(r.Context(), uri); err != nil {
		return err
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

func (s *Server) handleStatusContext(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	uri, err := s.resolveStatusURI(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	thread, err := a.upstream.GetPostThread(r.Context(), uri, 0)
	if err != nil {
		return err
	}
	ancestors, err := s.translateStatuses(r, thread.Ancestors)
	if err != nil {
		return err
	}
	descendants, err := s.translateStatuses(r, thread.Descendants)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mastodon.Context{Ancestors: ancestors, Descendants: descendants})
	return nil
}

func (s *Server) handleFavourite(w http.ResponseWriter, r *http.Request) error {
	return s.toggleInteraction(w, r, keyLikeRecord, func(ctx context.Context, a authContext, uri, cid string) (string, error) {
		return a.upstream.LikePost(ctx, uri, cid)
	})
}

func (s *Server) handleUnfavourite(w http.ResponseWriter, r *http.Request) error {
	return s.untoggleInteraction(w, r, keyLikeRecord, func(ctx context.Context, a authContext, recordURI string) error {
		return a.upstream.Unlike(ctx, recordURI)
	})
}

func (s *Server) handleReblog(w http.ResponseWriter, r *http.Request) error {
	return s.toggleInteraction(w, r, keyRepostRecord, func(ctx context.Context, a authContext, uri, cid string) (string, error) {
		return a.upstream.Repost(ctx, uri, cid)
	})
}

func (s *Server) handleUnreblog(w http.ResponseWriter, r *http.Request) error {
	return s.untoggleInteraction(w, r, keyRepostRecord, func(ctx context.Context, a authContext, recordURI string) error {
		return a.upstream.Unrepost(ctx, recordURI)
	})
}

// toggleInteraction and untoggleInteraction factor the identical
// favourite/reblog (and their inverses) request shape: resolve the
// status, perform the upstream write, and record/erase the resulting
// record URI so the opposite action can find it later (spec.md §4.6
// "write inverses require the record URI returned by the write").
func (s *Server) toggleInteraction(w http.ResponseWriter, r *http.Request, namespace string, write func(context.Context, authContext, string, string) (string, error)) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	ctx := r.Context()
	uri, err := s.resolveStatusURI(ctx, chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	post, err := s.fetchPost(r, a, uri)
	if err != nil {
		return err
	}
	recordURI, err := write(ctx, a, uri, post.CID)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, interactionKey(namespace, a.token.Session.DID, uri), []byte(recordURI), 0); err != nil {
		return apperror.Internal(err)
	}
	status, err := s.statusFromPost(r, post)
	if err != nil {
		return err
	}
	markInteraction(&status, namespace, true)
	writeJSON(w, http.StatusOK, status)
	return nil
}

func (s *Server) untoggleInteraction(w http.ResponseWriter, r *http.Request, namespace string, remove func(context.Context, authContext, string) error) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	ctx := r.Context()
	uri, err := s.resolveStatusURI(ctx, chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	key := interactionKey(namespace, a.token.Session.DID, uri)
	if recordURI, err := s.store.Get(ctx, key); err == nil {
		if err := remove(ctx, a, string(recordURI)); err != nil {
			return err
		}
		_ = s.store.Delete(ctx, key)
	} else if !cache.IsNotFound(err) {
		return apperror.Internal(err)
	}
	status, err := s.statusByURI(r, a, uri)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, status)
	return nil
}

func markInteraction(status *mastodon.Status, namespace string, value bool) {
	switch namespace {
	case keyLikeRecord:
		status.Favourited = value
	case keyRepostRecord:
		status.Reblogged = value
	}
}

func (s *Server) handleFavouritedBy(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	uri, err := s.resolveStatusURI(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	page := parsePageParams(r)
	result, err := a.upstream.GetLikedBy(r.Context(), uri, page.Limit, page.MaxID)
	if err != nil {
		return err
	}
	accounts, err := s.translateAccounts(r, result.Items)
	if err != nil {
		return err
	}
	setLinkHeader(w, r, result.Cursor)
	writeJSON(w, http.StatusOK, accounts)
	return nil
}

func (s *Server) handleRebloggedBy(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	uri, err := s.resolveStatusURI(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	page := parsePageParams(r)
	result, err := a.upstream.GetRepostedBy(r.Context(), uri, page.Limit, page.MaxID)
	if err != nil {
		return err
	}
	accounts, err := s.translateAccounts(r, result.Items)
	if err != nil {
		return err
	}
	setLinkHeader(w, r, result.Cursor)
	writeJSON(w, http.StatusOK, accounts)
	return nil
}

// fetchPost loads the single post at uri via a 1-deep thread lookup, the
// only upstream call that returns a post plus its CID by URI alone.
func (s *Server) fetchPost(r *http.Request, a authContext, uri string) (bsky.Post, error) {
	thread, err := a.upstream.GetPostThread(r.Context(), uri, 0)
	if err != nil {
		return bsky.Post{}, err
	}
	return thread.Post, nil
}

func (s *Server) statusByURI(r *http.Request, a authContext, uri string) (mastodon.Status, error) {
	post, err := s.fetchPost(r, a, uri)
	if err != nil {
		return mastodon.Status{}, err
	}
	return s.statusFromPost(r, post)
}

func (s *Server) statusFromPost(r *http.Request, post bsky.Post) (mastodon.Status, error) {
	return s.translator.Status(r.Context(), post)
}
