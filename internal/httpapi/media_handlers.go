package httpapi

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mastobridge/mastobridge/internal/apperror"
	"github.com/mastobridge/mastobridge/internal/bsky"
	"github.com/mastobridge/mastobridge/internal/cache"
	"github.com/mastobridge/mastobridge/internal/mastodon"
	"github.com/mastobridge/mastobridge/internal/snowflake"
)

const keyMediaBlob = "media_blob:"

// mediaRecord is the cached association between a gateway-local media id
// and the blob it uploaded plus the alt text a client may attach before
// the blob is embedded in a status.
type mediaRecord struct {
	Blob        bsky.BlobRef `json:"blob"`
	Description string       `json:"description"`
}

// mediaIDGenerator mints local ids for uploaded blobs. Unlike status and
// account ids, a freshly uploaded blob has no AT URI yet to derive a
// Snowflake from (spec.md §4.2's id scheme only covers DIDs and AT URIs),
// so the gateway mints its own using the same Snowflake layout.
var mediaIDGenerator = snowflake.NewGenerator(1)

func (s *Server) mountMedia(r chi.Router) {
	r.Post("/api/v1/media", s.register(s.handleMediaUpload))
	r.Get("/api/v1/media/{id}", s.register(s.handleMediaGet))
	r.Put("/api/v1/media/{id}", s.register(s.handleMediaUpdate))
}

func (s *Server) handleMediaUpload(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return apperror.ValidationFailed("file", "multipart file field is required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, 40<<20))
	if err != nil {
		return apperror.ValidationFailed("file", "could not read upload")
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	blob, err := a.upstream.UploadBlob(r.Context(), data, mimeType)
	if err != nil {
		return err
	}

	id := mediaIDGenerator.Next()
	rec := mediaRecord{Blob: blob, Description: r.FormValue("description")}
	if err := cache.SetJSON(r.Context(), s.store, keyMediaBlob+id.String(), rec, 0); err != nil {
		return apperror.Internal(err)
	}

	writeJSON(w, http.StatusOK, mediaAttachmentFor(id.String(), rec))
	return nil
}

func (s *Server) handleMediaGet(w http.ResponseWriter, r *http.Request) error {
	_, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	id := chi.URLParam(r, "id")
	var rec mediaRecord
	if err := cache.GetJSON(r.Context(), s.store, keyMediaBlob+id, &rec); err != nil {
		if cache.IsNotFound(err) {
			return apperror.NotFound("media not found")
		}
		return apperror.Internal(err)
	}
	writeJSON(w, http.StatusOK, mediaAttachmentFor(id, rec))
	return nil
}

func (s *Server) handleMediaUpdate(w http.ResponseWriter, r *http.Request) error {
	_, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	id := chi.URLParam(r, "id")
	var rec mediaRecord
	if err := cache.GetJSON(r.Context(), s.store, keyMediaBlob+id, &rec); err != nil {
		if cache.IsNotFound(err) {
			return apperror.NotFound("media not found")
		}
		return apperror.Internal(err)
	}
	if desc := r.FormValue("description"); desc != "" {
		rec.Description = desc
	}
	if err := cache.SetJSON(r.Context(), s.store, keyMediaBlob+id, rec, 0); err != nil {
		return apperror.Internal(err)
	}
	writeJSON(w, http.StatusOK, mediaAttachmentFor(id, rec))
	return nil
}

func mediaAttachmentFor(id string, rec mediaRecord) mastodon.MediaAttachment {
	return mastodon.MediaAttachment{
		ID:          id,
		Type:        mediaTypeOf(rec.Blob.MimeType),
		URL:         "blob:" + rec.Blob.CID,
		Description: rec.Description,
	}
}

func mediaTypeOf(mimeType string) string {
	switch {
	case len(mimeType) >= 5 && mimeType[:5] == "image":
		return "image"
	case len(mimeType) >= 5 && mimeType[:5] == "video":
		return "video"
	case len(mimeType) >= 5 && mimeType[:5] == "audio":
		return "audio"
	default:
		return "unknown"
	}
}
