package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mastobridge/mastobridge/internal/apperror"
	"github.com/mastobridge/mastobridge/internal/cache"
	"github.com/mastobridge/mastobridge/internal/mastodon"
)

func (s *Server) mountAccounts(r chi.Router) {
	r.Get("/api/v1/accounts/verify_credentials", s.register(s.handleVerifyCredentials))
	r.Get("/api/v1/accounts/lookup", s.register(s.handleAccountLookup))
	r.Get("/api/v1/accounts/search", s.register(s.handleAccountSearch))
	r.Get("/api/v1/accounts/relationships", s.register(s.handleRelationships))
	r.Get("/api/v1/accounts/{id}", s.register(s.handleAccountByID))
	r.Get("/api/v1/accounts/{id}/statuses", s.register(s.handleAccountStatuses))
	r.Get("/api/v1/accounts/{id}/followers", s.register(s.handleAccountFollowers))
	r.Get("/api/v1/accounts/{id}/following", s.register(s.handleAccountFollowing))
	r.Post("/api/v1/accounts/{id}/follow", s.register(s.handleAccountFollow))
	r.Post("/api/v1/accounts/{id}/unfollow", s.register(s.handleAccountUnfollow))
}

func (s *Server) handleVerifyCredentials(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	profile, err := a.upstream.GetProfile(r.Context(), a.token.Session.DID)
	if err != nil {
		return err
	}
	account, err := s.translator.Account(r.Context(), profile)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, account)
	return nil
}

func (s *Server) handleAccountLookup(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	acct := r.URL.Query().Get("acct")
	if acct == "" {
		return apperror.ValidationFailed("acct", "must not be empty")
	}
	profile, err := a.upstream.GetProfile(r.Context(), acct)
	if err != nil {
		return err
	}
	account, err := s.translator.Account(r.Context(), profile)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, account)
	return nil
}

func (s *Server) handleAccountByID(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	did, err := s.resolveAccountDID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	profile, err := a.upstream.GetProfile(r.Context(), did)
	if err != nil {
		return err
	}
	account, err := s.translator.Account(r.Context(), profile)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, account)
	return nil
}

func (s *Server) handleAccountSearch(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	q := r.URL.Query().Get("q")
	page := parsePageParams(r)
	result, err := a.upstream.SearchActors(r.Context(), q, page.Limit, page.MaxID)
	if err != nil {
		return err
	}
	accounts := make([]mastodon.Account, 0, len(result.Items))
	for _, p := range result.Items {
		account, err := s.translator.Account(r.Context(), p)
		if err != nil {
			return err
		}
		accounts = append(accounts, account)
	}
	setLinkHeader(w, r, result.Cursor)
	writeJSON(w, http.StatusOK, accounts)
	return nil
}

func (s *Server) handleAccountStatuses(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	did, err := s.resolveAccountDID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	page := parsePageParams(r)
	result, err := a.upstream.GetAuthorFeed(r.Context(), did, page.Limit, page.MaxID, "")
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

func (s *Server) handleAccountFollowers(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	did, err := s.resolveAccountDID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	page := parsePageParams(r)
	result, err := a.upstream.GetFollowers(r.Context(), did, page.Limit, page.MaxID)
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

func (s *Server) handleAccountFollowing(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	did, err := s.resolveAccountDID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	page := parsePageParams(r)
	result, err := a.upstream.GetFollows(r.Context(), did, page.Limit, page.MaxID)
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

func (s *Server) handleAccountFollow(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	targetDID, err := s.resolveAccountDID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	recordURI, err := a.upstream.Follow(r.Context(), targetDID)
	if err != nil {
		return err
	}
	if err := s.store.Set(r.Context(), followRecordKey(a.token.Session.DID, targetDID), []byte(recordURI), 0); err != nil {
		return apperror.Internal(err)
	}
	writeJSON(w, http.StatusOK, mastodon.Relationship{ID: chi.URLParam(r, "id"), Following: true})
	return nil
}

func (s *Server) handleAccountUnfollow(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	targetDID, err := s.resolveAccountDID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	key := followRecordKey(a.token.Session.DID, targetDID)
	recordURI, err := s.store.Get(r.Context(), key)
	if err != nil {
		if cache.IsNotFound(err) {
			writeJSON(w, http.StatusOK, mastodon.Relationship{ID: chi.URLParam(r, "id"), Following: false})
			return nil
		}
		return apperror.Internal(err)
	}
	if err := a.upstream.Unfollow(r.Context(), string(recordURI)); err != nil {
		return err
	}
	_ = s.store.Delete(r.Context(), key)
	writeJSON(w, http.StatusOK, mastodon.Relationship{ID: chi.URLParam(r, "id"), Following: false})
	return nil
}

// handleRelationships implements the relationship batch endpoint from the
// follow records this process itself created; Bluesky exposes no
// "followed_by" primitive reachable from a single batch call, so that
// field is always false (spec.md Non-goals: features Bluesky does not
// model return empty/absent).
func (s *Server) handleRelationships(w http.ResponseWriter, r *http.Request) error {
	a, r, ok := s.requireAuth(w, r)
	if !ok {
		return nil
	}
	ids := r.URL.Query()["id[]"]
	out := make([]mastodon.Relationship, 0, len(ids))
	for _, id := range ids {
		targetDID, err := s.resolveAccountDID(r.Context(), id)
		if err != nil {
			out = append(out, mastodon.Relationship{ID: id})
			continue
		}
		_, err = s.store.Get(r.Context(), followRecordKey(a.token.Session.DID, targetDID))
		out = append(out, mastodon.Relationship{ID: id, Following: err == nil})
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

