package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mastobridge/mastobridge/internal/apperror"
)

func (s *Server) mountOAuth(r chi.Router) {
	r.Post("/api/v1/apps", s.register(s.handleRegisterApp))
	r.Get("/oauth/authorize", s.register(s.handleAuthorize))
	r.Post("/oauth/authorize", s.register(s.handleAuthorize))
	r.Post("/oauth/token", s.register(s.handleToken))
	r.Post("/oauth/revoke", s.register(s.handleRevoke))
}

// formOrJSONValues reads the request body as either url-encoded/multipart
// form values or a flat JSON object, whichever Content-Type indicates.
// Mastodon clients are known to send both for these exact endpoints.
func formOrJSONValues(r *http.Request) (map[string]string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, err
		}
		out := make(map[string]string, len(raw))
		for k, v := range raw {
			if str, ok := v.(string); ok {
				out[k] = str
			}
		}
		return out, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(r.Form))
	for k := range r.Form {
		out[k] = r.Form.Get(k)
	}
	return out, nil
}

type registerAppResponse struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Name         string `json:"name"`
	RedirectURI  string `json:"redirect_uri"`
	Website      string `json:"website,omitempty"`
}

func (s *Server) handleRegisterApp(w http.ResponseWriter, r *http.Request) error {
	values, err := formOrJSONValues(r)
	if err != nil {
		return apperror.ValidationFailed("client_name", "could not parse request body")
	}

	app, secret, err := s.oauth.RegisterApplication(r.Context(), values["client_name"], values["redirect_uris"], values["website"])
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, registerAppResponse{
		ClientID:     app.ClientID,
		ClientSecret: secret,
		Name:         app.Name,
		RedirectURI:  app.RedirectURI,
		Website:      app.Website,
	})
	return nil
}

// handleAuthorize implements the authorization-code leg: it mints a code
// for the given client_id/redirect_uri and redirects the user agent back
// to redirect_uri?code=..., the standard OAuth 2.0 authorization response
// (spec.md §4.5 generate_authorization_code takes no user credentials —
// those are supplied at the token exchange in handleToken).
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) error {
	clientID := r.FormValue("client_id")
	redirectURI := r.FormValue("redirect_uri")
	if clientID == "" || redirectURI == "" {
		return apperror.ValidationFailed("client_id", "client_id and redirect_uri are required")
	}

	code, err := s.oauth.GenerateAuthorizationCode(r.Context(), clientID, redirectURI)
	if err != nil {
		return err
	}

	http.Redirect(w, r, redirectURI+"?code="+code, http.StatusFound)
	return nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	CreatedAt   int64  `json:"created_at"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) error {
	values, err := formOrJSONValues(r)
	if err != nil {
		return apperror.InvalidGrant("could not parse request body")
	}

	scope := values["scope"]
	var (
		accessToken string
		createdAt   int64
	)
	switch values["grant_type"] {
	case "authorization_code":
		token, err := s.oauth.ExchangeAuthorizationCode(r.Context(), values["code"], values["client_id"], values["client_secret"], values["redirect_uri"], values["username"], values["password"], scope)
		if err != nil {
			return err
		}
		accessToken, createdAt = token.Token, token.CreatedAt.Unix()
	case "password":
		token, err := s.oauth.PasswordGrant(r.Context(), values["client_id"], values["client_secret"], values["username"], values["password"], scope)
		if err != nil {
			return err
		}
		accessToken, createdAt = token.Token, token.CreatedAt.Unix()
	default:
		return apperror.InvalidGrant("unsupported grant_type")
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		Scope:       scope,
		CreatedAt:   createdAt,
	})
	return nil
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) error {
	bearer := r.FormValue("token")
	if bearer == "" {
		bearer = bearerToken(r)
	}
	if bearer == "" {
		w.WriteHeader(http.StatusOK)
		return nil
	}
	if err := s.oauth.RevokeToken(r.Context(), bearer); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{})
	return nil
}
