package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
)

// googleTokenURL is the default endpoint for refreshing authorized
// user credentials; token files may override it via token_uri.
const googleTokenURL = "https://oauth2.googleapis.com/token"

// TokenSource supplies the bearer token for Drive API calls. Refreshing
// expired credentials is the source's responsibility; callers only ever
// see the current token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type staticSource string

// Static returns a source that always yields the given bearer token.
func Static(token string) TokenSource {
	return staticSource(token)
}

func (s staticSource) Token(context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("empty bearer token")
	}
	return string(s), nil
}

// authorizedUser mirrors the JSON written by Google's OAuth2 installed
// app flow (token.json).
type authorizedUser struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
	Token        string `json:"token"`
	TokenURI     string `json:"token_uri"`
	Expiry       string `json:"expiry"`
}

type oauthSource struct {
	ts oauth2.TokenSource
}

func (s *oauthSource) Token(ctx context.Context) (string, error) {
	tok, err := s.ts.Token()
	if err != nil {
		return "", fmt.Errorf("refreshing credentials: %w", err)
	}
	return tok.AccessToken, nil
}

// FromAuthorizedUser builds a TokenSource from authorized-user JSON.
// With a refresh token present the source refreshes automatically;
// otherwise the access token is used as-is until it expires.
func FromAuthorizedUser(data []byte) (TokenSource, error) {
	var u authorizedUser
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("parsing token JSON: %w", err)
	}

	if u.RefreshToken == "" {
		if u.Token == "" {
			return nil, fmt.Errorf("token JSON carries neither an access token nor a refresh token")
		}
		return Static(u.Token), nil
	}

	tokenURL := u.TokenURI
	if tokenURL == "" {
		tokenURL = googleTokenURL
	}
	cfg := &oauth2.Config{
		ClientID:     u.ClientID,
		ClientSecret: u.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}

	seed := &oauth2.Token{
		AccessToken:  u.Token,
		RefreshToken: u.RefreshToken,
	}
	// Expiry formats vary between writers; an unparsable value just
	// means the seed token looks expired and gets refreshed up front.
	if u.Expiry != "" {
		if exp, err := time.Parse(time.RFC3339, u.Expiry); err == nil {
			seed.Expiry = exp
		}
	}

	return &oauthSource{ts: cfg.TokenSource(context.Background(), seed)}, nil
}

// FromTokenFile loads authorized-user JSON from disk.
func FromTokenFile(path string) (TokenSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	return FromAuthorizedUser(data)
}
