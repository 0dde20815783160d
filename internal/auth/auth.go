// Package auth refreshes a Session's Google OAuth access token using its
// refresh token, the Go re-expression of this system's original
// refresh_access_token helper.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/footnote/backend/internal/apperr"
	"github.com/footnote/backend/internal/httpclient"
)

// Refresher exchanges a refresh token for a new access token.
type Refresher struct {
	http                   *httpclient.Client
	tokenURL               string
	clientID, clientSecret string
}

// NewRefresher builds a Refresher against Google's OAuth token endpoint.
func NewRefresher(tokenURL, clientID, clientSecret string) *Refresher {
	return &Refresher{
		http:         httpclient.New(httpclient.WithMaxRetries(0)),
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// Refreshed is the result of a successful token refresh.
type Refreshed struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Refresh exchanges refreshToken for a new access token. An empty
// refreshToken is a Permanent error (nothing to refresh with, matching
// the original's "no refresh token" branch); a non-2xx response from
// the provider is Auth (refresh failed, session should be treated as
// unusable) per spec.md's "AuthError ... refresh failed" taxonomy.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (*Refreshed, error) {
	if refreshToken == "" {
		return nil, apperr.Permanent("auth: no refresh token")
	}

	form := url.Values{
		"client_id":     {r.clientID},
		"client_secret": {r.clientSecret},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("auth: build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.http.Do(req)
	if resp == nil {
		return nil, apperr.WrapTransient(err, "auth: refresh request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Auth("auth: refresh failed with status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("auth: decode refresh response: %w", err)
	}

	expiresIn := tr.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}

	newRefreshToken := tr.RefreshToken
	if newRefreshToken == "" {
		newRefreshToken = refreshToken
	}

	return &Refreshed{
		AccessToken:  tr.AccessToken,
		RefreshToken: newRefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}
