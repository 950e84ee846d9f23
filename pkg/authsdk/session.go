package authsdk

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrSessionExpired is returned without a round trip once the token's expiry
// has passed. Tokens cannot be refreshed; log in again.
var ErrSessionExpired = errors.New("session expired")

// Session is an authenticated session backed by one opaque bearer token.
// It is safe for concurrent use; the token never changes.
type Session struct {
	client      *SDKClient
	accessToken string
	expiresAt   time.Time
}

// AccessToken returns the bearer token.
func (s *Session) AccessToken() string { return s.accessToken }

// ExpiresAt returns when the server stops accepting the token.
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// Expired reports whether the token's expiry has passed.
func (s *Session) Expired() bool { return !time.Now().Before(s.expiresAt) }

func (s *Session) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	if s.Expired() {
		return nil, ErrSessionExpired
	}
	return s.client.doJSON(ctx, method, path, s.accessToken, body)
}

// Me returns the authenticated user.
func (s *Session) Me(ctx context.Context) (*UserResponse, error) {
	resp, err := s.do(ctx, http.MethodGet, "/v1/auth/me", nil)
	if err != nil {
		return nil, err
	}

	var out UserResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the token on the server.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodPost, "/v1/auth/logout", nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
