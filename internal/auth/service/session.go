package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/cache"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
)

const (
	// SessionTokenBytes is the amount of entropy in a session token.
	SessionTokenBytes = cryptox.TokenSize512

	DefaultSessionTTL = 3600 * time.Second
)

// SessionIssuer mints opaque bearer tokens and records them in the cache,
// keyed by the token itself. A token maps to exactly one user for its whole
// lifetime; there is no update path.
type SessionIssuer struct {
	Cache cache.Cache
	TTL   time.Duration
	Now   func() time.Time
}

func (s *SessionIssuer) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultSessionTTL
	}
	return s.TTL
}

func (s *SessionIssuer) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Issue generates a token for userID and stores it with the configured TTL.
// Entropy failures are returned as-is.
func (s *SessionIssuer) Issue(ctx context.Context, userID string) (domain.Session, error) {
	token, err := cryptox.GenerateTokenStd(SessionTokenBytes)
	if err != nil {
		return domain.Session{}, fmt.Errorf("failed to generate session token: %w", err)
	}

	payload, err := json.Marshal(domain.SessionPayload{UserID: userID})
	if err != nil {
		return domain.Session{}, fmt.Errorf("failed to encode session payload: %w", err)
	}

	ttl := s.ttl()
	expiresAt := s.now().Add(ttl).Unix()

	if err := s.Cache.Set(ctx, token, string(payload), ttl); err != nil {
		return domain.Session{}, fmt.Errorf("failed to store session: %w", err)
	}

	return domain.Session{AccessToken: token, ExpiresAt: expiresAt}, nil
}

// Resolve returns the user id a token was issued for. Absent or expired
// tokens yield cache.ErrNotFound.
func (s *SessionIssuer) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", cache.ErrNotFound
	}

	raw, err := s.Cache.Get(ctx, token)
	if err != nil {
		return "", err
	}

	var payload domain.SessionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", fmt.Errorf("failed to decode session payload: %w", err)
	}
	if payload.UserID == "" {
		return "", errors.New("session payload has no user id")
	}
	return payload.UserID, nil
}

// Revoke removes the token. Revoking an unknown token is not an error.
func (s *SessionIssuer) Revoke(ctx context.Context, token string) error {
	if err := s.Cache.Delete(ctx, token); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}
