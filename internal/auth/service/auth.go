package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/cache"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/idx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

type AuthService struct {
	Store    store.Store
	Sessions *SessionIssuer
	Hasher   *cryptox.Hasher

	// NeedsConfirmedRegistration gates Login on a confirmed registration.
	NeedsConfirmedRegistration bool
}

// ValidateUser checks a login/password pair. It returns the user on match and
// (nil, nil) when the login is unknown or the password is wrong; the two
// cases do the same amount of hashing work. Only operational failures
// produce an error.
func (s *AuthService) ValidateUser(ctx context.Context, login, password string) (*domain.User, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Store.Users().GetUserByLogin(ctx, login)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.Error("failed to look up user", slog.Any("error", err))
			return nil, ErrInternal
		}

		if err := s.Hasher.VerifyDummy(ctx, password); !errors.Is(err, cryptox.ErrPasswordMismatch) {
			l.Error("failed to run dummy password verification", slog.Any("error", err))
			return nil, ErrInternal
		}
		return nil, nil
	}

	ok, err := s.VerifyPassword(ctx, password, u.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// Login issues a session for an already validated user.
func (s *AuthService) Login(ctx context.Context, u *domain.User) (domain.Session, error) {
	l := slogx.FromContext(ctx)

	if s.NeedsConfirmedRegistration && !u.RegistrationConfirmed() {
		l.Info("login refused, registration not confirmed", slog.String("user_id", u.ID))
		return domain.Session{}, ErrRegistrationConfirmationNeeded
	}

	sess, err := s.Sessions.Issue(ctx, u.ID)
	if err != nil {
		l.Error("failed to issue session", slog.Any("error", err), slog.String("user_id", u.ID))
		return domain.Session{}, ErrInternal
	}
	return sess, nil
}

// Authenticate is ValidateUser followed by Login. A failed credential check
// is reported as ErrInvalidCredentials without saying which part was wrong.
func (s *AuthService) Authenticate(ctx context.Context, login, password string) (domain.Session, error) {
	u, err := s.ValidateUser(ctx, login, password)
	if err != nil {
		return domain.Session{}, err
	}
	if u == nil {
		slogx.FromContext(ctx).Warn("invalid credentials")
		return domain.Session{}, ErrInvalidCredentials
	}
	return s.Login(ctx, u)
}

// Register hashes the password and creates the user. Every failure is
// returned as an *AuthError of kind ErrRegistrationFailed.
func (s *AuthService) Register(ctx context.Context, data domain.RegistrationData) error {
	l := slogx.FromContext(ctx)

	hash, err := s.Hasher.Hash(ctx, data.Password)
	if err != nil {
		l.Error("failed to hash password", slog.Any("error", err))
		return newAuthError(ErrRegistrationFailed, err)
	}

	u := domain.User{
		ID:           idx.New().String(),
		Login:        data.Login,
		PasswordHash: hash,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		l.Warn("failed to create user", slog.Any("error", err))
		return newAuthError(ErrRegistrationFailed, err)
	}

	l.Info("user registered", slog.String("user_id", u.ID))
	return nil
}

// ValidateAccessToken resolves a bearer token to its user. Unknown, expired
// and orphaned tokens (user deleted) all return (nil, nil).
func (s *AuthService) ValidateAccessToken(ctx context.Context, token string) (*domain.User, error) {
	l := slogx.FromContext(ctx)

	userID, err := s.Sessions.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, nil
		}
		l.Error("failed to resolve session", slog.Any("error", err))
		return nil, ErrInternal
	}

	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		l.Error("failed to load session user", slog.Any("error", err), slog.String("user_id", userID))
		return nil, ErrInternal
	}
	return &u, nil
}

// Logout revokes a session token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.Sessions.Revoke(ctx, token); err != nil {
		slogx.FromContext(ctx).Error("failed to revoke session", slog.Any("error", err))
		return ErrInternal
	}
	return nil
}

// ConfirmRegistration marks the user's registration as confirmed. How the
// confirmation reaches the service is up to the caller.
func (s *AuthService) ConfirmRegistration(ctx context.Context, userID string) error {
	if err := s.Store.Users().ConfirmRegistration(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to confirm registration: %w", err)
	}
	return nil
}

// VerifyPassword reports whether password matches encoded. A mismatch is
// (false, nil); a failing hashing engine is ErrInternal.
func (s *AuthService) VerifyPassword(ctx context.Context, password, encoded string) (bool, error) {
	err := s.Hasher.Verify(ctx, password, encoded)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, cryptox.ErrPasswordMismatch):
		return false, nil
	default:
		slogx.FromContext(ctx).Error("failed to verify password", slog.Any("error", err))
		return false, ErrInternal
	}
}

// HashPassword hashes password, reporting engine failures as ErrInternal.
func (s *AuthService) HashPassword(ctx context.Context, password string) (string, error) {
	hash, err := s.Hasher.Hash(ctx, password)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to hash password", slog.Any("error", err))
		return "", ErrInternal
	}
	return hash, nil
}
