package service_test

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
)

func TestValidateUser(t *testing.T) {
	f := newFixture(t)
	u := f.registerUser(t, "alice", "correct horse")

	got, err := f.auth.ValidateUser(t.Context(), "alice", "correct horse")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, u.ID, got.ID)

	got, err = f.auth.ValidateUser(t.Context(), "alice", "wrong")
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = f.auth.ValidateUser(t.Context(), "nobody", "correct horse")
	require.NoError(t, err)
	require.Nil(t, got)

	// Logins are case-sensitive.
	got, err = f.auth.ValidateUser(t.Context(), "Alice", "correct horse")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestValidateUser_UnknownLoginCostsAHash(t *testing.T) {
	f := newFixture(t)
	f.registerUser(t, "alice", "correct horse")

	measure := func(login string) time.Duration {
		var total time.Duration
		for range 3 {
			start := time.Now()
			u, err := f.auth.ValidateUser(t.Context(), login, "wrong password")
			total += time.Since(start)
			require.NoError(t, err)
			require.Nil(t, u)
		}
		return total
	}

	// Warm the dummy hash so its one-off computation is not measured.
	measure("nobody")

	wrongPassword := measure("alice")
	unknownLogin := measure("nobody")

	require.Greater(t, unknownLogin, wrongPassword/3,
		"unknown login (%s) should cost about as much as a wrong password (%s)", unknownLogin, wrongPassword)
}

func TestLogin_IssuesToken(t *testing.T) {
	f := newFixture(t)
	u := f.registerUser(t, "alice", "pw")

	sess, err := f.auth.Login(t.Context(), u)
	require.NoError(t, err)
	require.Equal(t, f.clock.Now().Add(time.Hour).Unix(), sess.ExpiresAt)

	raw, err := base64.StdEncoding.DecodeString(sess.AccessToken)
	require.NoError(t, err)
	require.Len(t, raw, 64)

	resolved, err := f.auth.ValidateAccessToken(t.Context(), sess.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	require.Equal(t, u.ID, resolved.ID)
}

func TestLogin_TokenExpires(t *testing.T) {
	f := newFixture(t)
	u := f.registerUser(t, "alice", "pw")

	sess, err := f.auth.Login(t.Context(), u)
	require.NoError(t, err)

	f.clock.Advance(time.Hour - time.Second)
	resolved, err := f.auth.ValidateAccessToken(t.Context(), sess.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, resolved)

	f.clock.Advance(time.Second)
	resolved, err = f.auth.ValidateAccessToken(t.Context(), sess.AccessToken)
	require.NoError(t, err)
	require.Nil(t, resolved)
}

func TestLogin_TwoSessionsAreIndependent(t *testing.T) {
	f := newFixture(t)
	u := f.registerUser(t, "alice", "pw")

	first, err := f.auth.Login(t.Context(), u)
	require.NoError(t, err)

	f.clock.Advance(30 * time.Minute)
	second, err := f.auth.Login(t.Context(), u)
	require.NoError(t, err)
	require.NotEqual(t, first.AccessToken, second.AccessToken)

	for _, tok := range []string{first.AccessToken, second.AccessToken} {
		resolved, err := f.auth.ValidateAccessToken(t.Context(), tok)
		require.NoError(t, err)
		require.Equal(t, u.ID, resolved.ID)
	}

	// The first expires on its own schedule; the second is still good.
	f.clock.Advance(30 * time.Minute)
	resolved, err := f.auth.ValidateAccessToken(t.Context(), first.AccessToken)
	require.NoError(t, err)
	require.Nil(t, resolved)

	resolved, err = f.auth.ValidateAccessToken(t.Context(), second.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, resolved)
}

func TestLogin_RequiresConfirmedRegistration(t *testing.T) {
	f := newFixture(t)
	f.auth.NeedsConfirmedRegistration = true
	u := f.registerUser(t, "alice", "pw")
	require.Nil(t, u.RegistrationConfirmedAt)

	_, err := f.auth.Login(t.Context(), u)
	require.ErrorIs(t, err, service.ErrRegistrationConfirmationNeeded)
	require.Zero(t, f.cache.Len(), "no session may be written")

	require.NoError(t, f.auth.ConfirmRegistration(t.Context(), u.ID))
	u = f.reload(t, u)

	sess, err := f.auth.Login(t.Context(), u)
	require.NoError(t, err)
	require.NotEmpty(t, sess.AccessToken)
	require.Equal(t, 1, f.cache.Len())
}

func TestLogin_UnconfirmedAllowedWhenFlagOff(t *testing.T) {
	f := newFixture(t)
	u := f.registerUser(t, "alice", "pw")

	_, err := f.auth.Login(t.Context(), u)
	require.NoError(t, err)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	f.registerUser(t, "alice", "pw")

	sess, err := f.auth.Authenticate(t.Context(), "alice", "pw")
	require.NoError(t, err)
	require.NotEmpty(t, sess.AccessToken)

	_, err = f.auth.Authenticate(t.Context(), "alice", "nope")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = f.auth.Authenticate(t.Context(), "bob", "pw")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestRegister_DuplicateLoginKeepsUpstreamMessage(t *testing.T) {
	f := newFixture(t)
	f.registerUser(t, "alice", "pw")

	err := f.auth.Register(t.Context(), domain.RegistrationData{Login: "alice", Password: "other"})
	require.Error(t, err)
	require.ErrorIs(t, err, service.ErrRegistrationFailed)
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	var authErr *service.AuthError
	require.True(t, errors.As(err, &authErr))
	require.Equal(t, service.ErrRegistrationFailed, authErr.Kind)
	require.Equal(t, store.ErrAlreadyExists.Error(), authErr.UpstreamMessage)
}

func TestRegister_StoresHashNotPassword(t *testing.T) {
	f := newFixture(t)
	u := f.registerUser(t, "alice", "plain-text")

	require.NotEqual(t, "plain-text", u.PasswordHash)
	ok, err := f.auth.VerifyPassword(t.Context(), "plain-text", u.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyPassword_EngineFailureIsInternal(t *testing.T) {
	f := newFixture(t)

	for _, encoded := range []string{
		"not-a-phc-string",
		"$argon2id$v=19$m=19456,t=0,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=19456,t=2,p=0$c2FsdA$aGFzaA",
	} {
		ok, err := f.auth.VerifyPassword(t.Context(), "pw", encoded)
		require.ErrorIs(t, err, service.ErrInternal, encoded)
		require.False(t, ok)
	}

	hash, err := f.auth.HashPassword(t.Context(), "pw")
	require.NoError(t, err)
	ok, err := f.auth.VerifyPassword(t.Context(), "other", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestValidateAccessToken_UnknownAndOrphaned(t *testing.T) {
	f := newFixture(t)
	u := f.registerUser(t, "alice", "pw")

	resolved, err := f.auth.ValidateAccessToken(t.Context(), "does-not-exist")
	require.NoError(t, err)
	require.Nil(t, resolved)

	resolved, err = f.auth.ValidateAccessToken(t.Context(), "")
	require.NoError(t, err)
	require.Nil(t, resolved)

	sess, err := f.auth.Login(t.Context(), u)
	require.NoError(t, err)
	require.NoError(t, f.store.Users().DeleteUser(t.Context(), u.ID))

	resolved, err = f.auth.ValidateAccessToken(t.Context(), sess.AccessToken)
	require.NoError(t, err)
	require.Nil(t, resolved)
}

func TestValidateAccessToken_CorruptPayloadIsInternal(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.cache.Set(t.Context(), "tok", "not json", time.Minute))

	_, err := f.auth.ValidateAccessToken(t.Context(), "tok")
	require.ErrorIs(t, err, service.ErrInternal)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	u := f.registerUser(t, "alice", "pw")

	sess, err := f.auth.Login(t.Context(), u)
	require.NoError(t, err)
	require.NoError(t, f.auth.Logout(t.Context(), sess.AccessToken))

	resolved, err := f.auth.ValidateAccessToken(t.Context(), sess.AccessToken)
	require.NoError(t, err)
	require.Nil(t, resolved)

	// Logging out twice is harmless.
	require.NoError(t, f.auth.Logout(t.Context(), sess.AccessToken))
}
