package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/cache/drivers/memory"
	httpapi "github.com/aussiebroadwan/gatekeeper/internal/auth/http"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatekeeper/pkg/authsdk"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

const (
	testLogin    = "alice@example.com"
	testPassword = "correct horse battery staple"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "gatekeeper-http-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type testServer struct {
	client *authsdk.SDKClient
	store  *sqlite.Store
	cache  *memory.Cache
	auth   *service.AuthService
}

type serverOption func(*httpapi.Router)

func withConfirmedRegistrationRequired() serverOption {
	return func(r *httpapi.Router) { r.AuthService.NeedsConfirmedRegistration = true }
}

func withRegistrationErrorsHidden() serverOption {
	return func(r *httpapi.Router) { r.ExposeRegistrationErrors = false }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	c := memory.New()

	sealer, err := cryptox.NewSealer([]byte("router-test-key"))
	require.NoError(t, err)

	authSvc := &service.AuthService{
		Store:    st,
		Sessions: &service.SessionIssuer{Cache: c},
		Hasher:   cryptox.NewHasher(4),
	}

	router := httpapi.NewRouter("test", st, c, slogx.Discard())
	router.AuthService = authSvc
	router.TOTPService = &service.TOTPService{
		Store:  st,
		Cache:  c,
		Sealer: sealer,
		Issuer: "Gatekeeper",
	}
	router.ExposeRegistrationErrors = true
	for _, opt := range opts {
		opt(router)
	}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{
		client: authsdk.NewSDKClient(srv.URL),
		store:  st,
		cache:  c,
		auth:   authSvc,
	}
}

// login registers the default user and logs in.
func (s *testServer) login(t *testing.T) *authsdk.Session {
	t.Helper()

	require.NoError(t, s.client.Register(t.Context(), testLogin, testPassword))
	sess, err := s.client.Login(t.Context(), testLogin, testPassword)
	require.NoError(t, err)
	return sess
}

func currentCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

// wrongCode returns a 6-digit code that differs from the current one.
func wrongCode(t *testing.T, secret string) string {
	t.Helper()
	b := []byte(currentCode(t, secret))
	b[0] = '0' + (b[0]-'0'+1)%10
	return string(b)
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)
	sess := s.login(t)

	require.Len(t, sess.AccessToken(), 88)
	require.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt(), time.Minute)

	me, err := sess.Me(t.Context())
	require.NoError(t, err)
	require.Equal(t, testLogin, me.Login)
	require.False(t, me.TOTPEnabled)
	require.False(t, me.RegistrationConfirmed)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.client.Register(t.Context(), testLogin, testPassword))

	_, err := s.client.Login(t.Context(), testLogin, "wrong password")
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)

	_, err = s.client.Login(t.Context(), "nobody@example.com", testPassword)
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)
}

func TestLogin_RequiresConfirmedRegistration(t *testing.T) {
	s := newTestServer(t, withConfirmedRegistrationRequired())
	require.NoError(t, s.client.Register(t.Context(), testLogin, testPassword))

	_, err := s.client.Login(t.Context(), testLogin, testPassword)
	require.ErrorIs(t, err, authsdk.ErrRegistrationConfirmationNeeded)

	u, err := s.store.Users().GetUserByLogin(t.Context(), testLogin)
	require.NoError(t, err)
	require.NoError(t, s.auth.ConfirmRegistration(t.Context(), u.ID))

	_, err = s.client.Login(t.Context(), testLogin, testPassword)
	require.NoError(t, err)
}

func TestRegister_Duplicate(t *testing.T) {
	t.Run("upstream message exposed", func(t *testing.T) {
		s := newTestServer(t)
		require.NoError(t, s.client.Register(t.Context(), testLogin, testPassword))

		err := s.client.Register(t.Context(), testLogin, "another password")
		require.ErrorIs(t, err, authsdk.ErrRegistrationFailed)

		var apiErr *authsdk.APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		require.NotEqual(t, authsdk.ErrRegistrationFailed.Description, apiErr.Description)
	})

	t.Run("upstream message hidden", func(t *testing.T) {
		s := newTestServer(t, withRegistrationErrorsHidden())
		require.NoError(t, s.client.Register(t.Context(), testLogin, testPassword))

		err := s.client.Register(t.Context(), testLogin, "another password")

		var apiErr *authsdk.APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, authsdk.ErrRegistrationFailed.Description, apiErr.Description)
	})
}

func TestRegister_InvalidBody(t *testing.T) {
	s := newTestServer(t)

	err := s.client.Register(t.Context(), "", testPassword)
	require.ErrorIs(t, err, authsdk.ErrInvalidRequest)
}

func TestLogout_RevokesToken(t *testing.T) {
	s := newTestServer(t)
	sess := s.login(t)

	require.NoError(t, sess.Logout(t.Context()))

	_, err := sess.Me(t.Context())
	require.ErrorIs(t, err, authsdk.ErrInvalidToken)
}

func TestProtectedRoutes_RejectMissingOrUnknownToken(t *testing.T) {
	s := newTestServer(t)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, s.client.BaseURL+"/v1/auth/me", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("WWW-Authenticate"), "Bearer"))

	forged := s.client.NewSession(strings.Repeat("A", 88), time.Now().Add(time.Hour).Unix())
	_, err = forged.GenerateTOTP(t.Context())
	require.ErrorIs(t, err, authsdk.ErrInvalidToken)
}

func TestTOTPLifecycle(t *testing.T) {
	s := newTestServer(t)
	sess := s.login(t)
	ctx := t.Context()

	gen, err := sess.GenerateTOTP(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, gen.Secret)
	require.True(t, strings.HasPrefix(gen.URL, "otpauth://totp/"))
	require.True(t, strings.HasPrefix(gen.QRCode, "data:image/png;base64,"))
	require.Equal(t, testLogin, gen.Account)
	require.Equal(t, 6, gen.Digits)
	require.EqualValues(t, 30, gen.Period)

	_, err = sess.EnableTOTP(ctx, wrongCode(t, gen.Secret))
	require.ErrorIs(t, err, authsdk.ErrInvalidTOTPToken)

	codes, err := sess.EnableTOTP(ctx, currentCode(t, gen.Secret))
	require.NoError(t, err)
	require.Len(t, codes, 10)

	me, err := sess.Me(ctx)
	require.NoError(t, err)
	require.True(t, me.TOTPEnabled)

	remaining, err := sess.BackupCodesRemaining(ctx)
	require.NoError(t, err)
	require.Equal(t, 10, remaining)

	err = sess.DisableTOTPWithToken(ctx, wrongCode(t, gen.Secret))
	require.ErrorIs(t, err, authsdk.ErrInvalidTOTPToken)

	require.NoError(t, sess.DisableTOTPWithToken(ctx, currentCode(t, gen.Secret)))

	me, err = sess.Me(ctx)
	require.NoError(t, err)
	require.False(t, me.TOTPEnabled)

	err = sess.DisableTOTPWithToken(ctx, currentCode(t, gen.Secret))
	require.ErrorIs(t, err, authsdk.ErrTOTPNotEnabled)
}

func TestTOTPEnable_WithoutGenerate(t *testing.T) {
	s := newTestServer(t)
	sess := s.login(t)

	_, err := sess.EnableTOTP(t.Context(), "123456")
	require.ErrorIs(t, err, authsdk.ErrTOTPNotPending)
}

func TestTOTPDisable_WithBackupCodeIsSingleUse(t *testing.T) {
	s := newTestServer(t)
	sess := s.login(t)
	ctx := t.Context()

	gen, err := sess.GenerateTOTP(ctx)
	require.NoError(t, err)
	codes, err := sess.EnableTOTP(ctx, currentCode(t, gen.Secret))
	require.NoError(t, err)

	require.NoError(t, sess.DisableTOTPWithBackupCode(ctx, codes[0]))

	err = sess.DisableTOTPWithBackupCode(ctx, codes[0])
	require.ErrorIs(t, err, authsdk.ErrInvalidBackupCode)
}

func TestTOTPDisable_Combined(t *testing.T) {
	s := newTestServer(t)
	sess := s.login(t)
	ctx := t.Context()

	gen, err := sess.GenerateTOTP(ctx)
	require.NoError(t, err)
	codes, err := sess.EnableTOTP(ctx, currentCode(t, gen.Secret))
	require.NoError(t, err)

	err = sess.DisableTOTP(ctx, authsdk.TOTPDisableRequest{})
	require.ErrorIs(t, err, authsdk.ErrInvalidRequest)

	err = sess.DisableTOTP(ctx, authsdk.TOTPDisableRequest{Token: "123456", Code: codes[0]})
	require.ErrorIs(t, err, authsdk.ErrInvalidRequest)

	require.NoError(t, sess.DisableTOTP(ctx, authsdk.TOTPDisableRequest{Code: codes[1]}))
}

func TestRegenerateBackupCodes(t *testing.T) {
	s := newTestServer(t)
	sess := s.login(t)
	ctx := t.Context()

	gen, err := sess.GenerateTOTP(ctx)
	require.NoError(t, err)
	old, err := sess.EnableTOTP(ctx, currentCode(t, gen.Secret))
	require.NoError(t, err)

	fresh, err := sess.RegenerateBackupCodes(ctx, currentCode(t, gen.Secret))
	require.NoError(t, err)
	require.Len(t, fresh, 10)

	err = sess.DisableTOTPWithBackupCode(ctx, old[0])
	require.ErrorIs(t, err, authsdk.ErrInvalidBackupCode)

	require.NoError(t, sess.DisableTOTPWithBackupCode(ctx, fresh[0]))
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	live, err := s.client.GetLiveness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	ready, err := s.client.GetReadiness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Cache)
}

func TestReadyz_DatabaseDown(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.store.Close())

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.client.BaseURL+"/readyz", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
