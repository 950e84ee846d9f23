package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/pkg/authsdk"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// AuthHandler serves registration, login and session endpoints.
type AuthHandler struct {
	AuthService *service.AuthService

	// ExposeRegistrationErrors includes the underlying failure text in
	// registration error responses.
	ExposeRegistrationErrors bool
}

// HandleRegister handles POST /v1/auth/register
//
//	@Summary		Register a new account
//	@Description	Hashes the password and creates the user. Returns an empty object.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"Login and password"
//	@Success		201		{object}	authsdk.EmptyResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid request or registration failed"
//	@Router			/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		log.Warn("failed to parse request", slog.Any("error", err))
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.Login == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WithDescription("login and password are required").WriteError(w)
		return
	}

	err := h.AuthService.Register(ctx, domain.RegistrationData{
		Login:    req.Login,
		Password: req.Password,
	})
	if err != nil {
		var authErr *service.AuthError
		if errors.As(err, &authErr) {
			apiErr := authsdk.ErrRegistrationFailed
			if h.ExposeRegistrationErrors && authErr.UpstreamMessage != "" {
				apiErr = apiErr.WithDescription(authErr.UpstreamMessage)
			}
			apiErr.WriteError(w)
			return
		}
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.EmptyResponse{})
}

// HandleLogin handles POST /v1/auth/login
//
//	@Summary		Log in
//	@Description	Exchanges a login and password for an opaque bearer token valid for one hour.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Login and password"
//	@Success		200		{object}	authsdk.LoginResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid credentials"
//	@Failure		403		{object}	authsdk.ErrorResponse	"Registration confirmation needed"
//	@Failure		500		{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		log.Warn("failed to parse request", slog.Any("error", err))
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.Login == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WithDescription("login and password are required").WriteError(w)
		return
	}

	sess, err := h.AuthService.Authenticate(ctx, req.Login, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		AccessToken: sess.AccessToken,
		ExpiresAt:   sess.ExpiresAt,
	})
}

// HandleLogout handles POST /v1/auth/logout
//
//	@Summary		Log out
//	@Description	Revokes the bearer token used for this request.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Success		204
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := httpx.BearerToken(r)
	if err := h.AuthService.Logout(r.Context(), token); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe handles GET /v1/auth/me
//
//	@Summary		Current user
//	@Description	Returns the user the bearer token belongs to.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Router			/v1/auth/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := userFromContext(r.Context())
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.UserResponse{
		ID:                    u.ID,
		Login:                 u.Login,
		RegistrationConfirmed: u.RegistrationConfirmed(),
		TOTPEnabled:           u.TOTPEnabled(),
		CreatedAt:             u.CreatedAt.UTC().Format(time.RFC3339),
	})
}
