package http

import (
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/pkg/authsdk"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// TOTPHandler exposes the TOTP lifecycle to authenticated callers.
type TOTPHandler struct {
	TOTPService *service.TOTPService
}

// HandleGenerate handles POST /v1/auth/totp/generate
//
//	@Summary		Start TOTP enrollment
//	@Description	Generates a new secret and provisioning QR code. Nothing is stored on the user until enable succeeds.
//	@Tags			TOTP
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.TOTPGenerateResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		500	{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/auth/totp/generate [post].
func (h *TOTPHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	u, ok := userFromContext(r.Context())
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	enrollment, err := h.TOTPService.Generate(r.Context(), u)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TOTPGenerateResponse{
		Secret:    enrollment.Secret,
		URL:       enrollment.URL,
		QRCode:    enrollment.QRCode,
		Issuer:    enrollment.Issuer,
		Account:   enrollment.Account,
		Algorithm: enrollment.Algorithm,
		Digits:    enrollment.Digits,
		Period:    enrollment.Period,
	})
}

// HandleEnable handles POST /v1/auth/totp/enable
//
//	@Summary		Enable TOTP
//	@Description	Confirms the pending enrollment with a current code. Returns backup codes, shown once.
//	@Tags			TOTP
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.TOTPTokenRequest	true	"Current TOTP code"
//	@Success		200		{object}	authsdk.BackupCodesResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid request or TOTP token"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		409		{object}	authsdk.ErrorResponse	"No pending enrollment"
//	@Router			/v1/auth/totp/enable [post].
func (h *TOTPHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	u, req, ok := decodeTOTP[authsdk.TOTPTokenRequest](w, r)
	if !ok {
		return
	}

	codes, err := h.TOTPService.Enable(r.Context(), u, req.Token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.BackupCodesResponse{BackupCodes: codes})
}

// HandleDisable handles POST /v1/auth/totp/disable
//
//	@Summary		Disable TOTP
//	@Description	Disables TOTP with either a current code ("token") or a backup code ("code"). Exactly one must be set.
//	@Tags			TOTP
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.TOTPDisableRequest	true	"Second factor"
//	@Success		200		{object}	authsdk.EmptyResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid request, TOTP token or backup code"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		409		{object}	authsdk.ErrorResponse	"TOTP not enabled"
//	@Router			/v1/auth/totp/disable [post].
func (h *TOTPHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	u, req, ok := decodeTOTP[authsdk.TOTPDisableRequest](w, r)
	if !ok {
		return
	}

	var factor service.SecondFactor
	switch {
	case req.Token != "" && req.Code == "":
		factor = service.TokenCode(req.Token)
	case req.Code != "" && req.Token == "":
		factor = service.BackupCode(req.Code)
	default:
		authsdk.ErrInvalidRequest.WithDescription("exactly one of token or code is required").WriteError(w)
		return
	}

	h.disable(w, r, u, factor)
}

// HandleDisableWithToken handles POST /v1/auth/totp/disableWithToken
//
//	@Summary		Disable TOTP with a TOTP code
//	@Tags			TOTP
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.TOTPTokenRequest	true	"Current TOTP code"
//	@Success		200		{object}	authsdk.EmptyResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid request or TOTP token"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		409		{object}	authsdk.ErrorResponse	"TOTP not enabled"
//	@Router			/v1/auth/totp/disableWithToken [post].
func (h *TOTPHandler) HandleDisableWithToken(w http.ResponseWriter, r *http.Request) {
	u, req, ok := decodeTOTP[authsdk.TOTPTokenRequest](w, r)
	if !ok {
		return
	}
	h.disable(w, r, u, service.TokenCode(req.Token))
}

// HandleDisableWithBackupCode handles POST /v1/auth/totp/disableWithBackupCode
//
//	@Summary		Disable TOTP with a backup code
//	@Description	Recovery path when the authenticator is lost. Each backup code works once.
//	@Tags			TOTP
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.TOTPBackupCodeRequest	true	"Backup code"
//	@Success		200		{object}	authsdk.EmptyResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid request or backup code"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Router			/v1/auth/totp/disableWithBackupCode [post].
func (h *TOTPHandler) HandleDisableWithBackupCode(w http.ResponseWriter, r *http.Request) {
	u, req, ok := decodeTOTP[authsdk.TOTPBackupCodeRequest](w, r)
	if !ok {
		return
	}
	h.disable(w, r, u, service.BackupCode(req.Code))
}

func (h *TOTPHandler) disable(w http.ResponseWriter, r *http.Request, u *domain.User, factor service.SecondFactor) {
	if err := h.TOTPService.Disable(r.Context(), u, factor); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.EmptyResponse{})
}

// HandleRegenerateBackupCodes handles POST /v1/auth/totp/backup-codes
//
//	@Summary		Regenerate backup codes
//	@Description	Replaces every backup code after checking a current TOTP code.
//	@Tags			TOTP
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.TOTPTokenRequest	true	"Current TOTP code"
//	@Success		200		{object}	authsdk.BackupCodesResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid request or TOTP token"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		409		{object}	authsdk.ErrorResponse	"TOTP not enabled"
//	@Router			/v1/auth/totp/backup-codes [post].
func (h *TOTPHandler) HandleRegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	u, req, ok := decodeTOTP[authsdk.TOTPTokenRequest](w, r)
	if !ok {
		return
	}

	codes, err := h.TOTPService.RegenerateBackupCodes(r.Context(), u, req.Token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.BackupCodesResponse{BackupCodes: codes})
}

// HandleBackupCodesStatus handles GET /v1/auth/totp/backup-codes
//
//	@Summary		Count remaining backup codes
//	@Tags			TOTP
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.BackupCodesStatusResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Router			/v1/auth/totp/backup-codes [get].
func (h *TOTPHandler) HandleBackupCodesStatus(w http.ResponseWriter, r *http.Request) {
	u, ok := userFromContext(r.Context())
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	n, err := h.TOTPService.BackupCodesRemaining(r.Context(), u)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.BackupCodesStatusResponse{Remaining: n})
}

// decodeTOTP loads the authenticated user and decodes the request body into T.
// On failure it has already written the response.
func decodeTOTP[T any](w http.ResponseWriter, r *http.Request) (*domain.User, T, bool) {
	var req T

	u, ok := userFromContext(r.Context())
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return nil, req, false
	}

	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		slogx.FromContext(r.Context()).Warn("failed to parse request", slog.Any("error", err))
		authsdk.ErrInvalidRequest.WriteError(w)
		return nil, req, false
	}
	return u, req, true
}
