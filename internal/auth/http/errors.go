package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/pkg/authsdk"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// writeServiceError maps service errors onto API errors. Anything not listed
// is an internal error; the service has already logged the detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrRegistrationConfirmationNeeded):
		authsdk.ErrRegistrationConfirmationNeeded.WriteError(w)
	case errors.Is(err, service.ErrInvalidTOTPToken):
		authsdk.ErrInvalidTOTPToken.WriteError(w)
	case errors.Is(err, service.ErrInvalidBackupCode):
		authsdk.ErrInvalidBackupCode.WriteError(w)
	case errors.Is(err, service.ErrTOTPNotPending):
		authsdk.ErrTOTPNotPending.WriteError(w)
	case errors.Is(err, service.ErrTOTPNotEnabled):
		authsdk.ErrTOTPNotEnabled.WriteError(w)
	default:
		if !errors.Is(err, service.ErrInternal) {
			slogx.FromContext(r.Context()).Error("unmapped service error", slog.Any("error", err))
		}
		authsdk.ErrServerError.WriteError(w)
	}
}
