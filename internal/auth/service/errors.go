package service

import "errors"

var (
	// Authentication failures.
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidTOTPToken   = errors.New("invalid_totp_token")
	ErrInvalidBackupCode  = errors.New("invalid_backup_code")

	// Policy failures.
	ErrRegistrationConfirmationNeeded = errors.New("registration_confirmation_needed")
	ErrTOTPNotPending                 = errors.New("totp_not_pending")
	ErrTOTPNotEnabled                 = errors.New("totp_not_enabled")

	ErrRegistrationFailed = errors.New("registration_failed")

	// ErrInternal marks operational failures (hashing engine, cache, store,
	// entropy). They are logged where they happen and never retried.
	ErrInternal = errors.New("internal_error")
)

// AuthError is a registration failure. Kind is the generic condition;
// UpstreamMessage carries the text of the underlying failure so the caller
// decides whether to expose it.
type AuthError struct {
	Kind            error
	UpstreamMessage string

	cause error
}

func (e *AuthError) Error() string {
	if e.UpstreamMessage == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.UpstreamMessage
}

func (e *AuthError) Unwrap() []error { return []error{e.Kind, e.cause} }

func newAuthError(kind, cause error) *AuthError {
	return &AuthError{Kind: kind, UpstreamMessage: cause.Error(), cause: cause}
}
