package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
)

const (
	ErrorCodeInvalidRequest                 = "invalid_request"
	ErrorCodeInvalidCredentials             = "invalid_credentials"
	ErrorCodeRegistrationConfirmationNeeded = "registration_confirmation_needed"
	ErrorCodeRegistrationFailed             = "registration_failed"
	ErrorCodeInvalidToken                   = "invalid_token"
	ErrorCodeInvalidTOTPToken               = "invalid_totp_token"
	ErrorCodeInvalidBackupCode              = "invalid_backup_code"
	ErrorCodeTOTPNotPending                 = "totp_not_pending"
	ErrorCodeTOTPNotEnabled                 = "totp_not_enabled"
	ErrorCodeServerError                    = "server_error"
)

// APIError is an error response from the service. The server uses it to write
// responses and the client returns it from failed calls, so errors.Is works
// against the predefined values on both sides.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches on Code so a decoded response compares equal to the predefined
// error with the same code.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// WriteError writes e as a JSON response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteError(w, e.StatusCode, e.Code, e.Description)
}

// WithDescription returns a copy of e with a different description.
func (e *APIError) WithDescription(desc string) *APIError {
	return &APIError{StatusCode: e.StatusCode, Code: e.Code, Description: desc}
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidCredentials never says whether the login or the password was wrong.
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid login or password",
	}

	ErrRegistrationConfirmationNeeded = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeRegistrationConfirmationNeeded,
		Description: "the registration must be confirmed before logging in",
	}

	ErrRegistrationFailed = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeRegistrationFailed,
		Description: "registration failed",
	}

	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access token is missing, invalid or expired",
	}

	ErrInvalidTOTPToken = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidTOTPToken,
		Description: "invalid TOTP token",
	}

	ErrInvalidBackupCode = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidBackupCode,
		Description: "invalid backup code",
	}

	ErrTOTPNotPending = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeTOTPNotPending,
		Description: "no pending TOTP enrollment, call generate first",
	}

	ErrTOTPNotEnabled = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeTOTPNotEnabled,
		Description: "TOTP is not enabled for this user",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
