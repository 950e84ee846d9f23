package authsdk

// ============================================================================
// Error Types
// ============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is the machine-readable error code (e.g., "invalid_credentials")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Credential Types
// ============================================================================

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// LoginRequest exchanges credentials for a session token.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// LoginResponse carries the opaque bearer token.
type LoginResponse struct {
	// AccessToken is a base64 encoded opaque token, presented as
	// "Authorization: Bearer <token>"
	AccessToken string `json:"access_token"`

	// ExpiresAt is the Unix time (seconds) after which the token is rejected
	ExpiresAt int64 `json:"expires_at"`
}

// EmptyResponse is returned by operations that have nothing to report.
type EmptyResponse struct{}

// ============================================================================
// User Types
// ============================================================================

// UserResponse describes the authenticated user.
type UserResponse struct {
	ID                    string `json:"id"`
	Login                 string `json:"login"`
	RegistrationConfirmed bool   `json:"registration_confirmed"`
	TOTPEnabled           bool   `json:"totp_enabled"`
	CreatedAt             string `json:"created_at"` // RFC 3339
}

// ============================================================================
// TOTP Types
// ============================================================================

// TOTPGenerateResponse is the provisioning payload returned once by generate.
type TOTPGenerateResponse struct {
	// Secret is the base32 shared secret for manual entry
	Secret string `json:"secret"`

	// URL is the otpauth:// provisioning URI
	URL string `json:"url"`

	// QRCode is URL rendered as a data:image/png;base64 URI
	QRCode string `json:"qr_code"`

	Issuer    string `json:"issuer"`
	Account   string `json:"account"`
	Algorithm string `json:"algorithm"`
	Digits    int    `json:"digits"`
	Period    uint   `json:"period"`
}

// TOTPTokenRequest carries a 6-digit authenticator code.
type TOTPTokenRequest struct {
	Token string `json:"token"`
}

// TOTPBackupCodeRequest carries a single-use backup code.
type TOTPBackupCodeRequest struct {
	Code string `json:"code"`
}

// TOTPDisableRequest carries exactly one of Token or Code.
type TOTPDisableRequest struct {
	Token string `json:"token,omitempty"`
	Code  string `json:"code,omitempty"`
}

// BackupCodesResponse lists freshly issued backup codes. They are shown once.
type BackupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

// BackupCodesStatusResponse reports how many backup codes are left.
type BackupCodesStatusResponse struct {
	Remaining int `json:"remaining"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each dependency as "ok" or "error: <reason>".
type HealthChecks struct {
	Database string `json:"database"`
	Cache    string `json:"cache"`
}
