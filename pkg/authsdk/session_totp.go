package authsdk

import (
	"context"
	"net/http"
)

// GenerateTOTP starts (or restarts) TOTP enrollment.
func (s *Session) GenerateTOTP(ctx context.Context) (*TOTPGenerateResponse, error) {
	resp, err := s.do(ctx, http.MethodPost, "/v1/auth/totp/generate", nil)
	if err != nil {
		return nil, err
	}

	var out TOTPGenerateResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnableTOTP confirms the pending enrollment and returns the backup codes.
func (s *Session) EnableTOTP(ctx context.Context, token string) ([]string, error) {
	return s.backupCodes(ctx, "/v1/auth/totp/enable", TOTPTokenRequest{Token: token})
}

// DisableTOTPWithToken turns TOTP off using an authenticator code.
func (s *Session) DisableTOTPWithToken(ctx context.Context, token string) error {
	return s.empty(ctx, "/v1/auth/totp/disableWithToken", TOTPTokenRequest{Token: token})
}

// DisableTOTPWithBackupCode turns TOTP off using a backup code.
func (s *Session) DisableTOTPWithBackupCode(ctx context.Context, code string) error {
	return s.empty(ctx, "/v1/auth/totp/disableWithBackupCode", TOTPBackupCodeRequest{Code: code})
}

// DisableTOTP turns TOTP off with whichever factor req carries.
func (s *Session) DisableTOTP(ctx context.Context, req TOTPDisableRequest) error {
	return s.empty(ctx, "/v1/auth/totp/disable", req)
}

// RegenerateBackupCodes replaces all backup codes.
func (s *Session) RegenerateBackupCodes(ctx context.Context, token string) ([]string, error) {
	return s.backupCodes(ctx, "/v1/auth/totp/backup-codes", TOTPTokenRequest{Token: token})
}

// BackupCodesRemaining reports how many backup codes are unused.
func (s *Session) BackupCodesRemaining(ctx context.Context) (int, error) {
	resp, err := s.do(ctx, http.MethodGet, "/v1/auth/totp/backup-codes", nil)
	if err != nil {
		return 0, err
	}

	var out BackupCodesStatusResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return 0, err
	}
	return out.Remaining, nil
}

func (s *Session) backupCodes(ctx context.Context, path string, body any) ([]string, error) {
	resp, err := s.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	var out BackupCodesResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.BackupCodes, nil
}

func (s *Session) empty(ctx context.Context, path string, body any) error {
	resp, err := s.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return decodeJSON(resp, &EmptyResponse{}, http.StatusOK)
}
