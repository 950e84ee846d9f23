package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/cache"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/qrx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

const (
	backupCodeCount = 10                   // Number of backup codes to generate
	backupCodeBytes = cryptox.TokenSize128 // 128-bit entropy for backup codes

	totpPeriod = 30
	totpSkew   = 1 // accept one time step either side
	totpDigits = otp.DigitsSix

	DefaultPendingTTL = 10 * time.Minute
)

var totpAlgorithm = otp.AlgorithmSHA1

// SecondFactor is the proof presented to disable TOTP: either a live
// authenticator code or a single-use backup code.
type SecondFactor struct {
	kind secondFactorKind
	code string
}

type secondFactorKind int

const (
	factorToken secondFactorKind = iota + 1
	factorBackupCode
)

// TokenCode wraps a 6-digit authenticator code.
func TokenCode(code string) SecondFactor { return SecondFactor{kind: factorToken, code: code} }

// BackupCode wraps a recovery code issued at enable time.
func BackupCode(code string) SecondFactor { return SecondFactor{kind: factorBackupCode, code: code} }

// TOTPService drives the per-user state machine
// DISABLED -> PENDING_ENROLLMENT -> ENABLED -> DISABLED.
//
// A pending secret lives only in the cache until Enable confirms it; an
// enabled secret is sealed before it is written to the store.
type TOTPService struct {
	Store  store.Store
	Cache  cache.Cache
	Sealer *cryptox.Sealer
	Issuer string // Issuer name shown in authenticator apps

	PendingTTL time.Duration
	Now        func() time.Time
}

func (s *TOTPService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *TOTPService) pendingTTL() time.Duration {
	if s.PendingTTL <= 0 {
		return DefaultPendingTTL
	}
	return s.PendingTTL
}

func pendingKey(userID string) string { return "totp:pending:" + userID }

// Generate creates a fresh secret for u and parks it as pending. It is
// allowed whether or not TOTP is already enabled; an enabled secret stays in
// force until Enable replaces it.
func (s *TOTPService) Generate(ctx context.Context, u *domain.User) (domain.TOTPEnrollment, error) {
	l := slogx.FromContext(ctx)

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: u.Login,
		Period:      totpPeriod,
		Digits:      totpDigits,
		Algorithm:   totpAlgorithm,
	})
	if err != nil {
		l.Error("failed to generate TOTP key", slog.Any("error", err))
		return domain.TOTPEnrollment{}, ErrInternal
	}

	if err := s.Cache.Set(ctx, pendingKey(u.ID), key.Secret(), s.pendingTTL()); err != nil {
		l.Error("failed to store pending TOTP secret", slog.Any("error", err))
		return domain.TOTPEnrollment{}, ErrInternal
	}

	qr, err := qrx.DataURI(key.URL(), qrx.DefaultSize)
	if err != nil {
		l.Error("failed to render TOTP QR code", slog.Any("error", err))
		return domain.TOTPEnrollment{}, ErrInternal
	}

	return domain.TOTPEnrollment{
		Secret:    key.Secret(),
		URL:       key.URL(),
		QRCode:    qr,
		Issuer:    s.Issuer,
		Account:   u.Login,
		Algorithm: totpAlgorithm.String(),
		Digits:    totpDigits.Length(),
		Period:    totpPeriod,
	}, nil
}

// Enable confirms the pending secret with a current code, persists it and
// issues a fresh set of backup codes. The plaintext codes are returned once.
// A wrong code leaves the enrollment pending.
func (s *TOTPService) Enable(ctx context.Context, u *domain.User, code string) ([]string, error) {
	l := slogx.FromContext(ctx)

	secret, err := s.Cache.Get(ctx, pendingKey(u.ID))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrTOTPNotPending
		}
		l.Error("failed to load pending TOTP secret", slog.Any("error", err))
		return nil, ErrInternal
	}

	if !s.validate(code, secret) {
		l.Warn("TOTP enable rejected, invalid code")
		return nil, ErrInvalidTOTPToken
	}

	sealed, err := s.Sealer.Seal(secret)
	if err != nil {
		l.Error("failed to seal TOTP secret", slog.Any("error", err))
		return nil, ErrInternal
	}

	codes, err := generateBackupCodes()
	if err != nil {
		l.Error("failed to generate backup codes", slog.Any("error", err))
		return nil, ErrInternal
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := replaceBackupCodes(ctx, tx, u.ID, codes); err != nil {
			return err
		}
		if err := tx.Users().EnableTOTP(ctx, u.ID, sealed); err != nil {
			return fmt.Errorf("failed to enable TOTP: %w", err)
		}
		return nil
	})
	if err != nil {
		l.Error("failed to persist TOTP enrollment", slog.Any("error", err))
		return nil, ErrInternal
	}

	if err := s.Cache.Delete(ctx, pendingKey(u.ID)); err != nil {
		// Already committed; the stale entry expires on its own.
		l.Warn("failed to drop pending TOTP secret", slog.Any("error", err))
	}

	l.Info("TOTP enabled", slog.String("user_id", u.ID))
	return codes, nil
}

// Disable turns TOTP off after checking the given second factor.
//
// With a token the user must be enabled and the code must match. With a
// backup code the code is consumed first; if nothing was consumed (already
// used, never issued, or TOTP already off) the call fails with
// ErrInvalidBackupCode and nothing changes. A retried disable therefore
// fails once the first one has gone through.
func (s *TOTPService) Disable(ctx context.Context, u *domain.User, factor SecondFactor) error {
	switch factor.kind {
	case factorToken:
		return s.disableWithToken(ctx, u, factor.code)
	case factorBackupCode:
		return s.disableWithBackupCode(ctx, u, factor.code)
	default:
		return errors.New("unknown second factor")
	}
}

// DisableWithToken is Disable(ctx, u, TokenCode(code)).
func (s *TOTPService) DisableWithToken(ctx context.Context, u *domain.User, code string) error {
	return s.Disable(ctx, u, TokenCode(code))
}

// DisableWithBackupCode is Disable(ctx, u, BackupCode(code)).
func (s *TOTPService) DisableWithBackupCode(ctx context.Context, u *domain.User, code string) error {
	return s.Disable(ctx, u, BackupCode(code))
}

func (s *TOTPService) disableWithToken(ctx context.Context, u *domain.User, code string) error {
	l := slogx.FromContext(ctx)

	if err := s.verifyEnabledCode(ctx, u.ID, code); err != nil {
		return err
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		return clearTOTP(ctx, tx, u.ID)
	})
	if err != nil {
		l.Error("failed to disable TOTP", slog.Any("error", err))
		return ErrInternal
	}

	l.Info("TOTP disabled", slog.String("user_id", u.ID), slog.String("method", "token"))
	return nil
}

var errBackupCodeNotConsumed = errors.New("backup code not consumed")

func (s *TOTPService) disableWithBackupCode(ctx context.Context, u *domain.User, code string) error {
	l := slogx.FromContext(ctx)
	if code == "" {
		return ErrInvalidBackupCode
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		ok, err := tx.BackupCodes().ConsumeBackupCode(ctx, u.ID, cryptox.FingerprintToken(code))
		if err != nil {
			return fmt.Errorf("failed to consume backup code: %w", err)
		}
		if !ok {
			return errBackupCodeNotConsumed
		}
		return clearTOTP(ctx, tx, u.ID)
	})
	if errors.Is(err, errBackupCodeNotConsumed) {
		l.Warn("TOTP disable rejected, invalid backup code")
		return ErrInvalidBackupCode
	}
	if err != nil {
		l.Error("failed to disable TOTP", slog.Any("error", err))
		return ErrInternal
	}

	l.Info("TOTP disabled", slog.String("user_id", u.ID), slog.String("method", "backup_code"))
	return nil
}

// RegenerateBackupCodes replaces all backup codes after checking a current
// TOTP code.
func (s *TOTPService) RegenerateBackupCodes(ctx context.Context, u *domain.User, code string) ([]string, error) {
	l := slogx.FromContext(ctx)

	if err := s.verifyEnabledCode(ctx, u.ID, code); err != nil {
		return nil, err
	}

	codes, err := generateBackupCodes()
	if err != nil {
		l.Error("failed to generate backup codes", slog.Any("error", err))
		return nil, ErrInternal
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return replaceBackupCodes(ctx, tx, u.ID, codes)
	})
	if err != nil {
		l.Error("failed to replace backup codes", slog.Any("error", err))
		return nil, ErrInternal
	}
	return codes, nil
}

// BackupCodesRemaining returns how many unused backup codes u has. Zero with
// TOTP enabled is a valid, degraded state.
func (s *TOTPService) BackupCodesRemaining(ctx context.Context, u *domain.User) (int, error) {
	n, err := s.Store.BackupCodes().CountUserBackupCodes(ctx, u.ID)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to count backup codes", slog.Any("error", err))
		return 0, ErrInternal
	}
	return n, nil
}

// verifyEnabledCode reloads the user so the check runs against the stored
// state rather than whatever the caller resolved earlier.
func (s *TOTPService) verifyEnabledCode(ctx context.Context, userID, code string) error {
	l := slogx.FromContext(ctx)

	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTOTPNotEnabled
		}
		l.Error("failed to load user", slog.Any("error", err))
		return ErrInternal
	}
	if !u.TOTPEnabled() {
		return ErrTOTPNotEnabled
	}

	secret, err := s.Sealer.Open(*u.TOTPSecret)
	if err != nil {
		l.Error("failed to open TOTP secret", slog.Any("error", err))
		return ErrInternal
	}

	if !s.validate(code, secret) {
		l.Warn("TOTP code rejected")
		return ErrInvalidTOTPToken
	}
	return nil
}

func (s *TOTPService) validate(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, s.now().UTC(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    totpDigits,
		Algorithm: totpAlgorithm,
	})
	return err == nil && ok
}

func generateBackupCodes() ([]string, error) {
	codes := make([]string, backupCodeCount)
	for i := range backupCodeCount {
		code, err := cryptox.GenerateToken(backupCodeBytes)
		if err != nil {
			return nil, err
		}
		codes[i] = code
	}
	return codes, nil
}

func replaceBackupCodes(ctx context.Context, tx store.Tx, userID string, codes []string) error {
	if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete old backup codes: %w", err)
	}
	for _, code := range codes {
		if err := tx.BackupCodes().CreateBackupCode(ctx, userID, cryptox.FingerprintToken(code)); err != nil {
			return fmt.Errorf("failed to store backup code: %w", err)
		}
	}
	return nil
}

func clearTOTP(ctx context.Context, tx store.Tx, userID string) error {
	if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete backup codes: %w", err)
	}
	if err := tx.Users().DisableTOTP(ctx, userID); err != nil {
		return fmt.Errorf("failed to disable TOTP: %w", err)
	}
	return nil
}
