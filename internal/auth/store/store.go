package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite)
// implement this. Sub-repositories are exposed as methods so a transaction
// scoped Store cannot start another transaction.
type Store interface {
	Users() Users
	BackupCodes() BackupCodes

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByLogin matches login exactly (case-sensitive).
	GetUserByLogin(ctx context.Context, login string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID). A
	// duplicate login yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// ConfirmRegistration sets registration_confirmed_at if it is not set yet.
	ConfirmRegistration(ctx context.Context, userID string) error

	// EnableTOTP stores the sealed secret and sets totp_enabled_at.
	EnableTOTP(ctx context.Context, userID string, sealedSecret string) error

	// DisableTOTP clears totp_secret and totp_enabled_at.
	DisableTOTP(ctx context.Context, userID string) error

	// DeleteUser cascades to backup_codes (per schema).
	DeleteUser(ctx context.Context, userID string) error
}

type BackupCodes interface {
	// CreateBackupCode stores a backup code hash for a user.
	CreateBackupCode(ctx context.Context, userID string, codeHash string) error

	// ConsumeBackupCode deletes the code and reports whether a row was
	// removed. Two callers racing on the same code see exactly one true.
	ConsumeBackupCode(ctx context.Context, userID string, codeHash string) (bool, error)

	// DeleteAllBackupCodes removes all backup codes for a user.
	DeleteAllBackupCodes(ctx context.Context, userID string) error

	// CountUserBackupCodes returns the number of backup codes for a user.
	CountUserBackupCodes(ctx context.Context, userID string) (int, error)
}
