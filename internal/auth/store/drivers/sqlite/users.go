package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, login, password_hash, registration_confirmed_at,
	totp_secret, totp_enabled_at, created_at, updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u         domain.User
		confirmed sql.NullTime
		secret    sql.NullString
		enabled   sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &confirmed,
		&secret, &enabled, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.RegistrationConfirmedAt = mapNullTimePtr(confirmed)
	u.TOTPSecret = mapNullStringPtr(secret)
	u.TOTPEnabledAt = mapNullTimePtr(enabled)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByLogin(ctx context.Context, login string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE login = ?`, login))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	ts := now()
	var confirmed sql.NullTime
	if u.RegistrationConfirmedAt != nil {
		confirmed = sql.NullTime{Time: u.RegistrationConfirmedAt.UTC(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, login, password_hash, registration_confirmed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Login, u.PasswordHash, confirmed, ts, ts,
	)
	return mapConstraint(err)
}

func (r *usersRepo) ConfirmRegistration(ctx context.Context, userID string) error {
	ts := now()
	return mapAffected(r.db.ExecContext(ctx, `
		UPDATE users
		SET registration_confirmed_at = COALESCE(registration_confirmed_at, ?), updated_at = ?
		WHERE id = ?`,
		ts, ts, userID,
	))
}

func (r *usersRepo) EnableTOTP(ctx context.Context, userID string, sealedSecret string) error {
	ts := now()
	return mapAffected(r.db.ExecContext(ctx, `
		UPDATE users
		SET totp_secret = ?, totp_enabled_at = ?, updated_at = ?
		WHERE id = ?`,
		sealedSecret, ts, ts, userID,
	))
}

func (r *usersRepo) DisableTOTP(ctx context.Context, userID string) error {
	return mapAffected(r.db.ExecContext(ctx, `
		UPDATE users
		SET totp_secret = NULL, totp_enabled_at = NULL, updated_at = ?
		WHERE id = ?`,
		now(), userID,
	))
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	return mapAffected(r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID))
}
