package domain

import "time"

type User struct {
	ID                      string
	Login                   string     // unique, case-sensitive
	PasswordHash            string     // argon2 encoded
	RegistrationConfirmedAt *time.Time // nil until the registration is confirmed
	TOTPEnabledAt           *time.Time // Timestamp when TOTP was enabled (nullable)
	TOTPSecret              *string    // sealed TOTP secret (nullable)
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// TOTPEnabled reports whether the second factor is active. A secret without
// an enable timestamp is never considered enabled.
func (u *User) TOTPEnabled() bool {
	return u.TOTPEnabledAt != nil && u.TOTPSecret != nil
}

// RegistrationConfirmed reports whether the account passed confirmation.
func (u *User) RegistrationConfirmed() bool {
	return u.RegistrationConfirmedAt != nil
}

// RegistrationData is the input of a registration request.
type RegistrationData struct {
	Login    string
	Password string
}
