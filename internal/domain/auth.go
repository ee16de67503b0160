package domain

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrDuplicateEmail       = errors.New("email is already registered")
	ErrInvalidRole          = errors.New("invalid role")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired reset code")
	ErrCorruptCredential    = errors.New("stored credential is corrupt")
	ErrPasswordTooLong      = errors.New("password exceeds 72 bytes")
	ErrTokenInvalid         = errors.New("token is invalid or expired")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
)

// User is the identity record keyed by email. PasswordHash is never empty
// for a persisted user; ResetCode and ResetCodeExpiresAt are set or nil together.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         Role

	Location     *string
	Bio          *string
	ProfilePhoto *string

	ResetCode          *string
	ResetCodeExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPendingReset reports whether a reset code was issued and has not yet
// expired at now.
func (u *User) HasPendingReset(now time.Time) bool {
	return u.ResetCode != nil && u.ResetCodeExpiresAt != nil && u.ResetCodeExpiresAt.After(now)
}

// ProfileUpdate carries optional profile fields. Nil means "leave unchanged".
type ProfileUpdate struct {
	FirstName    *string
	LastName     *string
	Location     *string
	Bio          *string
	ProfilePhoto *string
}
