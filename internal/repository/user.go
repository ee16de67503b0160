package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/gallerio/internal/domain"
)

// UserRepository is the credential store. Email uniqueness must be enforced
// atomically by the store: Create returns domain.ErrDuplicateEmail on conflict.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error)

	// UpdatePassword replaces the hash and clears any pending reset code.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// SetResetCode overwrites any previous code (last write wins).
	SetResetCode(ctx context.Context, id, code string, expiresAt time.Time) error
	// ConsumeResetCode swaps in passwordHash and clears the code only if code
	// still matches and has not expired at now; otherwise domain.ErrInvalidOrExpiredCode.
	ConsumeResetCode(ctx context.Context, id, code, passwordHash string, now time.Time) error
	// ClearExpiredResetCodes nulls codes that expired before now and reports how many.
	ClearExpiredResetCodes(ctx context.Context, now time.Time) (int64, error)

	DeleteCascade(ctx context.Context, id string) error
}
