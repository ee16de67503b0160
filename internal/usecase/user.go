package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ErlanBelekov/gallerio/internal/domain"
	"github.com/ErlanBelekov/gallerio/internal/metrics"
	"github.com/ErlanBelekov/gallerio/internal/repository"
)

// UserUsecase covers operations an authenticated identity performs on its
// own account, plus admin removal of accounts.
type UserUsecase struct {
	users  repository.UserRepository
	hasher PasswordHasher
	logger *slog.Logger
}

func NewUserUsecase(users repository.UserRepository, hasher PasswordHasher, logger *slog.Logger) *UserUsecase {
	return &UserUsecase{
		users:  users,
		hasher: hasher,
		logger: logger.With("component", "user_usecase"),
	}
}

// UpdateProfile overwrites only the fields present in p.
func (u *UserUsecase) UpdateProfile(ctx context.Context, id string, p domain.ProfileUpdate) (*domain.User, error) {
	user, err := u.users.UpdateProfile(ctx, id, p)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// ChangePassword requires the current password. A wrong current password is
// domain.ErrInvalidCredentials. Any pending reset code is discarded.
func (u *UserUsecase) ChangePassword(ctx context.Context, id, current, next string) error {
	err := u.changePassword(ctx, id, current, next)
	metrics.ObserveAuth("change_password", outcome(err))
	return err
}

func (u *UserUsecase) changePassword(ctx context.Context, id, current, next string) error {
	user, err := u.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	ok, err := u.hasher.Verify(current, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password for user %s: %w", user.ID, err)
	}
	if !ok {
		return domain.ErrInvalidCredentials
	}

	hash, err := u.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err = u.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// DeleteUser removes an account and everything it owns.
func (u *UserUsecase) DeleteUser(ctx context.Context, id string) error {
	if err := u.users.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	u.logger.InfoContext(ctx, "user deleted", "deleted_user_id", id)
	return nil
}
