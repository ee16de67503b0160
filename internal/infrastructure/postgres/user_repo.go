package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/gallerio/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const userColumns = `id, first_name, last_name, email, password_hash, role,
		location, bio, profile_photo, reset_code, reset_code_expires_at,
		created_at, updated_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists by email: %w", err)
	}
	return exists, nil
}

// Create relies on the users_email_key constraint, so of two concurrent
// registrations for one email exactly one insert succeeds.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (
			first_name, last_name, email, password_hash, role,
			location, bio, profile_photo
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + userColumns

	row := r.db.QueryRow(ctx, query,
		u.FirstName,
		u.LastName,
		u.Email,
		u.PasswordHash,
		string(u.Role),
		u.Location,
		u.Bio,
		u.ProfilePhoto,
	)

	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, p domain.ProfileUpdate) (*domain.User, error) {
	query := `
		UPDATE users
		SET    first_name    = COALESCE($2, first_name),
		       last_name     = COALESCE($3, last_name),
		       location      = COALESCE($4, location),
		       bio           = COALESCE($5, bio),
		       profile_photo = COALESCE($6, profile_photo),
		       updated_at    = NOW()
		WHERE  id = $1
		RETURNING ` + userColumns

	row := r.db.QueryRow(ctx, query, id, p.FirstName, p.LastName, p.Location, p.Bio, p.ProfilePhoto)
	return scanUser(row)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET    password_hash         = $2,
		       reset_code            = NULL,
		       reset_code_expires_at = NULL,
		       updated_at            = NOW()
		WHERE  id = $1`,
		id, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SetResetCode(ctx context.Context, id, code string, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET    reset_code            = $2,
		       reset_code_expires_at = $3,
		       updated_at            = NOW()
		WHERE  id = $1`,
		id, code, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("set reset code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ConsumeResetCode is a single conditional UPDATE: of two concurrent
// consumers presenting the same code, only one sees a row affected.
func (r *UserRepository) ConsumeResetCode(ctx context.Context, id, code, passwordHash string, now time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET    password_hash         = $2,
		       reset_code            = NULL,
		       reset_code_expires_at = NULL,
		       updated_at            = NOW()
		WHERE  id = $1
		  AND  reset_code = $3
		  AND  reset_code_expires_at > $4`,
		id, passwordHash, code, now,
	)
	if err != nil {
		return fmt.Errorf("consume reset code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidOrExpiredCode
	}
	return nil
}

func (r *UserRepository) ClearExpiredResetCodes(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET    reset_code            = NULL,
		       reset_code_expires_at = NULL
		WHERE  reset_code_expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("clear expired reset codes: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteCascade removes the user row. Tables that reference users are
// expected to declare ON DELETE CASCADE so their rows go with it.
func (r *UserRepository) DeleteCascade(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if isInvalidID(err) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.PasswordHash,
		&role,
		&u.Location,
		&u.Bio,
		&u.ProfilePhoto,
		&u.ResetCode,
		&u.ResetCodeExpiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Role = domain.Role(role)
	return &u, nil
}

// isInvalidID reports a malformed uuid literal, which can never match a row.
func isInvalidID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation
}
