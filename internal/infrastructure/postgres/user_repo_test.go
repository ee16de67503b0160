package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ErlanBelekov/gallerio/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumnNames = []string{
	"id", "first_name", "last_name", "email", "password_hash", "role",
	"location", "bio", "profile_photo", "reset_code", "reset_code_expires_at",
	"created_at", "updated_at",
}

func strPtr(s string) *string { return &s }

// anyInsertArgs matches the eight INSERT parameters of Create.
var anyInsertArgs = []any{
	pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
	pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
}

func userRow(email, role string, resetCode *string, resetExpiry *time.Time) *pgxmock.Rows {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(userColumnNames).AddRow(
		"0b6f7d44-8a4c-4c55-9f53-4d7c1c0e6a11", "Alice", "Doe", email, "$2a$10$hash", role,
		strPtr("Lisbon"), (*string)(nil), (*string)(nil), resetCode, resetExpiry,
		now, now,
	)
}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *UserRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return mock, NewUserRepository(mock)
}

func TestUserRepository_FindByEmail(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantRole  domain.Role
		wantErr   error
	}{
		{
			name: "found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE email = \$1`).
					WithArgs("alice@example.com").
					WillReturnRows(userRow("alice@example.com", "ARTIST", nil, nil))
			},
			wantRole: domain.RoleArtist,
		},
		{
			name: "not found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE email = \$1`).
					WithArgs("alice@example.com").
					WillReturnRows(pgxmock.NewRows(userColumnNames))
			},
			wantErr: domain.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newMockRepo(t)
			tt.setupMock(mock)

			u, err := repo.FindByEmail(context.Background(), "alice@example.com")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "alice@example.com", u.Email)
				assert.Equal(t, tt.wantRole, u.Role)
				require.NotNil(t, u.Location)
				assert.Equal(t, "Lisbon", *u.Location)
				assert.Nil(t, u.Bio)
				assert.Nil(t, u.ResetCode)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestUserRepository_FindByID_InvalidUUID(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("not-a-uuid").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation})

	_, err := repo.FindByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ExistsByEmail(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("alice@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create(t *testing.T) {
	input := &domain.User{
		FirstName:    "Alice",
		LastName:     "Doe",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$hash",
		Role:         domain.RoleArtist,
		Location:     strPtr("Lisbon"),
	}

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		anyErr    bool
	}{
		{
			name: "inserted",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("Alice", "Doe", "alice@example.com", "$2a$10$hash", "ARTIST",
						input.Location, (*string)(nil), (*string)(nil)).
					WillReturnRows(userRow("alice@example.com", "ARTIST", nil, nil))
			},
		},
		{
			name: "unique violation maps to duplicate email",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs(anyInsertArgs...).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})
			},
			wantErr: domain.ErrDuplicateEmail,
		},
		{
			name: "other database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs(anyInsertArgs...).
					WillReturnError(errors.New("connection refused"))
			},
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newMockRepo(t)
			tt.setupMock(mock)

			created, err := repo.Create(context.Background(), input)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				require.Error(t, err)
				assert.NotErrorIs(t, err, domain.ErrDuplicateEmail)
				assert.Contains(t, err.Error(), "connection refused")
			default:
				require.NoError(t, err)
				assert.NotEmpty(t, created.ID)
				assert.Equal(t, domain.RoleArtist, created.Role)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestUserRepository_ConsumeResetCode(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "code matched", affected: 1},
		{name: "code mismatched or expired", affected: 0, wantErr: domain.ErrInvalidOrExpiredCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newMockRepo(t)
			mock.ExpectExec(`reset_code_expires_at > \$4`).
				WithArgs("user-1", "$2a$10$new", "123456", now).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			err := repo.ConsumeResetCode(context.Background(), "user-1", "123456", "$2a$10$new", now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_SetResetCode(t *testing.T) {
	expires := time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC)

	mock, repo := newMockRepo(t)
	mock.ExpectExec(`reset_code_expires_at = \$3`).
		WithArgs("user-1", "654321", expires).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.SetResetCode(context.Background(), "user-1", "654321", expires))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdatePassword_UnknownUser(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectExec(`UPDATE users`).
		WithArgs("user-404", "$2a$10$new").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdatePassword(context.Background(), "user-404", "$2a$10$new")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ClearExpiredResetCodes(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock, repo := newMockRepo(t)
	mock.ExpectExec(`reset_code_expires_at <= \$1`).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := repo.ClearExpiredResetCodes(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_DeleteCascade(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "deleted",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`DELETE FROM users`).WithArgs("user-1").
					WillReturnResult(pgxmock.NewResult("DELETE", 1))
			},
		},
		{
			name: "no such user",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`DELETE FROM users`).WithArgs("user-1").
					WillReturnResult(pgxmock.NewResult("DELETE", 0))
			},
			wantErr: domain.ErrUserNotFound,
		},
		{
			name: "malformed id",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`DELETE FROM users`).WithArgs("user-1").
					WillReturnError(&pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation})
			},
			wantErr: domain.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newMockRepo(t)
			tt.setupMock(mock)

			err := repo.DeleteCascade(context.Background(), "user-1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
