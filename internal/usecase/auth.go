package usecase

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ErlanBelekov/gallerio/internal/domain"
	"github.com/ErlanBelekov/gallerio/internal/email"
	"github.com/ErlanBelekov/gallerio/internal/metrics"
	"github.com/ErlanBelekov/gallerio/internal/repository"
)

const (
	defaultResetCodeTTL = 15 * time.Minute
	resetCodeDigits     = 6

	// dummyPassword is hashed once and compared against on logins for
	// unknown emails so they cost the same as a wrong password.
	dummyPassword = "gallerio-timing-equalizer"

	// defaultForgotPasswordFloor is the minimum time a forgot-password
	// request takes, so known and unknown emails answer alike.
	defaultForgotPasswordFloor = 300 * time.Millisecond
)

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) (bool, error)
}

type TokenService interface {
	Issue(email string) (string, error)
	Parse(raw string) (string, error)
}

type Mailer interface {
	Enqueue(ctx context.Context, msg email.Message) error
}

// AuthResult is what register and login hand back to the caller.
type AuthResult struct {
	Token   string
	ID      string
	Email   string
	Role    domain.Role
	Message string
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	// Role nil means "not supplied" and resolves to domain.DefaultRole.
	Role *string

	Location     *string
	Bio          *string
	ProfilePhoto *string
}

type AuthUsecase struct {
	users        repository.UserRepository
	hasher       PasswordHasher
	tokens       TokenService
	mailer       Mailer
	logger       *slog.Logger
	resetCodeTTL time.Duration
	forgotFloor  time.Duration
	now          func() time.Time

	dummyHash string
}

type AuthOption func(*AuthUsecase)

func WithClock(now func() time.Time) AuthOption {
	return func(u *AuthUsecase) { u.now = now }
}

func WithResetCodeTTL(ttl time.Duration) AuthOption {
	return func(u *AuthUsecase) {
		if ttl > 0 {
			u.resetCodeTTL = ttl
		}
	}
}

// WithForgotPasswordFloor sets the minimum duration of ForgotPassword.
// Zero disables the floor.
func WithForgotPasswordFloor(d time.Duration) AuthOption {
	return func(u *AuthUsecase) {
		if d >= 0 {
			u.forgotFloor = d
		}
	}
}

func NewAuthUsecase(
	users repository.UserRepository,
	hasher PasswordHasher,
	tokens TokenService,
	mailer Mailer,
	logger *slog.Logger,
	opts ...AuthOption,
) *AuthUsecase {
	u := &AuthUsecase{
		users:        users,
		hasher:       hasher,
		tokens:       tokens,
		mailer:       mailer,
		logger:       logger.With("component", "auth_usecase"),
		resetCodeTTL: defaultResetCodeTTL,
		forgotFloor:  defaultForgotPasswordFloor,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}

	hash, err := hasher.Hash(dummyPassword)
	if err != nil {
		u.logger.Error("hash timing equalizer", "error", err)
	}
	u.dummyHash = hash
	return u
}

// Register creates a new identity and issues its first session token.
// A duplicate email, whether caught by the pre-check or by the store's
// uniqueness constraint, is reported as domain.ErrDuplicateEmail.
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	res, err := u.register(ctx, in)
	metrics.ObserveAuth("register", outcome(err))
	return res, err
}

func (u *AuthUsecase) register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	exists, err := u.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, domain.ErrDuplicateEmail
	}

	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := domain.DefaultRole
	if in.Role != nil {
		if role, err = domain.ParseRole(*in.Role); err != nil {
			return nil, err
		}
	}

	user, err := u.users.Create(ctx, &domain.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Location:     in.Location,
		Bio:          in.Bio,
		ProfilePhoto: in.ProfilePhoto,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := u.tokens.Issue(user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &AuthResult{
		Token:   token,
		ID:      user.ID,
		Email:   user.Email,
		Role:    user.Role,
		Message: "User registered successfully",
	}, nil
}

// Login returns domain.ErrInvalidCredentials for both an unknown email and
// a wrong password. Any other error is internal.
func (u *AuthUsecase) Login(ctx context.Context, emailAddr, password string) (*AuthResult, error) {
	res, err := u.login(ctx, emailAddr, password)
	metrics.ObserveAuth("login", outcome(err))
	return res, err
}

func (u *AuthUsecase) login(ctx context.Context, emailAddr, password string) (*AuthResult, error) {
	user, err := u.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_, _ = u.hasher.Verify(password, u.dummyHash)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := u.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password for user %s: %w", user.ID, err)
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := u.tokens.Issue(user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &AuthResult{
		Token:   token,
		ID:      user.ID,
		Email:   user.Email,
		Role:    user.Role,
		Message: "Login successful",
	}, nil
}

// Authenticate resolves a session token to the identity it was issued for.
// A bad token and a token for a user that no longer exists are both
// domain.ErrTokenInvalid.
func (u *AuthUsecase) Authenticate(ctx context.Context, rawToken string) (*domain.User, error) {
	subject, err := u.tokens.Parse(rawToken)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	user, err := u.users.FindByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// ForgotPassword issues a fresh reset code, overwriting any earlier one,
// and queues it for delivery. Unknown emails succeed silently so the
// response never reveals whether an account exists. Mail failures are
// logged, not returned.
func (u *AuthUsecase) ForgotPassword(ctx context.Context, emailAddr string) error {
	start := time.Now()
	err := u.forgotPassword(ctx, emailAddr)
	holdUntil(ctx, start.Add(u.forgotFloor))
	metrics.ObserveAuth("forgot_password", outcome(err))
	return err
}

func (u *AuthUsecase) forgotPassword(ctx context.Context, emailAddr string) error {
	user, err := u.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			u.logger.DebugContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}

	code, err := generateResetCode()
	if err != nil {
		return fmt.Errorf("generate reset code: %w", err)
	}

	expiresAt := u.now().Add(u.resetCodeTTL)
	if err = u.users.SetResetCode(ctx, user.ID, code, expiresAt); err != nil {
		return fmt.Errorf("store reset code: %w", err)
	}

	minutes := int(u.resetCodeTTL.Minutes())
	msg := email.Message{
		To:       user.Email,
		Subject:  "Your Gallerio password reset code",
		Category: "password_reset",
		HTML: fmt.Sprintf(
			`<p>Your Gallerio password reset code is <strong>%s</strong>.</p><p>It expires in %d minutes. If you did not request a reset, ignore this email.</p>`,
			code, minutes,
		),
		Text: fmt.Sprintf(
			"Your Gallerio password reset code is %s.\n\nIt expires in %d minutes. If you did not request a reset, ignore this email.\n",
			code, minutes,
		),
	}
	if err = u.mailer.Enqueue(ctx, msg); err != nil {
		u.logger.WarnContext(ctx, "queue reset code email", "user_id", user.ID, "error", err)
	}
	return nil
}

// ResetPassword consumes a reset code. A missing account, no pending code,
// a wrong code and an expired code all yield domain.ErrInvalidOrExpiredCode.
// On success the code is cleared and cannot be used again.
func (u *AuthUsecase) ResetPassword(ctx context.Context, emailAddr, code, newPassword string) error {
	err := u.resetPassword(ctx, emailAddr, code, newPassword)
	metrics.ObserveAuth("reset_password", outcome(err))
	return err
}

func (u *AuthUsecase) resetPassword(ctx context.Context, emailAddr, code, newPassword string) error {
	user, err := u.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidOrExpiredCode
		}
		return fmt.Errorf("find user: %w", err)
	}

	now := u.now()
	if !user.HasPendingReset(now) ||
		subtle.ConstantTimeCompare([]byte(*user.ResetCode), []byte(code)) != 1 {
		return domain.ErrInvalidOrExpiredCode
	}

	hash, err := u.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err = u.users.ConsumeResetCode(ctx, user.ID, code, hash, now); err != nil {
		if errors.Is(err, domain.ErrInvalidOrExpiredCode) {
			return domain.ErrInvalidOrExpiredCode
		}
		return fmt.Errorf("consume reset code: %w", err)
	}
	return nil
}

// holdUntil blocks until deadline or until ctx is done.
func holdUntil(ctx context.Context, deadline time.Time) {
	wait := time.Until(deadline)
	if wait <= 0 {
		return
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// generateResetCode returns a uniformly random zero-padded 6-digit string.
func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", resetCodeDigits, n.Int64()), nil
}

// outcome labels an operation result for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, domain.ErrInvalidRole):
		return "invalid_role"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrInvalidOrExpiredCode):
		return "invalid_code"
	case errors.Is(err, domain.ErrPasswordTooLong):
		return "invalid_password"
	default:
		return "error"
	}
}
