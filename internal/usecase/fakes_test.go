package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ErlanBelekov/gallerio/internal/domain"
	"github.com/ErlanBelekov/gallerio/internal/email"
	"github.com/ErlanBelekov/gallerio/internal/password"
	"github.com/ErlanBelekov/gallerio/internal/token"
	"github.com/ErlanBelekov/gallerio/internal/usecase"
	"golang.org/x/crypto/bcrypt"
)

// ---- in-memory user store ----

// memUsers enforces email uniqueness in Create the way the users_email_key
// constraint does, so concurrent registrations race realistically.
type memUsers struct {
	mu     sync.Mutex
	nextID int
	byID   map[string]*domain.User

	// failWith, when set, is returned by every call.
	failWith error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*domain.User{}}
}

func (m *memUsers) findByEmailLocked(email string) *domain.User {
	for _, u := range m.byID {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func clone(u *domain.User) *domain.User {
	c := *u
	return &c
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	u := m.findByEmailLocked(email)
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	return clone(u), nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(u), nil
}

func (m *memUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}
	return m.findByEmailLocked(email) != nil, nil
}

func (m *memUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	if m.findByEmailLocked(u.Email) != nil {
		return nil, domain.ErrDuplicateEmail
	}
	m.nextID++
	stored := clone(u)
	stored.ID = fmt.Sprintf("user-%d", m.nextID)
	m.byID[stored.ID] = stored
	return clone(stored), nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id string, p domain.ProfileUpdate) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Location != nil {
		u.Location = p.Location
	}
	if p.Bio != nil {
		u.Bio = p.Bio
	}
	if p.ProfilePhoto != nil {
		u.ProfilePhoto = p.ProfilePhoto
	}
	return clone(u), nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	u.ResetCode, u.ResetCodeExpiresAt = nil, nil
	return nil
}

func (m *memUsers) SetResetCode(_ context.Context, id, code string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.ResetCode, u.ResetCodeExpiresAt = &code, &expiresAt
	return nil
}

func (m *memUsers) ConsumeResetCode(_ context.Context, id, code, hash string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok || u.ResetCode == nil || *u.ResetCode != code || !u.ResetCodeExpiresAt.After(now) {
		return domain.ErrInvalidOrExpiredCode
	}
	u.PasswordHash = hash
	u.ResetCode, u.ResetCodeExpiresAt = nil, nil
	return nil
}

func (m *memUsers) ClearExpiredResetCodes(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.byID {
		if u.ResetCodeExpiresAt != nil && !u.ResetCodeExpiresAt.After(now) {
			u.ResetCode, u.ResetCodeExpiresAt = nil, nil
			n++
		}
	}
	return n, nil
}

func (m *memUsers) DeleteCascade(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *memUsers) stored(email string) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u := m.findByEmailLocked(email); u != nil {
		return clone(u)
	}
	return nil
}

// ---- mailer ----

type fakeMailer struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (f *fakeMailer) Enqueue(_ context.Context, msg email.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) messages() []email.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]email.Message(nil), f.sent...)
}

// ---- hasher ----

type countingHasher struct {
	usecase.PasswordHasher
	hashes   atomic.Int32
	verifies atomic.Int32
}

func (c *countingHasher) Hash(plaintext string) (string, error) {
	c.hashes.Add(1)
	return c.PasswordHasher.Hash(plaintext)
}

func (c *countingHasher) Verify(plaintext, hash string) (bool, error) {
	c.verifies.Add(1)
	return c.PasswordHasher.Verify(plaintext, hash)
}

// ---- clock ----

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ---- harness ----

const testJWTKey = "test-jwt-secret-at-least-32-chars!!"

var errStoreDown = errors.New("connection refused")

type harness struct {
	users  *memUsers
	mailer *fakeMailer
	clock  *fakeClock
	hasher *password.BcryptHasher
	tokens *token.Service
	auth   *usecase.AuthUsecase
	user   *usecase.UserUsecase
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	tokens, err := token.NewService(token.Config{
		Secret: []byte(testJWTKey),
		TTL:    24 * time.Hour,
	}, token.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("token service: %v", err)
	}

	h := &harness{
		users:  newMemUsers(),
		mailer: &fakeMailer{},
		clock:  clock,
		hasher: password.NewBcryptHasher(bcrypt.MinCost),
		tokens: tokens,
	}
	logger := discardLogger()
	h.auth = usecase.NewAuthUsecase(h.users, h.hasher, h.tokens, h.mailer, logger,
		usecase.WithClock(clock.Now), usecase.WithForgotPasswordFloor(0))
	h.user = usecase.NewUserUsecase(h.users, h.hasher, logger)
	return h
}

func (h *harness) register(t *testing.T, emailAddr, pw string, role *string) *usecase.AuthResult {
	t.Helper()
	res, err := h.auth.Register(context.Background(), usecase.RegisterInput{
		FirstName: "Alice",
		LastName:  "Doe",
		Email:     emailAddr,
		Password:  pw,
		Role:      role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", emailAddr, err)
	}
	return res
}

func ptr(s string) *string { return &s }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
