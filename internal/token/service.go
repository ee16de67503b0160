// Package token issues and validates stateless HS256 session tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/gallerio/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const defaultTTL = 24 * time.Hour

// Config is the signing configuration, built once at startup.
type Config struct {
	Secret []byte
	TTL    time.Duration
}

// Service holds a private copy of the signing key; it is safe for concurrent use.
type Service struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

type Option func(*Service)

// WithClock overrides time.Now for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token: empty signing secret")
	}
	s := &Service{
		key: append([]byte(nil), cfg.Secret...),
		ttl: cfg.TTL,
		now: time.Now,
	}
	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token whose subject is the given email.
func (s *Service) Issue(email string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// Parse validates signature and expiry and returns the subject email.
// Every failure is reported as domain.ErrTokenInvalid.
func (s *Service) Parse(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || claims.Subject == "" {
		return "", domain.ErrTokenInvalid
	}
	return claims.Subject, nil
}
