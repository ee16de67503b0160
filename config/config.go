package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/gallerio/internal/token"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	DatabaseURL    string `env:"DATABASE_URL,required" validate:"required"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	JWTSecret    string        `env:"JWT_SECRET,required" validate:"required,min=32"`
	JWTTTL       time.Duration `env:"JWT_TTL"             envDefault:"24h" validate:"min=1m"`
	ResetCodeTTL time.Duration `env:"RESET_CODE_TTL"      envDefault:"15m" validate:"min=1m,max=24h"`
	BcryptCost   int           `env:"BCRYPT_COST"         envDefault:"10"  validate:"min=4,max=31"`

	ForgotPasswordFloor time.Duration `env:"FORGOT_PASSWORD_FLOOR" envDefault:"300ms" validate:"min=0,max=5s"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`

	SweepSchedule string `env:"SWEEP_SCHEDULE" envDefault:"@every 5m" validate:"required"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Tokens returns the signing configuration for the token service. The secret
// is copied so later mutation of the config cannot affect issued tokens.
func (c *Config) Tokens() token.Config {
	return token.Config{
		Secret: []byte(c.JWTSecret),
		TTL:    c.JWTTTL,
	}
}
