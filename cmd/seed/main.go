// seed creates the initial ADMIN account. Running it again is a no-op.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"

	"github.com/ErlanBelekov/gallerio/internal/domain"
	"github.com/ErlanBelekov/gallerio/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/gallerio/internal/password"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type seedConfig struct {
	DatabaseURL string `env:"DATABASE_URL,required"        validate:"required"`
	Email       string `env:"SEED_ADMIN_EMAIL,required"    validate:"required,email"`
	Password    string `env:"SEED_ADMIN_PASSWORD,required" validate:"required,min=8,max=72"`
	BcryptCost  int    `env:"BCRYPT_COST"                  envDefault:"10" validate:"min=4,max=31"`
}

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	var cfg seedConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse env: %v", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	repo := postgres.NewUserRepository(pool)

	exists, err := repo.ExistsByEmail(ctx, cfg.Email)
	if err != nil {
		log.Fatalf("check admin: %v", err)
	}
	if exists {
		logger.Info("admin already present", "email", cfg.Email)
		return
	}

	hash, err := password.NewBcryptHasher(cfg.BcryptCost).Hash(cfg.Password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	admin, err := repo.Create(ctx, &domain.User{
		FirstName:    "Gallerio",
		LastName:     "Admin",
		Email:        cfg.Email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			logger.Info("admin already present", "email", cfg.Email)
			return
		}
		log.Fatalf("create admin: %v", err)
	}

	logger.Info("admin created", "id", admin.ID, "email", admin.Email)
}
