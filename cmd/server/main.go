package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/gallerio/config"
	"github.com/ErlanBelekov/gallerio/internal/email"
	"github.com/ErlanBelekov/gallerio/internal/health"
	"github.com/ErlanBelekov/gallerio/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/gallerio/internal/log"
	"github.com/ErlanBelekov/gallerio/internal/metrics"
	"github.com/ErlanBelekov/gallerio/internal/password"
	"github.com/ErlanBelekov/gallerio/internal/token"
	httptransport "github.com/ErlanBelekov/gallerio/internal/transport/http"
	"github.com/ErlanBelekov/gallerio/internal/transport/http/handler"
	"github.com/ErlanBelekov/gallerio/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.MigrateOnStart {
		if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		logger.Info("migrations applied")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	tokens, err := token.NewService(cfg.Tokens())
	if err != nil {
		stop()
		log.Fatalf("token service: %v", err)
	}

	userRepo := postgres.NewUserRepository(pool)
	hasher := password.NewBcryptHasher(cfg.BcryptCost)

	mailer := email.NewDispatcher(email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger), logger)

	// Auth
	authUsecase := usecase.NewAuthUsecase(userRepo, hasher, tokens, mailer, logger,
		usecase.WithResetCodeTTL(cfg.ResetCodeTTL),
		usecase.WithForgotPasswordFloor(cfg.ForgotPasswordFloor))
	authHandler := handler.NewAuthHandler(authUsecase, logger)

	// Users
	userUsecase := usecase.NewUserUsecase(userRepo, hasher, logger)
	userHandler := handler.NewUserHandler(userUsecase, logger)

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer,
		health.Dependency{Name: "postgres", Pinger: pool})

	srv := http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httptransport.NewRouter(logger, authHandler, userHandler, authUsecase),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	// after the HTTP server so in-flight forgot-password requests can still enqueue
	if err := mailer.Close(shutdownCtx); err != nil {
		logger.Error("email dispatcher shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
