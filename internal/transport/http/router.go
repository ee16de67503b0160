package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/gallerio/internal/domain"
	"github.com/ErlanBelekov/gallerio/internal/transport/http/handler"
	"github.com/ErlanBelekov/gallerio/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(logger *slog.Logger, authHandler *handler.AuthHandler, userHandler *handler.UserHandler, authn middleware.Authenticator) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	authMW := middleware.Auth(authn, logger)

	// Public auth routes
	auth := r.Group("/api/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)
	auth.GET("/verify", authMW, authHandler.Verify)

	// Protected profile routes
	users := r.Group("/api/users", authMW, middleware.RequireRole())
	users.GET("/profile", userHandler.GetProfile)
	users.PUT("/profile", userHandler.UpdateProfile)
	users.POST("/change-password", userHandler.ChangePassword)

	// Admin routes
	admin := r.Group("/api/admin", authMW, middleware.RequireRole(domain.RoleAdmin))
	admin.DELETE("/users/:id", userHandler.Delete)

	return r
}
