package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ErlanBelekov/gallerio/internal/domain"
	ctxlog "github.com/ErlanBelekov/gallerio/internal/log"
	"github.com/ErlanBelekov/gallerio/internal/metrics"
	"github.com/gin-gonic/gin"
)

const (
	errUnauthorized = "Invalid or expired token"
	errForbidden    = "Access denied"
	errInternal     = "Internal server error"

	identityKey = "identity"
)

// Authenticator resolves a raw bearer token to the identity it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (*domain.User, error)
}

// Auth validates a Bearer token, loads the identity behind it and sets it
// in the gin context. Every token problem, including a subject that no
// longer exists, is a 401; a store failure is a 500.
func Auth(authn Authenticator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			metrics.ObserveAuth("guard", "missing_token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": errUnauthorized})
			return
		}

		user, err := authn.Authenticate(c.Request.Context(), rawToken)
		if err != nil {
			if errors.Is(err, domain.ErrTokenInvalid) {
				metrics.ObserveAuth("guard", "invalid_token")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": errUnauthorized})
				return
			}
			logger.ErrorContext(c.Request.Context(), "authenticate", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": errInternal})
			return
		}

		c.Set(identityKey, user)
		c.Request = c.Request.WithContext(ctxlog.WithUserID(c.Request.Context(), user.ID))
		c.Next()
	}
}

// RequireRole must run after Auth. With no roles it only requires an
// authenticated identity.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := Identity(c)

		switch err := domain.Authorize(user, roles...); {
		case err == nil:
			c.Next()
		case errors.Is(err, domain.ErrForbidden):
			metrics.ObserveAuth("guard", "forbidden")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": errForbidden})
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": errUnauthorized})
		}
	}
}

// Identity returns the user set by Auth.
func Identity(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok && user != nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
