package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/gallerio/internal/domain"
	"github.com/ErlanBelekov/gallerio/internal/transport/http/middleware"
	"github.com/ErlanBelekov/gallerio/internal/usecase"
	"github.com/gin-gonic/gin"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*usecase.AuthResult, error)
	Login(ctx context.Context, email, password string) (*usecase.AuthResult, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

type AuthHandler struct {
	authUsecase authUsecaser
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		logger:      logger.With("component", "auth_handler"),
	}
}

// Register accepts JSON or multipart/urlencoded forms; the web client
// submits a form.
type registerRequest struct {
	FirstName    string  `json:"firstName"    form:"firstName"    binding:"required,max=100"`
	LastName     string  `json:"lastName"     form:"lastName"     binding:"required,max=100"`
	Email        string  `json:"email"        form:"email"        binding:"required,email,max=254"`
	Password     string  `json:"password"     form:"password"     binding:"required,max=72"`
	Role         *string `json:"role"         form:"role"`
	Location     *string `json:"location"     form:"location"     binding:"omitempty,max=255"`
	Bio          *string `json:"bio"          form:"bio"          binding:"omitempty,max=2000"`
	ProfilePhoto *string `json:"profilePhoto" form:"profilePhoto" binding:"omitempty,max=2048"`
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"       binding:"required,email"`
	Code        string `json:"code"        binding:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" binding:"required,max=72"`
}

type authResponse struct {
	Token    string      `json:"token,omitempty"`
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
	Message  string      `json:"message"`
}

func newAuthResponse(res *usecase.AuthResult) authResponse {
	return authResponse{
		Token:    res.Token,
		ID:       res.ID,
		Username: res.Email,
		Email:    res.Email,
		Role:     res.Role,
		Message:  res.Message,
	}
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.authUsecase.Register(c.Request.Context(), usecase.RegisterInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Password:     req.Password,
		Role:         req.Role,
		Location:     req.Location,
		Bio:          req.Bio,
		ProfilePhoto: req.ProfilePhoto,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			c.JSON(http.StatusConflict, gin.H{"message": errDuplicateEmail})
		case errors.Is(err, domain.ErrInvalidRole):
			c.JSON(http.StatusBadRequest, gin.H{"message": errInvalidRole})
		case errors.Is(err, domain.ErrPasswordTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"message": errPasswordTooLong})
		default:
			h.logger.ErrorContext(c.Request.Context(), "register", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": errInternalServer})
		}
		return
	}

	c.JSON(http.StatusCreated, newAuthResponse(res))
}

// POST /api/auth/login
// Unknown email and wrong password get the same 401 body.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.authUsecase.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": errInvalidCredentials})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "login", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": errLoginFailed})
		return
	}

	c.JSON(http.StatusOK, newAuthResponse(res))
}

// GET /api/auth/verify
// Runs behind middleware.Auth, which has already resolved the identity.
func (h *AuthHandler) Verify(c *gin.Context) {
	user, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": errTokenInvalid})
		return
	}

	c.JSON(http.StatusOK, authResponse{
		ID:       user.ID,
		Username: user.Email,
		Email:    user.Email,
		Role:     user.Role,
		Message:  msgTokenValid,
	})
}

// POST /api/auth/forgot-password
// Returns the same 200 whether or not the account exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.authUsecase.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "forgot password", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msgResetRequested})
}

// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	err := h.authUsecase.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidOrExpiredCode):
			c.JSON(http.StatusBadRequest, gin.H{"message": errInvalidOrExpiredCode})
		case errors.Is(err, domain.ErrPasswordTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"message": errPasswordTooLong})
		default:
			h.logger.ErrorContext(c.Request.Context(), "reset password", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": errInternalServer})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msgPasswordReset})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"message": errInvalidRequest, "error": err.Error()})
}
