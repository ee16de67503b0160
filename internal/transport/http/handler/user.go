package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/gallerio/internal/domain"
	"github.com/ErlanBelekov/gallerio/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

type userUsecaser interface {
	UpdateProfile(ctx context.Context, id string, p domain.ProfileUpdate) (*domain.User, error)
	ChangePassword(ctx context.Context, id, current, next string) error
	DeleteUser(ctx context.Context, id string) error
}

type UserHandler struct {
	userUsecase userUsecaser
	logger      *slog.Logger
}

func NewUserHandler(userUsecase userUsecaser, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		userUsecase: userUsecase,
		logger:      logger.With("component", "user_handler"),
	}
}

type updateProfileRequest struct {
	FirstName    *string `json:"firstName"    form:"firstName"    binding:"omitempty,min=1,max=100"`
	LastName     *string `json:"lastName"     form:"lastName"     binding:"omitempty,min=1,max=100"`
	Location     *string `json:"location"     form:"location"     binding:"omitempty,max=255"`
	Bio          *string `json:"bio"          form:"bio"          binding:"omitempty,max=2000"`
	ProfilePhoto *string `json:"profilePhoto" form:"profilePhoto" binding:"omitempty,max=2048"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required,max=72"`
	NewPassword     string `json:"newPassword"     binding:"required,max=72"`
}

type profileResponse struct {
	ID           string      `json:"id"`
	FirstName    string      `json:"firstName"`
	LastName     string      `json:"lastName"`
	Email        string      `json:"email"`
	Role         domain.Role `json:"role"`
	Location     *string     `json:"location"`
	Bio          *string     `json:"bio"`
	ProfilePhoto *string     `json:"profilePhoto"`
}

func newProfileResponse(u *domain.User) profileResponse {
	return profileResponse{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		Role:         u.Role,
		Location:     u.Location,
		Bio:          u.Bio,
		ProfilePhoto: u.ProfilePhoto,
	}
}

// GET /api/users/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": errTokenInvalid})
		return
	}
	c.JSON(http.StatusOK, newProfileResponse(user))
}

// PUT /api/users/profile
// Only fields present in the request are changed.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	user, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": errTokenInvalid})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	updated, err := h.userUsecase.UpdateProfile(c.Request.Context(), user.ID, domain.ProfileUpdate{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Location:     req.Location,
		Bio:          req.Bio,
		ProfilePhoto: req.ProfilePhoto,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": errUserNotFound})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "update profile", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(updated))
}

// POST /api/users/change-password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	user, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": errTokenInvalid})
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	err := h.userUsecase.ChangePassword(c.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"message": errCurrentPasswordWrong})
		case errors.Is(err, domain.ErrPasswordTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"message": errPasswordTooLong})
		default:
			h.logger.ErrorContext(c.Request.Context(), "change password", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": errInternalServer})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msgPasswordChanged})
}

// DELETE /api/admin/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.userUsecase.DeleteUser(c.Request.Context(), id); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": errUserNotFound})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "delete user", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msgUserDeleted})
}
