package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/prernathite123/SchoolManagement/internal/application"
	"github.com/prernathite123/SchoolManagement/pkg/response"
	"github.com/prernathite123/SchoolManagement/pkg/validation"
)

type UserHandler struct {
	Users  *application.UserService
	Logger *logrus.Logger
}

func NewUserHandler(users *application.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Users: users, Logger: logger}
}

// Profile GET /api/users/profile
func (h *UserHandler) Profile(c *gin.Context) {
	u, err := h.Users.Profile(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.Error(c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.Success(c, http.StatusOK, u, "", nil)
}

type updateProfileRequest struct {
	FirstName *string `json:"firstName" binding:"omitempty,personname"`
	LastName  *string `json:"lastName" binding:"omitempty,personname"`
	Phone     *string `json:"phone" binding:"omitempty,max=20"`
}

// UpdateProfile PUT /api/users/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, err := h.Users.UpdateProfile(c.Request.Context(), c.GetString("userID"), application.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		if errors.Is(err, application.ErrUserNotFound) {
			response.Error(c, http.StatusNotFound, "user not found", nil)
			return
		}
		h.Logger.WithError(err).Error("profile update failed")
		response.Error(c, http.StatusInternalServerError, "failed to update profile", nil)
		return
	}
	response.Success(c, http.StatusOK, u, "profile updated", nil)
}

// UploadAvatar POST /api/users/profile/avatar (multipart, field "image")
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "image file is required", nil)
		return
	}

	u, err := h.Users.UploadAvatar(c.Request.Context(), c.GetString("userID"), file)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrUnsupportedImage),
			errors.Is(err, application.ErrImageTooLarge):
			response.Error(c, http.StatusBadRequest, err.Error(), nil)
		case errors.Is(err, application.ErrStorageDisabled):
			response.Error(c, http.StatusServiceUnavailable, err.Error(), nil)
		case errors.Is(err, application.ErrUserNotFound):
			response.Error(c, http.StatusNotFound, "user not found", nil)
		default:
			h.Logger.WithError(err).Error("avatar upload failed")
			response.Error(c, http.StatusInternalServerError, "failed to upload image", nil)
		}
		return
	}
	response.Success(c, http.StatusOK, u, "profile image updated", nil)
}

// Children GET /api/users/children (parent accounts)
func (h *UserHandler) Children(c *gin.Context) {
	children, err := h.Users.Children(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		h.Logger.WithError(err).Error("children lookup failed")
		response.Error(c, http.StatusInternalServerError, "failed to load children", nil)
		return
	}
	response.Success(c, http.StatusOK, children, "", nil)
}
