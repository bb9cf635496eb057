package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/prernathite123/SchoolManagement/internal/application"
	"github.com/prernathite123/SchoolManagement/internal/domain/entity"
	"github.com/prernathite123/SchoolManagement/internal/interface/middleware"
	"github.com/prernathite123/SchoolManagement/pkg/response"
	"github.com/prernathite123/SchoolManagement/pkg/validation"
)

type AuthHandler struct {
	Auth   *application.AuthService
	Logger *logrus.Logger
}

func NewAuthHandler(auth *application.AuthService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Logger: logger}
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

type registerRequest struct {
	FirstName string `json:"firstName" binding:"required,personname"`
	LastName  string `json:"lastName" binding:"required,personname"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,pwd"`
	Role      string `json:"role" binding:"omitempty,oneof=student teacher parent admin"`
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, err := h.Auth.Register(c.Request.Context(), application.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      entity.Role(req.Role),
	})
	if err != nil {
		switch {
		case errors.Is(err, application.ErrEmailExists):
			response.Error(c, http.StatusBadRequest, err.Error(), nil)
		case errors.Is(err, application.ErrInvalidRole):
			response.Error(c, http.StatusBadRequest, err.Error(), nil)
		case errors.Is(err, application.ErrEmailDelivery):
			response.Error(c, http.StatusInternalServerError, "registration failed, please try again later", nil)
		default:
			h.Logger.WithError(err).Error("registration failed")
			response.Error(c, http.StatusInternalServerError, "registration failed", nil)
		}
		return
	}

	response.Success(c, http.StatusCreated, u, "registered, please verify your email", nil)
}

type verifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// VerifyEmail POST /api/auth/verify-email {token}
// Also reachable as GET /api/auth/verify-email/:token for link clicks.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		var req verifyEmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
			return
		}
		token = req.Token
	}

	if err := h.Auth.VerifyEmail(c.Request.Context(), token); err != nil {
		if errors.Is(err, application.ErrInvalidOrExpiredToken) {
			response.Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		h.Logger.WithError(err).Error("email verification failed")
		response.Error(c, http.StatusInternalServerError, "verification failed", nil)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"verified": true}, "email verified, you can now log in", nil)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	session, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password, application.LoginMeta{
		IP:        clientIP(c),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidCredentials),
			errors.Is(err, application.ErrEmailNotVerified),
			errors.Is(err, application.ErrAccountDeactivated):
			response.Error(c, http.StatusUnauthorized, err.Error(), nil)
		case errors.Is(err, application.ErrAccountLocked):
			response.Error(c, http.StatusLocked, "account temporarily locked due to too many failed attempts, try again later", nil)
		default:
			h.Logger.WithError(err).Error("login failed")
			response.Error(c, http.StatusInternalServerError, "login failed", nil)
		}
		return
	}

	response.Success(c, http.StatusOK, session, "login successful", nil)
}

// Logout POST /api/auth/logout (auth required)
// Tokens are stateless; the server only confirms and the client discards it.
func (h *AuthHandler) Logout(c *gin.Context) {
	response.Success[any](c, http.StatusOK, nil, "logged out", nil)
}

// Me GET /api/auth/me (auth required)
func (h *AuthHandler) Me(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "authentication required", nil)
		return
	}
	full, err := h.Auth.Me(c.Request.Context(), u.ID)
	if err != nil {
		response.Error(c, http.StatusNotFound, "user not found", nil)
		return
	}
	out := application.Sanitize(full)
	payload := gin.H{"user": out}
	if len(full.Children) > 0 {
		payload["children"] = full.Children
	}
	response.Success(c, http.StatusOK, payload, "", nil)
}
