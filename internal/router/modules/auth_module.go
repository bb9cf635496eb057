package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prernathite123/SchoolManagement/internal/container"
	repo "github.com/prernathite123/SchoolManagement/internal/domain/repository"
	handlers "github.com/prernathite123/SchoolManagement/internal/interface/http"
	"github.com/prernathite123/SchoolManagement/internal/interface/middleware"
	"github.com/prernathite123/SchoolManagement/pkg/helpers"
)

type AuthModule struct {
	Handler *handlers.AuthHandler
	JWT     *helpers.JWTManager
	Users   repo.UserRepository
}

func NewAuthModule(h *handlers.AuthHandler, jwt *helpers.JWTManager, users repo.UserRepository) *AuthModule {
	return &AuthModule{Handler: h, JWT: jwt, Users: users}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// Public endpoints, tight per-IP limits: these are the routes
	// credential stuffing goes after.
	registerLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIPAndPath(), middleware.AllowPrivateIP())
	loginLimiter := middleware.RateLimit(container.GetRedis(), 20, time.Minute, middleware.KeyByIPAndPath(), middleware.AllowPrivateIP())
	verifyLimiter := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/auth/register", registerLimiter, m.Handler.Register)
	rg.POST("/auth/login", loginLimiter, m.Handler.Login)
	rg.POST("/auth/verify-email", verifyLimiter, m.Handler.VerifyEmail)
	rg.GET("/auth/verify-email/:token", verifyLimiter, m.Handler.VerifyEmail)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.JWT, m.Users))
	auth.Use(middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.GET("/auth/me", m.Handler.Me)
		auth.POST("/auth/logout", m.Handler.Logout)
	}
}
