package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prernathite123/SchoolManagement/internal/container"
	"github.com/prernathite123/SchoolManagement/internal/domain/entity"
	repo "github.com/prernathite123/SchoolManagement/internal/domain/repository"
	handlers "github.com/prernathite123/SchoolManagement/internal/interface/http"
	"github.com/prernathite123/SchoolManagement/internal/interface/middleware"
	"github.com/prernathite123/SchoolManagement/pkg/helpers"
)

type UserModule struct {
	Handler *handlers.UserHandler
	JWT     *helpers.JWTManager
	Users   repo.UserRepository
}

func NewUserModule(h *handlers.UserHandler, jwt *helpers.JWTManager, users repo.UserRepository) *UserModule {
	return &UserModule{Handler: h, JWT: jwt, Users: users}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.Use(middleware.Auth(m.JWT, m.Users))
	users.Use(middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByUserID(), nil))
	{
		users.GET("/profile", m.Handler.Profile)
		users.PUT("/profile", m.Handler.UpdateProfile)
		users.POST("/profile/avatar", m.Handler.UploadAvatar)
		users.GET("/children", middleware.Authorize(entity.RoleParent), m.Handler.Children)
	}
}
