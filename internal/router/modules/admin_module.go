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

type AdminModule struct {
	Handler *handlers.AdminHandler
	Email   *handlers.EmailHandler
	JWT     *helpers.JWTManager
	Users   repo.UserRepository
}

func NewAdminModule(h *handlers.AdminHandler, email *handlers.EmailHandler, jwt *helpers.JWTManager, users repo.UserRepository) *AdminModule {
	return &AdminModule{Handler: h, Email: email, JWT: jwt, Users: users}
}

func (m *AdminModule) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(middleware.Auth(m.JWT, m.Users))
	admin.Use(middleware.Authorize(entity.RoleAdmin, entity.RoleSuperAdmin))
	admin.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		admin.GET("/dashboard", m.Handler.Dashboard)

		admin.GET("/users", m.Handler.ListUsers)
		admin.GET("/users/search", m.Handler.SearchUsers)
		admin.POST("/users", m.Handler.CreateUser)
		admin.GET("/users/:id", m.Handler.GetUser)
		admin.PUT("/users/:id", m.Handler.UpdateUser)
		admin.DELETE("/users/:id", m.Handler.DeleteUser)

		admin.GET("/departments", m.Handler.ListDepartments)
		admin.POST("/departments", m.Handler.CreateDepartment)

		admin.GET("/academic-years", m.Handler.ListAcademicYears)
		admin.POST("/academic-years", m.Handler.CreateAcademicYear)

		admin.GET("/classes", m.Handler.ListClasses)
		admin.POST("/classes", m.Handler.CreateClass)

		admin.GET("/reports/registrations", m.Handler.RegistrationReport)
		admin.GET("/reports/departments", m.Handler.DepartmentReport)
		admin.GET("/reports/classes", m.Handler.ClassEnrollmentReport)
		admin.GET("/reports/roles", m.Handler.RoleDistribution)

		admin.POST("/email/send", m.Email.Send)
	}
}
