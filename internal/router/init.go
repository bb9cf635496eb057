package router

import (
	"github.com/prernathite123/SchoolManagement/internal/application"
	"github.com/prernathite123/SchoolManagement/internal/container"
	pginfra "github.com/prernathite123/SchoolManagement/internal/infrastructure/postgres"
	handlers "github.com/prernathite123/SchoolManagement/internal/interface/http"
	"github.com/prernathite123/SchoolManagement/internal/router/modules"
)

// publisher converts the shared RabbitMQ publisher into the application
// interface, mapping a nil client to a nil interface so services can
// skip enqueueing cleanly.
func publisher() application.Publisher {
	if p := container.GetRabbitPub(); p != nil {
		return p
	}
	return nil
}

// InitModules wires repositories, services and handlers from the shared
// container and registers every feature module. Called once at startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	pool := container.GetPGPool()

	users := pginfra.NewUserRepository(pool)
	departments := pginfra.NewDepartmentRepository(pool)
	years := pginfra.NewAcademicYearRepository(pool)
	classes := pginfra.NewClassRepository(pool)

	authSvc := application.NewAuthService(users, container.GetJWT(), container.GetMailer(), publisher(), cfg, logger)
	adminSvc := application.NewAdminService(users, departments, years, classes, container.GetRedis(), container.GetES(), cfg, logger)
	userSvc := application.NewUserService(users, container.GetGCS(), cfg, logger)

	authHandler := handlers.NewAuthHandler(authSvc, logger)
	adminHandler := handlers.NewAdminHandler(adminSvc, logger)
	userHandler := handlers.NewUserHandler(userSvc, logger)
	emailHandler := handlers.NewEmailHandler(publisher(), logger, cfg)

	r.Add(modules.NewHealthModule(pool, container.GetRedis()))
	r.Add(modules.NewAuthModule(authHandler, container.GetJWT(), users))
	r.Add(modules.NewAdminModule(adminHandler, emailHandler, container.GetJWT(), users))
	r.Add(modules.NewUserModule(userHandler, container.GetJWT(), users))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
