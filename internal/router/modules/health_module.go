package modules

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/prernathite123/SchoolManagement/pkg/response"
)

// HealthModule exposes liveness and readiness probes. Liveness never
// touches a backend; readiness pings Postgres and Redis.
type HealthModule struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
}

func NewHealthModule(pool *pgxpool.Pool, rdb *redis.Client) *HealthModule {
	return &HealthModule{Pool: pool, Redis: rdb}
}

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/health", m.live)
	rg.GET("/health/ready", m.ready)
}

func (m *HealthModule) live(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"status": "ok"}, "", nil)
}

func (m *HealthModule) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"postgres": "ok", "redis": "ok"}
	healthy := true

	if m.Pool == nil {
		checks["postgres"] = "not configured"
		healthy = false
	} else if err := m.Pool.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	}

	if m.Redis == nil {
		checks["redis"] = "not configured"
	} else if err := m.Redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	}

	if !healthy {
		response.Error(c, http.StatusServiceUnavailable, "not ready", checks)
		return
	}
	response.Success(c, http.StatusOK, checks, "", nil)
}
