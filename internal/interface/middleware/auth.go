package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prernathite123/SchoolManagement/internal/domain/entity"
	repo "github.com/prernathite123/SchoolManagement/internal/domain/repository"
	"github.com/prernathite123/SchoolManagement/pkg/helpers"
	"github.com/prernathite123/SchoolManagement/pkg/response"
)

const (
	ctxUserKey   = "currentUser"
	ctxUserIDKey = "userID"
	ctxRoleKey   = "userRole"
)

// Auth validates the Bearer token and loads the account behind it. The
// account is re-read on every request so deactivation takes effect
// immediately instead of at token expiry.
func Auth(jwt *helpers.JWTManager, users repo.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			response.AbortError(c, http.StatusUnauthorized, "authentication required", nil)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		claims, err := jwt.ParseToken(token)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, helpers.ErrExpiredToken) {
				msg = "token expired"
			}
			response.AbortError(c, http.StatusUnauthorized, msg, nil)
			return
		}

		u, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil || u == nil {
			response.AbortError(c, http.StatusUnauthorized, "account no longer exists", nil)
			return
		}
		if !u.IsActive {
			response.AbortError(c, http.StatusUnauthorized, "account is deactivated", nil)
			return
		}

		c.Set(ctxUserKey, u)
		c.Set(ctxUserIDKey, u.ID)
		c.Set(ctxRoleKey, string(u.Role))
		c.Next()
	}
}

// Authorize gates a route to the given roles. Must run after Auth.
func Authorize(roles ...entity.Role) gin.HandlerFunc {
	allowed := make(map[entity.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role := entity.Role(c.GetString(ctxRoleKey))
		if _, ok := allowed[role]; !ok {
			response.AbortError(c, http.StatusForbidden, "insufficient permissions", nil)
			return
		}
		c.Next()
	}
}

// CurrentUser pulls the authenticated account from the context.
func CurrentUser(c *gin.Context) (*entity.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*entity.User)
	return u, ok
}
