package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prernathite123/SchoolManagement/config"
	"github.com/prernathite123/SchoolManagement/internal/application"
	"github.com/prernathite123/SchoolManagement/internal/domain/entity"
	repo "github.com/prernathite123/SchoolManagement/internal/domain/repository"
	"github.com/prernathite123/SchoolManagement/pkg/helpers"
	"github.com/prernathite123/SchoolManagement/pkg/mailer"
	"github.com/prernathite123/SchoolManagement/pkg/validation"
)

// stubUserRepo embeds the interface and overrides only what login and
// registration need;
// anything else panics loudly if a test wanders into it.
type stubUserRepo struct {
	repo.UserRepository
	byEmail map[string]*entity.User
	failed  int
}

func (s *stubUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *stubUserRepo) RecordFailedLogin(_ context.Context, _ string, _ int, _ time.Duration) (int, *time.Time, error) {
	s.failed++
	return s.failed, nil, nil
}

func (s *stubUserRepo) RecordLogin(_ context.Context, _ string, _ time.Time) error { return nil }

func (s *stubUserRepo) ConsumeVerificationToken(_ context.Context, _ string, _ time.Time) (*entity.User, error) {
	return nil, repo.ErrNotFound
}

func newLoginRouter(t *testing.T, users *stubUserRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.Config{
		JWTSecret:        "test-secret",
		JWTTTL:           time.Hour,
		LockoutThreshold: 5,
		LockoutDuration:  2 * time.Hour,
		VerifyTokenTTL:   24 * time.Hour,
		ClientURL:        "http://localhost:5173",
	}
	svc := application.NewAuthService(users, helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL), nil, nil, cfg, logger)
	h := NewAuthHandler(svc, logger)

	r := gin.New()
	r.POST("/api/auth/login", h.Login)
	r.POST("/api/auth/verify-email", h.VerifyEmail)
	return r
}

func seededStub(t *testing.T, mutate func(*entity.User)) *stubUserRepo {
	t.Helper()
	hash, err := helpers.HashPassword("Sup3rSecret")
	require.NoError(t, err)
	u := &entity.User{
		ID: "u-1", FirstName: "Ravi", LastName: "Kumar",
		Email: "ravi@example.com", PasswordHash: hash,
		Role: entity.RoleStudent, IsEmailVerified: true, IsActive: true,
	}
	if mutate != nil {
		mutate(u)
	}
	return &stubUserRepo{byEmail: map[string]*entity.User{u.Email: u}}
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginEndpointStatusCodes(t *testing.T) {
	creds := gin.H{"email": "ravi@example.com", "password": "Sup3rSecret"}

	t.Run("success", func(t *testing.T) {
		r := newLoginRouter(t, seededStub(t, nil))
		w := postJSON(t, r, "/api/auth/login", creds)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"token"`)
	})

	t.Run("wrong password", func(t *testing.T) {
		r := newLoginRouter(t, seededStub(t, nil))
		w := postJSON(t, r, "/api/auth/login", gin.H{"email": "ravi@example.com", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown email", func(t *testing.T) {
		r := newLoginRouter(t, seededStub(t, nil))
		w := postJSON(t, r, "/api/auth/login", gin.H{"email": "ghost@example.com", "password": "Sup3rSecret"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unverified", func(t *testing.T) {
		r := newLoginRouter(t, seededStub(t, func(u *entity.User) { u.IsEmailVerified = false }))
		w := postJSON(t, r, "/api/auth/login", creds)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("locked", func(t *testing.T) {
		r := newLoginRouter(t, seededStub(t, func(u *entity.User) {
			until := time.Now().Add(time.Hour)
			u.LockUntil = &until
		}))
		w := postJSON(t, r, "/api/auth/login", creds)
		assert.Equal(t, http.StatusLocked, w.Code)
	})

	t.Run("deactivated", func(t *testing.T) {
		r := newLoginRouter(t, seededStub(t, func(u *entity.User) { u.IsActive = false }))
		w := postJSON(t, r, "/api/auth/login", creds)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed payload", func(t *testing.T) {
		r := newLoginRouter(t, seededStub(t, nil))
		w := postJSON(t, r, "/api/auth/login", gin.H{"email": "not-an-email"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestVerifyEmailEndpointRejectsBadToken(t *testing.T) {
	r := newLoginRouter(t, seededStub(t, nil))
	w := postJSON(t, r, "/api/auth/verify-email", gin.H{"token": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func (s *stubUserRepo) Create(_ context.Context, u *entity.User) error {
	u.ID = "u-new"
	cp := *u
	s.byEmail[u.Email] = &cp
	return nil
}

func (s *stubUserRepo) CountByRoles(_ context.Context, _ ...entity.Role) (int64, error) {
	return 0, nil
}

func (s *stubUserRepo) Delete(_ context.Context, _ string) error { return nil }

type stubSender struct{ sent int }

func (s *stubSender) Send(_ context.Context, _, _, _, _ string) error {
	s.sent++
	return nil
}

func newRegisterRouter(t *testing.T, users *stubUserRepo, sender mailer.Sender) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.Config{
		JWTSecret:        "test-secret",
		JWTTTL:           time.Hour,
		LockoutThreshold: 5,
		LockoutDuration:  2 * time.Hour,
		VerifyTokenTTL:   24 * time.Hour,
		ClientURL:        "http://localhost:5173",
	}
	svc := application.NewAuthService(users, helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL), sender, nil, cfg, logger)
	h := NewAuthHandler(svc, logger)

	r := gin.New()
	r.POST("/api/auth/register", h.Register)
	return r
}

func TestRegisterEndpointAcceptsEveryPublicRole(t *testing.T) {
	for _, role := range []string{"student", "teacher", "parent", "admin"} {
		t.Run(role, func(t *testing.T) {
			sender := &stubSender{}
			r := newRegisterRouter(t, &stubUserRepo{byEmail: map[string]*entity.User{}}, sender)
			w := postJSON(t, r, "/api/auth/register", gin.H{
				"firstName": "Asha", "lastName": "Rao",
				"email": role + "@example.com", "password": "Sup3rSecret",
				"role": role,
			})
			assert.Equal(t, http.StatusCreated, w.Code)
			assert.Equal(t, 1, sender.sent)
		})
	}
}

func TestRegisterEndpointRejectsSuperadmin(t *testing.T) {
	r := newRegisterRouter(t, &stubUserRepo{byEmail: map[string]*entity.User{}}, &stubSender{})
	w := postJSON(t, r, "/api/auth/register", gin.H{
		"firstName": "Asha", "lastName": "Rao",
		"email": "root@example.com", "password": "Sup3rSecret",
		"role": "superadmin",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
