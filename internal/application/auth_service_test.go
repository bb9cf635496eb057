package application

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prernathite123/SchoolManagement/config"
	"github.com/prernathite123/SchoolManagement/internal/domain/entity"
	"github.com/prernathite123/SchoolManagement/pkg/helpers"
)

func testConfig() *config.Config {
	return &config.Config{
		AppName:          "school-management-test",
		Env:              "development",
		JWTSecret:        "test-secret",
		JWTTTL:           time.Hour,
		LockoutThreshold: 5,
		LockoutDuration:  2 * time.Hour,
		VerifyTokenTTL:   24 * time.Hour,
		ClientURL:        "http://localhost:5173",
		SchoolName:       "Springfield High",
		MailSendEnabled:  true,
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestAuthService() (*AuthService, *memUserRepo, *fakeSender, *fakePublisher) {
	repo := newMemUserRepo()
	sender := &fakeSender{}
	pub := &fakePublisher{}
	cfg := testConfig()
	svc := NewAuthService(repo, helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL), sender, pub, cfg, quietLogger())
	return svc, repo, sender, pub
}

func registerInput(email string) RegisterInput {
	return RegisterInput{
		FirstName: "Maya",
		LastName:  "Iyer",
		Email:     email,
		Password:  "Sup3rSecret",
		Role:      entity.RoleStudent,
	}
}

// seedVerifiedUser inserts an account ready to log in.
func seedVerifiedUser(t *testing.T, repo *memUserRepo, email, password string) *entity.User {
	t.Helper()
	hash, err := helpers.HashPassword(password)
	require.NoError(t, err)
	u := &entity.User{
		FirstName:       "Ravi",
		LastName:        "Kumar",
		Email:           email,
		PasswordHash:    hash,
		Role:            entity.RoleStudent,
		IsEmailVerified: true,
		IsActive:        true,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestRegisterCreatesUnverifiedAccount(t *testing.T) {
	svc, repo, sender, _ := newTestAuthService()
	ctx := context.Background()

	out, err := svc.Register(ctx, registerInput("maya@example.com"))
	require.NoError(t, err)
	require.NotNil(t, out)

	stored, err := repo.GetByEmail(ctx, "maya@example.com")
	require.NoError(t, err)
	assert.False(t, stored.IsEmailVerified)
	assert.NotEmpty(t, stored.VerificationToken)
	assert.NotNil(t, stored.VerificationExpires)
	assert.Equal(t, "STU000001", stored.StudentID)
	assert.NotEqual(t, "Sup3rSecret", stored.PasswordHash)
	assert.Equal(t, 1, sender.sentCount())

	// Projection must not leak credentials.
	assert.Equal(t, "maya@example.com", out.Email)
	assert.False(t, out.IsEmailVerified)
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, repo, _, _ := newTestAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("  Maya@Example.COM "))
	require.NoError(t, err)

	_, err = repo.GetByEmail(ctx, "maya@example.com")
	require.NoError(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("maya@example.com"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerInput("maya@example.com"))
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegisterAssignsEmployeeIDForStaff(t *testing.T) {
	svc, repo, _, _ := newTestAuthService()
	ctx := context.Background()

	in := registerInput("teacher@example.com")
	in.Role = entity.RoleTeacher
	_, err := svc.Register(ctx, in)
	require.NoError(t, err)

	stored, err := repo.GetByEmail(ctx, "teacher@example.com")
	require.NoError(t, err)
	assert.Equal(t, "EMP000001", stored.EmployeeID)
	assert.Empty(t, stored.StudentID)
}

func TestRegisterRejectsSuperadmin(t *testing.T) {
	svc, _, _, _ := newTestAuthService()

	in := registerInput("root@example.com")
	in.Role = entity.RoleSuperAdmin
	_, err := svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestRegisterRollsBackWhenEmailFails(t *testing.T) {
	svc, repo, sender, _ := newTestAuthService()
	sender.fail = true
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("maya@example.com"))
	assert.ErrorIs(t, err, ErrEmailDelivery)

	// The half-created account must be gone so the email can be retried.
	_, err = repo.GetByEmail(ctx, "maya@example.com")
	assert.Error(t, err)

	sender.fail = false
	_, err = svc.Register(ctx, registerInput("maya@example.com"))
	assert.NoError(t, err)
}

func seedUnverifiedWithToken(t *testing.T, repo *memUserRepo, email string, expires time.Time) (string, *entity.User) {
	t.Helper()
	plain, hash, err := helpers.GenerateVerificationToken()
	require.NoError(t, err)
	u := &entity.User{
		FirstName:           "Maya",
		LastName:            "Iyer",
		Email:               email,
		PasswordHash:        "x",
		Role:                entity.RoleStudent,
		VerificationToken:   hash,
		VerificationExpires: &expires,
		IsActive:            true,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return plain, u
}

func TestVerifyEmailConsumesToken(t *testing.T) {
	svc, repo, _, pub := newTestAuthService()
	ctx := context.Background()

	plain, u := seedUnverifiedWithToken(t, repo, "maya@example.com", time.Now().Add(time.Hour))

	require.NoError(t, svc.VerifyEmail(ctx, plain))

	stored, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsEmailVerified)
	assert.Empty(t, stored.VerificationToken)
	assert.Nil(t, stored.VerificationExpires)
	assert.Equal(t, 1, pub.count()) // welcome email enqueued

	// Single use: redeeming again must fail.
	assert.ErrorIs(t, svc.VerifyEmail(ctx, plain), ErrInvalidOrExpiredToken)
}

func TestVerifyEmailExpiredToken(t *testing.T) {
	svc, repo, _, _ := newTestAuthService()

	plain, _ := seedUnverifiedWithToken(t, repo, "late@example.com", time.Now().Add(-time.Minute))
	assert.ErrorIs(t, svc.VerifyEmail(context.Background(), plain), ErrInvalidOrExpiredToken)
}

func TestVerifyEmailUnknownToken(t *testing.T) {
	svc, _, _, _ := newTestAuthService()
	assert.ErrorIs(t, svc.VerifyEmail(context.Background(), "no-such-token"), ErrInvalidOrExpiredToken)
	assert.ErrorIs(t, svc.VerifyEmail(context.Background(), ""), ErrInvalidOrExpiredToken)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _, _, _ := newTestAuthService()
	_, err := svc.Login(context.Background(), "ghost@example.com", "whatever", LoginMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnverifiedAccount(t *testing.T) {
	svc, repo, _, _ := newTestAuthService()
	ctx := context.Background()

	u := seedVerifiedUser(t, repo, "ravi@example.com", "Sup3rSecret")
	u.IsEmailVerified = false
	require.NoError(t, repo.Update(ctx, u))

	_, err := svc.Login(ctx, "ravi@example.com", "Sup3rSecret", LoginMeta{})
	assert.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestLoginDeactivatedAccount(t *testing.T) {
	svc, repo, _, _ := newTestAuthService()
	ctx := context.Background()

	u := seedVerifiedUser(t, repo, "ravi@example.com", "Sup3rSecret")
	require.NoError(t, repo.Deactivate(ctx, u.ID))

	_, err := svc.Login(ctx, "ravi@example.com", "Sup3rSecret", LoginMeta{})
	assert.ErrorIs(t, err, ErrAccountDeactivated)
}

func TestLoginWrongPasswordLocksAfterThreshold(t *testing.T) {
	svc, repo, _, _ := newTestAuthService()
	ctx := context.Background()

	u := seedVerifiedUser(t, repo, "ravi@example.com", "Sup3rSecret")

	for i := 0; i < svc.Cfg.LockoutThreshold; i++ {
		_, err := svc.Login(ctx, "ravi@example.com", "wrong", LoginMeta{})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	stored, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, svc.Cfg.LockoutThreshold, stored.LoginAttempts)
	require.NotNil(t, stored.LockUntil)

	// Even the right password is rejected while the lock holds.
	_, err = svc.Login(ctx, "ravi@example.com", "Sup3rSecret", LoginMeta{})
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestLoginExpiredLockAdmitsUser(t *testing.T) {
	svc, repo, _, _ := newTestAuthService()
	ctx := context.Background()

	u := seedVerifiedUser(t, repo, "ravi@example.com", "Sup3rSecret")
	past := time.Now().Add(-time.Minute)
	u.LoginAttempts = svc.Cfg.LockoutThreshold
	u.LockUntil = &past
	require.NoError(t, repo.Update(ctx, u))

	session, err := svc.Login(ctx, "ravi@example.com", "Sup3rSecret", LoginMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
}

func TestLoginSuccessResetsCounters(t *testing.T) {
	svc, repo, _, pub := newTestAuthService()
	ctx := context.Background()

	u := seedVerifiedUser(t, repo, "ravi@example.com", "Sup3rSecret")

	_, err := svc.Login(ctx, "ravi@example.com", "wrong", LoginMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "ravi@example.com", "wrong", LoginMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := svc.Login(ctx, "ravi@example.com", "Sup3rSecret", LoginMeta{IP: "203.0.113.7"})
	require.NoError(t, err)

	claims, err := svc.JWT.ParseToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, string(entity.RoleStudent), claims.Role)

	stored, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.LoginAttempts)
	assert.Nil(t, stored.LockUntil)
	assert.NotNil(t, stored.LastLogin)

	assert.Equal(t, u.ID, session.User.ID)
	assert.Equal(t, 1, pub.count()) // login notification enqueued
}

func TestConcurrentFailedLoginsLoseNoIncrements(t *testing.T) {
	svc, repo, _, _ := newTestAuthService()
	ctx := context.Background()

	// High threshold so no attempt is swallowed by the lock.
	svc.Cfg.LockoutThreshold = 1000
	u := seedVerifiedUser(t, repo, "ravi@example.com", "Sup3rSecret")

	const attempts = 50
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			_, _ = svc.Login(ctx, "ravi@example.com", "wrong", LoginMeta{})
		}()
	}
	wg.Wait()

	stored, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, attempts, stored.LoginAttempts)
}

func TestMeResolvesChildrenForParents(t *testing.T) {
	svc, repo, _, _ := newTestAuthService()
	ctx := context.Background()

	parent := &entity.User{
		FirstName: "Asha", LastName: "Patel", Email: "asha@example.com",
		PasswordHash: "x", Role: entity.RoleParent, IsEmailVerified: true, IsActive: true,
	}
	require.NoError(t, repo.Create(ctx, parent))

	child := &entity.User{
		FirstName: "Dev", LastName: "Patel", Email: "dev@example.com",
		PasswordHash: "x", Role: entity.RoleStudent, ParentID: parent.ID,
		IsEmailVerified: true, IsActive: true,
	}
	require.NoError(t, repo.Create(ctx, child))

	me, err := svc.Me(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{child.ID}, me.Children)
}
