package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prernathite123/SchoolManagement/config"
	"github.com/prernathite123/SchoolManagement/internal/domain/entity"
	repo "github.com/prernathite123/SchoolManagement/internal/domain/repository"
	"github.com/prernathite123/SchoolManagement/pkg/helpers"
	"github.com/prernathite123/SchoolManagement/pkg/mailer"
	tpl "github.com/prernathite123/SchoolManagement/pkg/mailer/templates"
)

var (
	ErrEmailExists           = errors.New("user already exists with this email")
	ErrEmailDelivery         = errors.New("could not send verification email")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired verification token")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrEmailNotVerified      = errors.New("email not verified")
	ErrAccountLocked         = errors.New("account temporarily locked")
	ErrAccountDeactivated    = errors.New("account is deactivated")
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidRole           = errors.New("invalid role")
)

// Publisher enqueues asynchronous email jobs. Satisfied by
// helpers.RabbitPublisher; nil-able for tests and degraded setups.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// AuthService implements the account lifecycle: registration with
// verification email, email verification, and login with lockout.
type AuthService struct {
	Repo   repo.UserRepository
	JWT    *helpers.JWTManager
	Mail   mailer.Sender
	Pub    Publisher
	Cfg    *config.Config
	Logger *logrus.Logger
}

func NewAuthService(r repo.UserRepository, jwt *helpers.JWTManager, mail mailer.Sender, pub Publisher, cfg *config.Config, logger *logrus.Logger) *AuthService {
	return &AuthService{Repo: r, JWT: jwt, Mail: mail, Pub: pub, Cfg: cfg, Logger: logger}
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      entity.Role
}

// SanitizedUser is the projection returned by authentication endpoints.
// It never carries the password hash, verification token or lockout state.
type SanitizedUser struct {
	ID              string     `json:"id"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Email           string     `json:"email"`
	Role            entity.Role `json:"role"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	ProfileImage    string     `json:"profileImage,omitempty"`
	StudentID       string     `json:"studentId,omitempty"`
	EmployeeID      string     `json:"employeeId,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	IsActive        bool       `json:"isActive"`
	LastLogin       *time.Time `json:"lastLogin,omitempty"`
	ParentID        string     `json:"parentId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// SessionResponse is the payload returned on successful login.
type SessionResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      SanitizedUser `json:"user"`
}

func Sanitize(u *entity.User) SanitizedUser {
	return SanitizedUser{
		ID:              u.ID,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Email:           u.Email,
		Role:            u.Role,
		IsEmailVerified: u.IsEmailVerified,
		ProfileImage:    u.ProfileImage,
		StudentID:       u.StudentID,
		EmployeeID:      u.EmployeeID,
		Phone:           u.Phone,
		IsActive:        u.IsActive,
		LastLogin:       u.LastLogin,
		ParentID:        u.ParentID,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AssignRoleScopedID fills StudentID or EmployeeID from a per-role
// sequence derived from the current count. Two concurrent registrations
// can compute the same sequential number; the unique index on the column
// surfaces that as a duplicate error instead of silently colliding.
func AssignRoleScopedID(ctx context.Context, r repo.UserRepository, u *entity.User) error {
	switch {
	case u.Role == entity.RoleStudent && u.StudentID == "":
		n, err := r.CountByRoles(ctx, entity.RoleStudent)
		if err != nil {
			return err
		}
		u.StudentID = fmt.Sprintf("STU%06d", n+1)
	case (u.Role == entity.RoleTeacher || u.Role == entity.RoleAdmin) && u.EmployeeID == "":
		n, err := r.CountByRoles(ctx, entity.RoleTeacher, entity.RoleAdmin)
		if err != nil {
			return err
		}
		u.EmployeeID = fmt.Sprintf("EMP%06d", n+1)
	}
	return nil
}

// Register creates an unverified account and sends the verification
// email synchronously. Registration is all-or-nothing: if the email
// cannot be delivered the freshly created row is removed again and the
// call fails. The gateway is never retried here to avoid orphaned or
// duplicate records.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*SanitizedUser, error) {
	role := in.Role
	if role == "" {
		role = entity.RoleStudent
	}
	registerable := false
	for _, r := range entity.RegisterableRoles {
		if role == r {
			registerable = true
			break
		}
	}
	if !registerable {
		return nil, ErrInvalidRole
	}

	email := normalizeEmail(in.Email)
	if existing, err := s.Repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	plainToken, tokenHash, err := helpers.GenerateVerificationToken()
	if err != nil {
		return nil, err
	}
	expires := time.Now().Add(s.Cfg.VerifyTokenTTL)

	u := &entity.User{
		FirstName:           strings.TrimSpace(in.FirstName),
		LastName:            strings.TrimSpace(in.LastName),
		Email:               email,
		PasswordHash:        hash,
		Role:                role,
		IsEmailVerified:     false,
		VerificationToken:   tokenHash,
		VerificationExpires: &expires,
		IsActive:            true,
	}
	if err := AssignRoleScopedID(ctx, s.Repo, u); err != nil {
		return nil, err
	}

	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	if err := s.sendVerificationEmail(ctx, u, plainToken); err != nil {
		s.Logger.WithError(err).WithField("email", u.Email).Error("verification email failed, rolling back registration")
		if delErr := s.Repo.Delete(ctx, u.ID); delErr != nil {
			s.Logger.WithError(delErr).WithField("user_id", u.ID).Error("registration rollback failed")
		}
		return nil, ErrEmailDelivery
	}

	out := Sanitize(u)
	return &out, nil
}

func (s *AuthService) sendVerificationEmail(ctx context.Context, u *entity.User, plainToken string) error {
	link := s.Cfg.VerifyEmailLink(plainToken)
	data := tpl.NewVerifyEmailData(s.Cfg, u.FullName(), u.Email, link,
		tpl.WithExpiresIn(s.Cfg.VerifyTokenTTL))
	subject, text, html, err := tpl.Render(tpl.VerifyEmail, data)
	if err != nil {
		return err
	}
	return s.Mail.Send(ctx, u.Email, subject, text, html)
}

// VerifyEmail consumes a plaintext verification token. A missing match
// and an expired token are reported identically.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidOrExpiredToken
	}
	u, err := s.Repo.ConsumeVerificationToken(ctx, helpers.HashToken(token), time.Now())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return err
	}

	// Welcome email is best effort and asynchronous.
	if s.Pub != nil && s.Cfg.MailSendEnabled {
		job := mailer.EmailJob{
			To:       u.Email,
			Template: tpl.Welcome,
			Data:     tpl.NewWelcomeData(s.Cfg, u.FullName(), u.Email),
		}
		if err := s.Pub.PublishJSON(ctx, job); err != nil {
			s.Logger.WithError(err).Warn("failed to enqueue welcome email")
		}
	}
	return nil
}

// LoginMeta carries request context for the login notification email.
type LoginMeta struct {
	IP        string
	UserAgent string
}

// Login walks the account state machine: unverified, locked and
// deactivated accounts are rejected before the password is checked; a
// wrong password on an active account atomically bumps the attempt
// counter and may arm the lock. The response never reveals whether this
// attempt triggered a new lock, and unknown emails are indistinguishable
// from wrong passwords.
func (s *AuthService) Login(ctx context.Context, email, password string, meta LoginMeta) (*SessionResponse, error) {
	u, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil || u == nil {
		return nil, ErrInvalidCredentials
	}

	if !u.IsEmailVerified {
		return nil, ErrEmailNotVerified
	}
	now := time.Now()
	if u.Locked(now) {
		return nil, ErrAccountLocked
	}
	if !u.IsActive {
		return nil, ErrAccountDeactivated
	}

	if !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		if _, _, ferr := s.Repo.RecordFailedLogin(ctx, u.ID, s.Cfg.LockoutThreshold, s.Cfg.LockoutDuration); ferr != nil {
			s.Logger.WithError(ferr).WithField("user_id", u.ID).Error("failed to record login attempt")
		}
		return nil, ErrInvalidCredentials
	}

	if err := s.Repo.RecordLogin(ctx, u.ID, now); err != nil {
		return nil, err
	}
	u.LoginAttempts = 0
	u.LockUntil = nil
	u.LastLogin = &now

	token, exp, err := s.JWT.GenerateToken(u.ID, string(u.Role))
	if err != nil {
		return nil, err
	}

	s.notifyLogin(ctx, u, meta, now)

	return &SessionResponse{Token: token, ExpiresAt: exp, User: Sanitize(u)}, nil
}

func (s *AuthService) notifyLogin(ctx context.Context, u *entity.User, meta LoginMeta, at time.Time) {
	if s.Pub == nil || !s.Cfg.MailSendEnabled {
		return
	}
	data := tpl.NewLoginNotificationData(s.Cfg, u.FullName(), u.Email,
		tpl.WithTime(at), tpl.WithIP(meta.IP), tpl.WithUserAgent(meta.UserAgent))
	job := mailer.EmailJob{To: u.Email, Template: tpl.LoginNotification, Data: data}
	if err := s.Pub.PublishJSON(ctx, job); err != nil {
		s.Logger.WithError(err).Warn("failed to enqueue login notification")
	}
}

// Me returns the full user record for the authenticated subject, children
// included for parent accounts.
func (s *AuthService) Me(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	if u.Role == entity.RoleParent {
		children, err := s.Repo.ChildrenOf(ctx, u.ID)
		if err == nil {
			for _, c := range children {
				u.Children = append(u.Children, c.ID)
			}
		}
	}
	return u, nil
}
