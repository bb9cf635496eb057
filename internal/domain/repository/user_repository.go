package repository

import (
	"context"
	"errors"
	"time"

	"github.com/prernathite123/SchoolManagement/internal/domain/entity"
)

// ErrNotFound is returned when a queried record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique constraint is violated.
var ErrDuplicate = errors.New("duplicate record")

// UserFilter narrows and pages admin user listings.
type UserFilter struct {
	Role      entity.Role
	IsActive  *bool
	Search    string // matches name, email, student/employee ID
	SortBy    string
	SortDesc  bool
	Page      int
	PageSize  int
}

// RoleCount pairs a role with the number of users holding it.
type RoleCount struct {
	Role  entity.Role `json:"role"`
	Count int64       `json:"count"`
}

// RegistrationBucket counts registrations per month per role.
type RegistrationBucket struct {
	Year  int         `json:"year"`
	Month int         `json:"month"`
	Role  entity.Role `json:"role"`
	Count int64       `json:"count"`
}

// UserRepository defines persistence for user accounts.
//
// RecordFailedLogin, RecordLogin and ConsumeVerificationToken must be
// applied as single atomic read-modify-write operations at the storage
// layer: concurrent failed logins on one account must not lose counter
// increments, and a consumed verification token must not be reusable.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error

	// Delete removes the row permanently. Only used to roll back a
	// registration whose verification email could not be delivered.
	Delete(ctx context.Context, id string) error

	// Deactivate soft-deletes the account (is_active = false).
	Deactivate(ctx context.Context, id string) error

	// ConsumeVerificationToken marks the matching unexpired account as
	// verified and clears both token fields in one statement. Returns
	// ErrNotFound when no account matches or the token has expired;
	// the two cases are indistinguishable on purpose.
	ConsumeVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*entity.User, error)

	// RecordFailedLogin increments the attempt counter and sets the lock
	// timestamp when the new count reaches threshold. Returns the updated
	// counter and lock expiry.
	RecordFailedLogin(ctx context.Context, id string, threshold int, lockFor time.Duration) (int, *time.Time, error)

	// RecordLogin clears the attempt counter and lock, and stamps last_login.
	RecordLogin(ctx context.Context, id string, at time.Time) error

	List(ctx context.Context, f UserFilter) ([]*entity.User, int64, error)
	ChildrenOf(ctx context.Context, parentID string) ([]*entity.User, error)

	Count(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	CountByRoles(ctx context.Context, roles ...entity.Role) (int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
	RoleDistribution(ctx context.Context) ([]RoleCount, error)
	RegistrationsByMonth(ctx context.Context, from, to *time.Time) ([]RegistrationBucket, error)
}
