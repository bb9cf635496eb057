package entity

import (
	"time"
)

// Role is the authorization role of a user account.
type Role string

const (
	RoleStudent    Role = "student"
	RoleTeacher    Role = "teacher"
	RoleParent     Role = "parent"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// RegisterableRoles are the roles accepted on self-registration.
// Superadmin accounts are only created by seeding or by another superadmin.
var RegisterableRoles = []Role{RoleStudent, RoleTeacher, RoleParent, RoleAdmin}

// AllRoles lists every valid role value.
var AllRoles = []Role{RoleStudent, RoleTeacher, RoleParent, RoleAdmin, RoleSuperAdmin}

func (r Role) Valid() bool {
	for _, v := range AllRoles {
		if r == v {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role receives an employee ID.
func (r Role) IsStaff() bool {
	return r == RoleTeacher || r == RoleAdmin || r == RoleSuperAdmin
}

// User is the aggregate root of the credential store.
// PasswordHash holds a bcrypt hash; the plaintext password is never stored.
// VerificationToken holds a sha256 hex digest of the emailed token, never
// the token itself.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         Role

	StudentID    string
	EmployeeID   string
	Phone        string
	ProfileImage string

	IsEmailVerified     bool
	VerificationToken   string
	VerificationExpires *time.Time

	LoginAttempts int
	LockUntil     *time.Time

	IsActive  bool
	LastLogin *time.Time

	ParentID string
	Children []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName joins first and last name for display and email templates.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Locked reports whether the account is currently locked out.
func (u *User) Locked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}
