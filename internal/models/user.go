package models

import (
	"time"
)

// Roles assignable to helpdesk accounts
const (
	RoleUser    = "user"
	RoleSupport = "support"
	RoleAdmin   = "admin"
)

type User struct {
	ID                  string
	Name                string
	Email               string
	PasswordHash        string
	Role                string // "user", "support", "admin"
	Department          string
	IsActive            bool
	FailedLoginAttempts int
	LockoutUntil        *time.Time // Temporary account lock expiration
	LastFailedLogin     *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsLocked reports whether the account currently holds an unexpired lockout.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockoutUntil != nil && now.Before(*u.LockoutUntil)
}

// ValidRole reports whether role is one of the assignable account roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleSupport, RoleAdmin:
		return true
	}
	return false
}
