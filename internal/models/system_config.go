package models

import "time"

// Default lockout policy values applied when the configuration record does
// not yet exist.
const (
	DefaultMaxFailedLoginAttempts = 5
	DefaultLockoutDurationHours   = 2.0
	DefaultSessionTimeoutMinutes  = 60
	DefaultPasswordMinLength      = 6
)

// SystemConfig is the singleton security-policy record. Exactly one row
// exists; the repository enforces this with a constant primary key.
type SystemConfig struct {
	MaxFailedLoginAttempts int       `json:"max_failed_login_attempts"`
	LockoutDurationHours   float64   `json:"lockout_duration_hours"`
	SessionTimeoutMinutes  int       `json:"session_timeout_minutes"`
	PasswordMinLength      int       `json:"password_min_length"`
	EnableAccountLockout   bool      `json:"enable_account_lockout"`
	UpdatedBy              *string   `json:"updated_by"` // user ID of the last admin editor
	UpdatedByName          string    `json:"updated_by_name,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// DefaultSystemConfig returns a configuration record populated with the
// documented defaults.
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		MaxFailedLoginAttempts: DefaultMaxFailedLoginAttempts,
		LockoutDurationHours:   DefaultLockoutDurationHours,
		SessionTimeoutMinutes:  DefaultSessionTimeoutMinutes,
		PasswordMinLength:      DefaultPasswordMinLength,
		EnableAccountLockout:   true,
	}
}

// LockoutDuration converts the configured lockout window to a time.Duration.
func (c *SystemConfig) LockoutDuration() time.Duration {
	return time.Duration(c.LockoutDurationHours * float64(time.Hour))
}

// SessionTimeout converts the configured session window to a time.Duration.
func (c *SystemConfig) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutMinutes) * time.Minute
}
