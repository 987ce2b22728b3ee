package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tmorvan/bankdesk/internal/auth"
	"github.com/tmorvan/bankdesk/internal/models"
	pkgauth "github.com/tmorvan/bankdesk/pkg/auth"
	pkglogger "github.com/tmorvan/bankdesk/pkg/logger"
)

// UserRepository defines the user persistence operations consumed by the
// auth and user services.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, user *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetActive(ctx context.Context, id string, active bool) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

// AuditRecorder is the fire-and-forget audit notifier consumed by services.
// Implementations must never propagate failures to the caller.
type AuditRecorder interface {
	LogEvent(ctx context.Context, event AuditEventInput)
}

// AuthService orchestrates credential verification, the lockout engine, and
// token issuance.
type AuthService struct {
	repo        UserRepository
	lockout     *LockoutService
	config      ConfigProvider
	tm          *auth.TokenManager
	audit       AuditRecorder
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(repo UserRepository, lockout *LockoutService, config ConfigProvider, tm *auth.TokenManager, audit AuditRecorder, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		repo:        repo,
		lockout:     lockout,
		config:      config,
		tm:          tm,
		audit:       audit,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department"`
	IsActive   bool   `json:"is_active"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// AuthResponse represents the response from a successful login
type AuthResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}

// Login authenticates a user and returns a session token.
//
// The sequencing is load-bearing: unknown account, deactivated account, and
// unexpired lockout are rejected before the password is checked, and a failed
// password check that triggers a lockout reports the lockout rather than a
// generic credentials error.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*AuthResponse, error) {
	if email = strings.ToLower(strings.TrimSpace(email)); email == "" {
		s.logger.Warn("login attempt with empty email")
		return nil, &models.InvalidCredentialsError{RemainingAttempts: -1}
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("login failed: invalid credentials")
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				IPAddress:     ipAddress,
				FailureReason: "invalid_credentials",
				Success:       false,
			})
			return nil, &models.InvalidCredentialsError{RemainingAttempts: -1}
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	decision := s.lockout.CheckAccess(user)
	if !decision.Allowed {
		if decision.Deactivated {
			s.logger.Info("login blocked: account deactivated", slog.String("user_id", user.ID))
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				UserID:        user.ID,
				IPAddress:     ipAddress,
				FailureReason: "account_deactivated",
				Success:       false,
			})
			return nil, models.ErrAccountDeactivated
		}

		s.logger.Info("login blocked: account locked",
			slog.String("user_id", user.ID),
			slog.Time("locked_until", *decision.RetryAfter))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			IPAddress:     ipAddress,
			FailureReason: "account_locked",
			Success:       false,
		})
		return nil, &models.AccountLockedError{Until: *decision.RetryAfter}
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		updated, recErr := s.lockout.RecordFailedAttempt(ctx, user)
		if recErr != nil {
			return nil, recErr
		}

		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			IPAddress:     ipAddress,
			FailureReason: "invalid_credentials",
			Success:       false,
		})

		// The failed attempt may have just transitioned the account into
		// locked; report that instead of a generic credentials error.
		if updated.IsLocked(time.Now()) {
			return nil, &models.AccountLockedError{Until: *updated.LockoutUntil}
		}

		return nil, &models.InvalidCredentialsError{
			RemainingAttempts: s.lockout.RemainingAttempts(ctx, updated),
		}
	}

	if _, err := s.lockout.RecordSuccessfulAttempt(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tm.GenerateToken(user, s.sessionTimeout(ctx))
	if err != nil {
		s.logger.Error("failed to generate token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		IPAddress: ipAddress,
		Success:   true,
	})
	s.audit.LogEvent(ctx, AuditEventInput{
		UserID:    &user.ID,
		Action:    models.AuditActionLogin,
		Resource:  models.AuditResourceAuth,
		Details:   "User " + user.Name + " logged in",
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})

	return &AuthResponse{
		Token: token,
		User:  userModelToResponse(user),
	}, nil
}

// Logout records the logout event. Tokens are stateless; the client discards
// its copy.
func (s *AuthService) Logout(ctx context.Context, userID, ipAddress, userAgent string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		return models.ErrInternalServer
	}

	s.logger.Info("user logged out", slog.String("user_id", userID))
	s.audit.LogEvent(ctx, AuditEventInput{
		UserID:    &user.ID,
		Action:    models.AuditActionLogout,
		Resource:  models.AuditResourceAuth,
		Details:   "User " + user.Name + " logged out",
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})

	return nil
}

// Me returns the current user's profile.
func (s *AuthService) Me(ctx context.Context, userID string) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return userModelToResponse(user), nil
}

// UpdateProfileInput carries optional profile changes.
type UpdateProfileInput struct {
	Name            string
	Email           string
	CurrentPassword string
	NewPassword     string
}

// UpdateProfile updates the caller's own account. A password change requires
// the current password; name and email edits are restricted to admins.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput, ipAddress, userAgent string) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		return nil, models.ErrInternalServer
	}

	if input.NewPassword != "" {
		if input.CurrentPassword == "" {
			return nil, &models.ValidationError{Field: "current_password", Message: "required to change password"}
		}
		if err := pkgauth.ComparePassword(user.PasswordHash, input.CurrentPassword); err != nil {
			return nil, &models.InvalidCredentialsError{RemainingAttempts: -1}
		}

		if err := pkgauth.ValidatePassword(input.NewPassword, s.passwordPolicy(ctx)); err != nil {
			return nil, &models.ValidationError{Field: "new_password", Message: err.Error()}
		}

		hash, err := pkgauth.HashPassword(input.NewPassword)
		if err != nil {
			s.logger.Error("failed to hash password", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
			s.logger.Error("failed to update password", slog.String("user_id", userID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		s.audit.LogEvent(ctx, AuditEventInput{
			UserID:    &user.ID,
			Action:    models.AuditActionPasswordChange,
			Resource:  models.AuditResourceUser,
			Details:   "User " + user.Name + " changed their password",
			IPAddress: ipAddress,
			UserAgent: userAgent,
		})
	}

	if user.Role == models.RoleAdmin && (input.Name != "" || input.Email != "") {
		if input.Name != "" {
			user.Name = strings.TrimSpace(input.Name)
		}
		if input.Email != "" {
			user.Email = strings.ToLower(strings.TrimSpace(input.Email))
		}

		user, err = s.repo.Update(ctx, userID, user)
		if err != nil {
			if errors.Is(err, models.ErrConflict) {
				return nil, models.ErrConflict
			}
			s.logger.Error("failed to update profile", slog.String("user_id", userID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		s.audit.LogEvent(ctx, AuditEventInput{
			UserID:    &user.ID,
			Action:    models.AuditActionUpdate,
			Resource:  models.AuditResourceUser,
			Details:   "User " + user.Name + " updated their profile",
			IPAddress: ipAddress,
			UserAgent: userAgent,
		})
	}

	return userModelToResponse(user), nil
}

// sessionTimeout reads the admin-configured session length for token expiry.
func (s *AuthService) sessionTimeout(ctx context.Context) time.Duration {
	cfg, err := s.config.GetOrCreateDefault(ctx)
	if err != nil {
		return 0 // TokenManager falls back to its default
	}
	return cfg.SessionTimeout()
}

func (s *AuthService) passwordPolicy(ctx context.Context) pkgauth.PasswordPolicy {
	cfg, err := s.config.GetOrCreateDefault(ctx)
	if err != nil {
		return pkgauth.PasswordPolicy{MinLength: models.DefaultPasswordMinLength}
	}
	return pkgauth.PasswordPolicy{MinLength: cfg.PasswordMinLength}
}

// userModelToResponse converts a user model to a response DTO
func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Role:       user.Role,
		Department: user.Department,
		IsActive:   user.IsActive,
		CreatedAt:  user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  user.UpdatedAt.Format(time.RFC3339),
	}
}
