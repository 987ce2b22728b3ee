package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/tmorvan/bankdesk/internal/models"
	pkgauth "github.com/tmorvan/bankdesk/pkg/auth"
)

// UserService handles administrative staff-account management.
type UserService struct {
	repo   UserRepository
	config ConfigProvider
	audit  AuditRecorder
	logger *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, config ConfigProvider, audit AuditRecorder, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		config: config,
		audit:  audit,
		logger: logger,
	}
}

// CreateUserInput carries an admin-created account.
type CreateUserInput struct {
	Name       string
	Email      string
	Password   string
	Role       string
	Department string
}

func (s *UserService) List(ctx context.Context, limit, offset int) ([]*UserResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	responses := make([]*UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, userModelToResponse(user))
	}
	return responses, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return userModelToResponse(user), nil
}

func (s *UserService) Create(ctx context.Context, input CreateUserInput, actorID string) (*UserResponse, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)

	if input.Role == "" {
		input.Role = models.RoleUser
	}
	if !models.ValidRole(input.Role) {
		return nil, &models.ValidationError{Field: "role", Message: "must be one of user, support, admin"}
	}

	policy := s.passwordPolicy(ctx)
	if err := pkgauth.ValidatePassword(input.Password, policy); err != nil {
		return nil, &models.ValidationError{Field: "password", Message: err.Error()}
	}

	_, err := s.repo.GetByEmail(ctx, input.Email)
	if err == nil {
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if user exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hash, err := pkgauth.HashPassword(input.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := &models.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		Department:   input.Department,
		IsActive:     true,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user created", slog.String("user_id", created.ID), slog.String("role", created.Role))
	s.audit.LogEvent(ctx, AuditEventInput{
		UserID:     &actorID,
		Action:     models.AuditActionCreate,
		Resource:   models.AuditResourceUser,
		ResourceID: created.ID,
		Details:    "Created account for " + created.Name,
	})

	return userModelToResponse(created), nil
}

// UpdateUserInput carries admin edits to an existing account.
type UpdateUserInput struct {
	Name       string
	Email      string
	Role       string
	Department string
}

// Update applies admin edits to an account. Activation state and lockout
// state are untouched; those have their own operations.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput, actorID string) (*UserResponse, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)

	if !models.ValidRole(input.Role) {
		return nil, &models.ValidationError{Field: "role", Message: "must be one of user, support, admin"}
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user.Name = input.Name
	user.Email = input.Email
	user.Role = input.Role
	user.Department = input.Department

	updated, err := s.repo.Update(ctx, id, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to update user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.LogEvent(ctx, AuditEventInput{
		UserID:     &actorID,
		Action:     models.AuditActionUpdate,
		Resource:   models.AuditResourceUser,
		ResourceID: updated.ID,
		Details:    "Updated account for " + updated.Name,
	})

	return userModelToResponse(updated), nil
}

// ResetPassword sets a new password on an account without requiring the old
// one. Reserved for administrators.
func (s *UserService) ResetPassword(ctx context.Context, id, newPassword, actorID string) error {
	policy := s.passwordPolicy(ctx)
	if err := pkgauth.ValidatePassword(newPassword, policy); err != nil {
		return &models.ValidationError{Field: "new_password", Message: err.Error()}
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to reset password", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.LogEvent(ctx, AuditEventInput{
		UserID:     &actorID,
		Action:     models.AuditActionPasswordChange,
		Resource:   models.AuditResourceUser,
		ResourceID: user.ID,
		Details:    "Reset password for " + user.Name,
	})

	return nil
}

// SetActive toggles account activation. Deactivation takes effect on the
// next request; it does not modify lockout state.
func (s *UserService) SetActive(ctx context.Context, id string, active bool, actorID string) (*UserResponse, error) {
	if id == actorID && !active {
		return nil, &models.ValidationError{Field: "is_active", Message: "cannot deactivate your own account"}
	}

	user, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to set user status", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	details := "Deactivated account for " + user.Name
	if active {
		details = "Reactivated account for " + user.Name
	}
	s.audit.LogEvent(ctx, AuditEventInput{
		UserID:     &actorID,
		Action:     models.AuditActionUpdate,
		Resource:   models.AuditResourceUser,
		ResourceID: user.ID,
		Details:    details,
	})

	return userModelToResponse(user), nil
}

func (s *UserService) Delete(ctx context.Context, id, actorID string) error {
	if id == actorID {
		return &models.ValidationError{Field: "id", Message: "cannot delete your own account"}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete user", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.LogEvent(ctx, AuditEventInput{
		UserID:     &actorID,
		Action:     models.AuditActionDelete,
		Resource:   models.AuditResourceUser,
		ResourceID: id,
	})

	return nil
}

func (s *UserService) passwordPolicy(ctx context.Context) pkgauth.PasswordPolicy {
	cfg, err := s.config.GetOrCreateDefault(ctx)
	if err != nil {
		return pkgauth.PasswordPolicy{MinLength: models.DefaultPasswordMinLength}
	}
	return pkgauth.PasswordPolicy{MinLength: cfg.PasswordMinLength}
}
