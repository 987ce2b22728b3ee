package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmorvan/bankdesk/internal/models"
	pkglogger "github.com/tmorvan/bankdesk/pkg/logger"
)

// SystemConfigRepository persists the singleton security-policy record.
type SystemConfigRepository interface {
	GetOrCreateDefault(ctx context.Context) (*models.SystemConfig, error)
	Update(ctx context.Context, cfg *models.SystemConfig, updatedBy string) (*models.SystemConfig, error)
}

// SystemConfigInput carries an administrative configuration update.
type SystemConfigInput struct {
	MaxFailedLoginAttempts int
	LockoutDurationHours   float64
	SessionTimeoutMinutes  int
	PasswordMinLength      int
	EnableAccountLockout   bool
}

// SystemConfigService manages the lockout policy record.
type SystemConfigService struct {
	repo        SystemConfigRepository
	lockout     *LockoutService
	audit       AuditRecorder
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewSystemConfigService creates a new SystemConfigService
func NewSystemConfigService(repo SystemConfigRepository, lockout *LockoutService, audit AuditRecorder, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *SystemConfigService {
	return &SystemConfigService{
		repo:        repo,
		lockout:     lockout,
		audit:       audit,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Get returns the configuration record, lazily creating the defaults.
func (s *SystemConfigService) Get(ctx context.Context) (*models.SystemConfig, error) {
	cfg, err := s.repo.GetOrCreateDefault(ctx)
	if err != nil {
		s.logger.Error("failed to load system config", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return cfg, nil
}

// Update validates and persists a new policy. Out-of-range values are
// rejected, never clamped.
func (s *SystemConfigService) Update(ctx context.Context, input SystemConfigInput, updatedBy string) (*models.SystemConfig, error) {
	if err := validateConfigInput(input); err != nil {
		return nil, err
	}

	// Lazy-create so the UPDATE always has a row to hit.
	if _, err := s.repo.GetOrCreateDefault(ctx); err != nil {
		s.logger.Error("failed to ensure system config exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	cfg := &models.SystemConfig{
		MaxFailedLoginAttempts: input.MaxFailedLoginAttempts,
		LockoutDurationHours:   input.LockoutDurationHours,
		SessionTimeoutMinutes:  input.SessionTimeoutMinutes,
		PasswordMinLength:      input.PasswordMinLength,
		EnableAccountLockout:   input.EnableAccountLockout,
	}

	updated, err := s.repo.Update(ctx, cfg, updatedBy)
	if err != nil {
		s.logger.Error("failed to update system config", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAdminAction("system_config_updated", updatedBy, map[string]string{
		"max_failed_login_attempts": fmt.Sprintf("%d", input.MaxFailedLoginAttempts),
		"lockout_duration_hours":    fmt.Sprintf("%g", input.LockoutDurationHours),
	})
	s.audit.LogEvent(ctx, AuditEventInput{
		UserID:   &updatedBy,
		Action:   models.AuditActionUpdate,
		Resource: models.AuditResourceSystemConfig,
		Details: fmt.Sprintf("Updated system configuration: max login attempts %d, lockout duration %gh",
			input.MaxFailedLoginAttempts, input.LockoutDurationHours),
	})

	return updated, nil
}

// ResetLockouts bulk-clears lockout state across all users.
func (s *SystemConfigService) ResetLockouts(ctx context.Context, actorID string) (int64, error) {
	count, err := s.lockout.ResetAllLockouts(ctx)
	if err != nil {
		return 0, err
	}

	s.auditLogger.LogAdminAction("lockouts_reset", actorID, map[string]string{
		"count": fmt.Sprintf("%d", count),
	})
	s.audit.LogEvent(ctx, AuditEventInput{
		UserID:   &actorID,
		Action:   models.AuditActionUpdate,
		Resource: models.AuditResourceUser,
		Details:  fmt.Sprintf("Reset lockouts for %d users", count),
	})

	return count, nil
}

func validateConfigInput(input SystemConfigInput) error {
	if input.MaxFailedLoginAttempts < 1 || input.MaxFailedLoginAttempts > 20 {
		return &models.ValidationError{Field: "max_failed_login_attempts", Message: "must be between 1 and 20"}
	}
	if input.LockoutDurationHours < 0.5 || input.LockoutDurationHours > 24 {
		return &models.ValidationError{Field: "lockout_duration_hours", Message: "must be between 0.5 and 24"}
	}
	if input.SessionTimeoutMinutes < 15 || input.SessionTimeoutMinutes > 480 {
		return &models.ValidationError{Field: "session_timeout_minutes", Message: "must be between 15 and 480"}
	}
	if input.PasswordMinLength < 4 || input.PasswordMinLength > 20 {
		return &models.ValidationError{Field: "password_min_length", Message: "must be between 4 and 20"}
	}
	return nil
}
