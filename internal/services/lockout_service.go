package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/tmorvan/bankdesk/internal/models"
	pkglogger "github.com/tmorvan/bankdesk/pkg/logger"
)

// LockoutRepository is the slice of user persistence the lockout engine
// needs: a single mutation that returns the post-mutation record, and the
// administrative bulk reset.
type LockoutRepository interface {
	UpdateLockoutState(ctx context.Context, id string, attempts int, lockoutUntil, lastFailedLogin *time.Time) (*models.User, error)
	ResetAllLockouts(ctx context.Context) (int64, error)
}

// ConfigProvider supplies the current lockout policy, lazily creating the
// defaults when the record does not exist yet.
type ConfigProvider interface {
	GetOrCreateDefault(ctx context.Context) (*models.SystemConfig, error)
}

// AccessDecision is the outcome of a pre-authentication lockout check.
type AccessDecision struct {
	Allowed     bool
	Deactivated bool
	RetryAfter  *time.Time // set when denied due to an unexpired lockout
}

// LockoutService implements the account-lockout state machine. Each user
// cycles between unlocked and locked based on the failure counter and the
// admin-configured policy; the lockout duration honors the configured
// lockout_duration_hours value.
type LockoutService struct {
	repo        LockoutRepository
	config      ConfigProvider
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewLockoutService creates a new LockoutService
func NewLockoutService(repo LockoutRepository, config ConfigProvider, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *LockoutService {
	return &LockoutService{
		repo:        repo,
		config:      config,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// CheckAccess decides whether an authentication attempt may proceed.
// Deactivated accounts are denied regardless of lockout state.
func (s *LockoutService) CheckAccess(user *models.User) AccessDecision {
	if !user.IsActive {
		return AccessDecision{Allowed: false, Deactivated: true}
	}

	if user.IsLocked(time.Now()) {
		return AccessDecision{Allowed: false, RetryAfter: user.LockoutUntil}
	}

	return AccessDecision{Allowed: true}
}

// RecordFailedAttempt applies the failure transition and persists it,
// returning the post-mutation user record.
//
// An attempt against an account whose lockout has not expired mutates
// nothing; the record is returned unchanged. An expired lockout is cleared
// and the counter restarts at 1. An attempt that pushes the counter to the
// configured maximum transitions the account to locked for the configured
// duration, unless lockout is disabled by policy.
func (s *LockoutService) RecordFailedAttempt(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now()
	if user.IsLocked(now) {
		return user, nil
	}

	cfg := s.policy(ctx)

	attempts := user.FailedLoginAttempts + 1
	if user.LockoutUntil != nil {
		// Previous lockout expired: restart counting from a clean state.
		attempts = 1
	}

	var lockoutUntil *time.Time
	newlyLocked := false
	if cfg.EnableAccountLockout && attempts >= cfg.MaxFailedLoginAttempts {
		until := now.Add(cfg.LockoutDuration())
		lockoutUntil = &until
		newlyLocked = true
	}

	updated, err := s.repo.UpdateLockoutState(ctx, user.ID, attempts, lockoutUntil, &now)
	if err != nil {
		s.logger.Error("failed to persist lockout state",
			slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if newlyLocked {
		s.logger.Warn("account locked after repeated failures",
			slog.String("user_id", user.ID),
			slog.Int("failed_attempts", attempts))
		s.auditLogger.LogLockoutChange("account_locked", user.ID, lockoutUntil)
	}

	return updated, nil
}

// RecordSuccessfulAttempt clears the lockout fields. Safe to call when none
// of them are set; the write is skipped in that case.
func (s *LockoutService) RecordSuccessfulAttempt(ctx context.Context, user *models.User) (*models.User, error) {
	if user.FailedLoginAttempts == 0 && user.LockoutUntil == nil && user.LastFailedLogin == nil {
		return user, nil
	}

	updated, err := s.repo.UpdateLockoutState(ctx, user.ID, 0, nil, nil)
	if err != nil {
		s.logger.Error("failed to clear lockout state",
			slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return updated, nil
}

// ResetAllLockouts clears lockout state for every affected user and returns
// the number of records touched.
func (s *LockoutService) ResetAllLockouts(ctx context.Context) (int64, error) {
	count, err := s.repo.ResetAllLockouts(ctx)
	if err != nil {
		s.logger.Error("failed to reset lockouts", slog.Any("error", err))
		return 0, models.ErrInternalServer
	}

	s.logger.Info("lockouts reset", slog.Int64("count", count))
	return count, nil
}

// RemainingAttempts computes the attempts left before lockout for display,
// clamped at zero.
func (s *LockoutService) RemainingAttempts(ctx context.Context, user *models.User) int {
	cfg := s.policy(ctx)

	remaining := cfg.MaxFailedLoginAttempts - user.FailedLoginAttempts
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// policy loads the current configuration, falling back to the documented
// defaults when the store is unreachable.
func (s *LockoutService) policy(ctx context.Context) *models.SystemConfig {
	cfg, err := s.config.GetOrCreateDefault(ctx)
	if err != nil {
		s.logger.Error("failed to load lockout policy, using defaults", slog.Any("error", err))
		return models.DefaultSystemConfig()
	}
	return cfg
}
