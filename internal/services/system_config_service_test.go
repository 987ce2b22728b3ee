package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmorvan/bankdesk/internal/models"
)

func newConfigService(configRepo *MockConfigRepository, userRepo *MockUserRepository) (*SystemConfigService, *MockAuditRecorder) {
	logger, auditLogger := newTestLoggers()
	lockout := NewLockoutService(userRepo, configRepo, logger, auditLogger)
	recorder := &MockAuditRecorder{}
	return NewSystemConfigService(configRepo, lockout, recorder, logger, auditLogger), recorder
}

func validInput() SystemConfigInput {
	return SystemConfigInput{
		MaxFailedLoginAttempts: 5,
		LockoutDurationHours:   2,
		SessionTimeoutMinutes:  60,
		PasswordMinLength:      6,
		EnableAccountLockout:   true,
	}
}

func TestConfigGet_LazilyCreatesDefaults(t *testing.T) {
	created := false
	configRepo := &MockConfigRepository{
		GetOrCreateDefaultFunc: func(ctx context.Context) (*models.SystemConfig, error) {
			created = true
			return models.DefaultSystemConfig(), nil
		},
	}
	svc, _ := newConfigService(configRepo, &MockUserRepository{})

	cfg, err := svc.Get(context.Background())

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 5, cfg.MaxFailedLoginAttempts)
	assert.Equal(t, 2.0, cfg.LockoutDurationHours)
	assert.Equal(t, 60, cfg.SessionTimeoutMinutes)
	assert.Equal(t, 6, cfg.PasswordMinLength)
	assert.True(t, cfg.EnableAccountLockout)
}

func TestConfigUpdate_PersistsAndRecordsActor(t *testing.T) {
	configRepo := &MockConfigRepository{}
	svc, recorder := newConfigService(configRepo, &MockUserRepository{})

	input := validInput()
	input.MaxFailedLoginAttempts = 3
	input.LockoutDurationHours = 0.5

	updated, err := svc.Update(context.Background(), input, "admin-1")

	require.NoError(t, err)
	assert.Equal(t, 3, updated.MaxFailedLoginAttempts)
	assert.Equal(t, 0.5, updated.LockoutDurationHours)
	require.NotNil(t, updated.UpdatedBy)
	assert.Equal(t, "admin-1", *updated.UpdatedBy)

	require.Len(t, recorder.Events, 1)
	assert.Equal(t, models.AuditResourceSystemConfig, recorder.Events[0].Resource)
}

func TestConfigUpdate_RejectsOutOfRangeValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SystemConfigInput)
	}{
		{"attempts below minimum", func(i *SystemConfigInput) { i.MaxFailedLoginAttempts = 0 }},
		{"attempts above maximum", func(i *SystemConfigInput) { i.MaxFailedLoginAttempts = 21 }},
		{"duration below minimum", func(i *SystemConfigInput) { i.LockoutDurationHours = 0.4 }},
		{"duration above maximum", func(i *SystemConfigInput) { i.LockoutDurationHours = 25 }},
		{"session below minimum", func(i *SystemConfigInput) { i.SessionTimeoutMinutes = 14 }},
		{"session above maximum", func(i *SystemConfigInput) { i.SessionTimeoutMinutes = 481 }},
		{"password length below minimum", func(i *SystemConfigInput) { i.PasswordMinLength = 3 }},
		{"password length above maximum", func(i *SystemConfigInput) { i.PasswordMinLength = 21 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			persisted := false
			configRepo := &MockConfigRepository{
				UpdateFunc: func(ctx context.Context, cfg *models.SystemConfig, updatedBy string) (*models.SystemConfig, error) {
					persisted = true
					return cfg, nil
				},
			}
			svc, _ := newConfigService(configRepo, &MockUserRepository{})

			input := validInput()
			tt.mutate(&input)

			_, err := svc.Update(context.Background(), input, "admin-1")

			assert.ErrorIs(t, err, models.ErrValidation)
			assert.False(t, persisted)
		})
	}
}

func TestConfigUpdate_AcceptsBoundaryValues(t *testing.T) {
	configRepo := &MockConfigRepository{}
	svc, _ := newConfigService(configRepo, &MockUserRepository{})

	input := SystemConfigInput{
		MaxFailedLoginAttempts: 1,
		LockoutDurationHours:   24,
		SessionTimeoutMinutes:  480,
		PasswordMinLength:      20,
		EnableAccountLockout:   false,
	}

	updated, err := svc.Update(context.Background(), input, "admin-1")

	require.NoError(t, err)
	assert.Equal(t, 1, updated.MaxFailedLoginAttempts)
	assert.False(t, updated.EnableAccountLockout)
}

func TestResetLockouts_ReportsCountAndAudits(t *testing.T) {
	userRepo := &MockUserRepository{
		ResetAllLockoutsFunc: func(ctx context.Context) (int64, error) {
			return 4, nil
		},
	}
	svc, recorder := newConfigService(&MockConfigRepository{}, userRepo)

	count, err := svc.ResetLockouts(context.Background(), "admin-1")

	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
	require.Len(t, recorder.Events, 1)
	require.NotNil(t, recorder.Events[0].UserID)
	assert.Equal(t, "admin-1", *recorder.Events[0].UserID)
}

func TestResetLockouts_ZeroAffected(t *testing.T) {
	svc, _ := newConfigService(&MockConfigRepository{}, &MockUserRepository{})

	count, err := svc.ResetLockouts(context.Background(), "admin-1")

	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
