package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmorvan/bankdesk/internal/auth"
	"github.com/tmorvan/bankdesk/internal/models"
	pkgauth "github.com/tmorvan/bankdesk/pkg/auth"
)

const testPassword = "correct-horse-battery"

func newAuthService(t *testing.T, repo *MockUserRepository, cfg *models.SystemConfig) (*AuthService, *MockAuditRecorder) {
	t.Helper()
	logger, auditLogger := newTestLoggers()
	configRepo := &MockConfigRepository{
		GetOrCreateDefaultFunc: func(ctx context.Context) (*models.SystemConfig, error) {
			return cfg, nil
		},
	}
	lockout := NewLockoutService(repo, configRepo, logger, auditLogger)
	tm := auth.NewTokenManager("test-secret-with-enough-entropy-0123456789", time.Hour)
	recorder := &MockAuditRecorder{}
	svc := NewAuthService(repo, lockout, configRepo, tm, recorder, logger, auditLogger)
	return svc, recorder
}

func newCredentialedUser(t *testing.T) *models.User {
	t.Helper()
	hash, err := pkgauth.HashPassword(testPassword)
	require.NoError(t, err)
	user := NewTestUser("user-1", "analyst@bank.test", "Analyst")
	user.PasswordHash = hash
	return user
}

func TestLogin_Success(t *testing.T) {
	user := newCredentialedUser(t)
	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			assert.Equal(t, "analyst@bank.test", email)
			return user, nil
		},
	}
	svc, recorder := newAuthService(t, repo, models.DefaultSystemConfig())

	resp, err := svc.Login(context.Background(), "  Analyst@Bank.Test ", testPassword, "10.0.0.1", "test-agent")

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, user.ID, resp.User.ID)

	require.Len(t, recorder.Events, 1)
	assert.Equal(t, models.AuditActionLogin, recorder.Events[0].Action)
	assert.Equal(t, "10.0.0.1", recorder.Events[0].IPAddress)
}

func TestLogin_SuccessClearsFailureState(t *testing.T) {
	user := newCredentialedUser(t)
	user.FailedLoginAttempts = 3
	last := time.Now().Add(-time.Minute)
	user.LastFailedLogin = &last

	cleared := false
	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		UpdateLockoutStateFunc: func(ctx context.Context, id string, attempts int, lockoutUntil, lastFailedLogin *time.Time) (*models.User, error) {
			cleared = attempts == 0 && lockoutUntil == nil && lastFailedLogin == nil
			out := *user
			out.FailedLoginAttempts = attempts
			out.LockoutUntil = lockoutUntil
			out.LastFailedLogin = lastFailedLogin
			return &out, nil
		},
	}
	svc, _ := newAuthService(t, repo, models.DefaultSystemConfig())

	_, err := svc.Login(context.Background(), user.Email, testPassword, "10.0.0.1", "test-agent")

	require.NoError(t, err)
	assert.True(t, cleared)
}

func TestLogin_UnknownEmail(t *testing.T) {
	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
	}
	svc, _ := newAuthService(t, repo, models.DefaultSystemConfig())

	_, err := svc.Login(context.Background(), "nobody@bank.test", "whatever", "10.0.0.1", "test-agent")

	var invalid *models.InvalidCredentialsError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, -1, invalid.RemainingAttempts)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestLogin_EmptyEmail(t *testing.T) {
	svc, _ := newAuthService(t, &MockUserRepository{}, models.DefaultSystemConfig())

	_, err := svc.Login(context.Background(), "   ", "whatever", "10.0.0.1", "test-agent")

	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestLogin_DeactivatedBeforeLockout(t *testing.T) {
	user := newCredentialedUser(t)
	user.IsActive = false
	until := time.Now().Add(time.Hour)
	user.LockoutUntil = &until

	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}
	svc, _ := newAuthService(t, repo, models.DefaultSystemConfig())

	_, err := svc.Login(context.Background(), user.Email, testPassword, "10.0.0.1", "test-agent")

	assert.ErrorIs(t, err, models.ErrAccountDeactivated)
}

func TestLogin_LockedBeforePasswordCheck(t *testing.T) {
	user := newCredentialedUser(t)
	until := time.Now().Add(time.Hour)
	user.LockoutUntil = &until
	user.FailedLoginAttempts = 5

	mutated := false
	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		UpdateLockoutStateFunc: func(ctx context.Context, id string, attempts int, lockoutUntil, lastFailedLogin *time.Time) (*models.User, error) {
			mutated = true
			return user, nil
		},
	}
	svc, _ := newAuthService(t, repo, models.DefaultSystemConfig())

	// Even the correct password is rejected while the lockout holds, and the
	// failure counter is left untouched.
	_, err := svc.Login(context.Background(), user.Email, testPassword, "10.0.0.1", "test-agent")

	var locked *models.AccountLockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, until, locked.Until)
	assert.False(t, mutated)
}

func TestLogin_WrongPasswordReportsRemainingAttempts(t *testing.T) {
	user := newCredentialedUser(t)
	user.FailedLoginAttempts = 1

	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		UpdateLockoutStateFunc: func(ctx context.Context, id string, attempts int, lockoutUntil, lastFailedLogin *time.Time) (*models.User, error) {
			out := *user
			out.FailedLoginAttempts = attempts
			out.LockoutUntil = lockoutUntil
			out.LastFailedLogin = lastFailedLogin
			return &out, nil
		},
	}
	svc, _ := newAuthService(t, repo, models.DefaultSystemConfig())

	_, err := svc.Login(context.Background(), user.Email, "wrong-password", "10.0.0.1", "test-agent")

	var invalid *models.InvalidCredentialsError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 3, invalid.RemainingAttempts)
}

func TestLogin_FinalWrongPasswordReportsLockout(t *testing.T) {
	user := newCredentialedUser(t)
	user.FailedLoginAttempts = 4

	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		UpdateLockoutStateFunc: func(ctx context.Context, id string, attempts int, lockoutUntil, lastFailedLogin *time.Time) (*models.User, error) {
			out := *user
			out.FailedLoginAttempts = attempts
			out.LockoutUntil = lockoutUntil
			out.LastFailedLogin = lastFailedLogin
			return &out, nil
		},
	}
	svc, _ := newAuthService(t, repo, models.DefaultSystemConfig())

	_, err := svc.Login(context.Background(), user.Email, "wrong-password", "10.0.0.1", "test-agent")

	var locked *models.AccountLockedError
	require.ErrorAs(t, err, &locked)
	assert.True(t, locked.Until.After(time.Now()))
	assert.ErrorIs(t, err, models.ErrAccountLocked)
}

func TestLogin_ThreeStrikesScenario(t *testing.T) {
	cfg := models.DefaultSystemConfig()
	cfg.MaxFailedLoginAttempts = 3

	user := newCredentialedUser(t)
	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		UpdateLockoutStateFunc: func(ctx context.Context, id string, attempts int, lockoutUntil, lastFailedLogin *time.Time) (*models.User, error) {
			user.FailedLoginAttempts = attempts
			user.LockoutUntil = lockoutUntil
			user.LastFailedLogin = lastFailedLogin
			return user, nil
		},
	}
	svc, _ := newAuthService(t, repo, cfg)
	ctx := context.Background()

	var invalid *models.InvalidCredentialsError

	_, err := svc.Login(ctx, user.Email, "wrong", "10.0.0.1", "test-agent")
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 2, invalid.RemainingAttempts)

	_, err = svc.Login(ctx, user.Email, "wrong", "10.0.0.1", "test-agent")
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 1, invalid.RemainingAttempts)

	_, err = svc.Login(ctx, user.Email, "wrong", "10.0.0.1", "test-agent")
	var locked *models.AccountLockedError
	require.ErrorAs(t, err, &locked)

	// Subsequent attempts, even with the right password, stay locked.
	_, err = svc.Login(ctx, user.Email, testPassword, "10.0.0.1", "test-agent")
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, 3, user.FailedLoginAttempts)
}

func TestLogout_RecordsAuditEvent(t *testing.T) {
	user := NewTestUser("user-1", "analyst@bank.test", "Analyst")
	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}
	svc, recorder := newAuthService(t, repo, models.DefaultSystemConfig())

	err := svc.Logout(context.Background(), user.ID, "10.0.0.1", "test-agent")

	require.NoError(t, err)
	require.Len(t, recorder.Events, 1)
	assert.Equal(t, models.AuditActionLogout, recorder.Events[0].Action)
}

func TestMe_UnknownUserIsUnauthorized(t *testing.T) {
	svc, _ := newAuthService(t, &MockUserRepository{}, models.DefaultSystemConfig())

	_, err := svc.Me(context.Background(), "missing")

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestUpdateProfile_PasswordChangeRequiresCurrentPassword(t *testing.T) {
	user := newCredentialedUser(t)
	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}
	svc, _ := newAuthService(t, repo, models.DefaultSystemConfig())

	_, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		NewPassword: "new-password-123",
	}, "10.0.0.1", "test-agent")

	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestUpdateProfile_PasswordChangeEnforcesPolicy(t *testing.T) {
	cfg := models.DefaultSystemConfig()
	cfg.PasswordMinLength = 12

	user := newCredentialedUser(t)
	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}
	svc, _ := newAuthService(t, repo, cfg)

	_, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		CurrentPassword: testPassword,
		NewPassword:     "short",
	}, "10.0.0.1", "test-agent")

	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestUpdateProfile_PasswordChange(t *testing.T) {
	user := newCredentialedUser(t)
	var storedHash string
	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		UpdatePasswordFunc: func(ctx context.Context, id, passwordHash string) error {
			storedHash = passwordHash
			return nil
		},
	}
	svc, recorder := newAuthService(t, repo, models.DefaultSystemConfig())

	_, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		CurrentPassword: testPassword,
		NewPassword:     "brand-new-password",
	}, "10.0.0.1", "test-agent")

	require.NoError(t, err)
	require.NotEmpty(t, storedHash)
	assert.NoError(t, pkgauth.ComparePassword(storedHash, "brand-new-password"))
	require.Len(t, recorder.Events, 1)
	assert.Equal(t, models.AuditActionPasswordChange, recorder.Events[0].Action)
}

func TestUpdateProfile_NonAdminCannotEditIdentity(t *testing.T) {
	user := newCredentialedUser(t)
	updateCalled := false
	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		UpdateFunc: func(ctx context.Context, id string, u *models.User) (*models.User, error) {
			updateCalled = true
			return u, nil
		},
	}
	svc, _ := newAuthService(t, repo, models.DefaultSystemConfig())

	resp, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		Name:  "New Name",
		Email: "new@bank.test",
	}, "10.0.0.1", "test-agent")

	require.NoError(t, err)
	assert.False(t, updateCalled)
	assert.Equal(t, "Analyst", resp.Name)
}
