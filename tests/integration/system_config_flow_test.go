package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmorvan/bankdesk/internal/models"
)

func seedAdminToken(t *testing.T, ctx context.Context) string {
	t.Helper()
	admin, err := SeedUser(ctx, testDB.Pool, TestUserEmail("cfg-admin"), TestPassword, models.RoleAdmin, true)
	require.NoError(t, err)
	token, err := testServer.TokenFor(admin)
	require.NoError(t, err)
	return token
}

func TestSystemConfigDefaultsOnFirstRead(t *testing.T) {
	resetState(t)
	ctx := context.Background()
	adminToken := seedAdminToken(t, ctx)

	resp, err := testServer.RequestWithAuth(http.MethodGet, "/api/system-config", adminToken, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var cfg models.SystemConfig
	require.NoError(t, ParseJSONResponse(resp, &cfg))
	assert.Equal(t, models.DefaultMaxFailedLoginAttempts, cfg.MaxFailedLoginAttempts)
	assert.Equal(t, models.DefaultLockoutDurationHours, cfg.LockoutDurationHours)
	assert.Equal(t, models.DefaultSessionTimeoutMinutes, cfg.SessionTimeoutMinutes)
	assert.Equal(t, models.DefaultPasswordMinLength, cfg.PasswordMinLength)
	assert.True(t, cfg.EnableAccountLockout)
	assert.Nil(t, cfg.UpdatedBy)

	// Exactly one row exists after repeated reads
	resp, err = testServer.RequestWithAuth(http.MethodGet, "/api/system-config", adminToken, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var rows int
	require.NoError(t, testDB.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM system_config`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestSystemConfigUpdateDrivesLockoutPolicy(t *testing.T) {
	resetState(t)
	ctx := context.Background()
	adminToken := seedAdminToken(t, ctx)

	enable := true
	resp, err := testServer.RequestWithAuth(http.MethodPut, "/api/system-config", adminToken, map[string]interface{}{
		"max_failed_login_attempts": 2,
		"lockout_duration_hours":    1.0,
		"session_timeout_minutes":   30,
		"password_min_length":       8,
		"enable_account_lockout":    enable,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var cfg models.SystemConfig
	require.NoError(t, ParseJSONResponse(resp, &cfg))
	assert.Equal(t, 2, cfg.MaxFailedLoginAttempts)
	require.NotNil(t, cfg.UpdatedBy)

	// The tightened threshold takes effect immediately
	email := TestUserEmail("policy")
	user, err := SeedUser(ctx, testDB.Pool, email, TestPassword, models.RoleUser, true)
	require.NoError(t, err)

	resp, err = testServer.Login(email, "wrong-password")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp, err = testServer.Login(email, "wrong-password")
	require.NoError(t, err)
	assert.Equal(t, http.StatusLocked, resp.StatusCode)
	resp.Body.Close()

	attempts, lockoutUntil, err := GetLockoutState(ctx, testDB.Pool, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.NotNil(t, lockoutUntil)
}

func TestSystemConfigDisabledLockoutNeverLocks(t *testing.T) {
	resetState(t)
	ctx := context.Background()
	adminToken := seedAdminToken(t, ctx)

	resp, err := testServer.RequestWithAuth(http.MethodPut, "/api/system-config", adminToken, map[string]interface{}{
		"max_failed_login_attempts": 2,
		"lockout_duration_hours":    1.0,
		"session_timeout_minutes":   30,
		"password_min_length":       8,
		"enable_account_lockout":    false,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	email := TestUserEmail("nolock")
	user, err := SeedUser(ctx, testDB.Pool, email, TestPassword, models.RoleUser, true)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		resp, err := testServer.Login(email, "wrong-password")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	}

	attempts, lockoutUntil, err := GetLockoutState(ctx, testDB.Pool, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, attempts)
	assert.Nil(t, lockoutUntil)
}

func TestSystemConfigRejectsOutOfRangeValues(t *testing.T) {
	resetState(t)
	ctx := context.Background()
	adminToken := seedAdminToken(t, ctx)

	resp, err := testServer.RequestWithAuth(http.MethodPut, "/api/system-config", adminToken, map[string]interface{}{
		"max_failed_login_attempts": 21,
		"lockout_duration_hours":    1.0,
		"session_timeout_minutes":   30,
		"password_min_length":       8,
		"enable_account_lockout":    true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Stored policy is untouched
	resp, err = testServer.RequestWithAuth(http.MethodGet, "/api/system-config", adminToken, nil)
	require.NoError(t, err)
	var cfg models.SystemConfig
	require.NoError(t, ParseJSONResponse(resp, &cfg))
	assert.Equal(t, models.DefaultMaxFailedLoginAttempts, cfg.MaxFailedLoginAttempts)
}

func TestSystemConfigRequiresAdminRole(t *testing.T) {
	resetState(t)
	ctx := context.Background()

	user, err := SeedUser(ctx, testDB.Pool, TestUserEmail("plain"), TestPassword, models.RoleUser, true)
	require.NoError(t, err)
	token, err := testServer.TokenFor(user)
	require.NoError(t, err)

	resp, err := testServer.RequestWithAuth(http.MethodGet, "/api/system-config", token, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}
