package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tmorvan/bankdesk/internal/handlers"
	"github.com/tmorvan/bankdesk/internal/models"
	"github.com/tmorvan/bankdesk/internal/services"
)

func boolPtr(b bool) *bool { return &b }

func TestGetSystemConfig(t *testing.T) {
	mockSvc := &handlers.MockSystemConfigService{
		GetFunc: func(ctx context.Context) (*models.SystemConfig, error) {
			return models.DefaultSystemConfig(), nil
		},
	}

	handler := handlers.NewSystemConfigHandler(mockSvc)
	req := handlers.NewTestRequest(t, "GET", "/api/system-config", nil)

	w := httptest.NewRecorder()
	handler.Get(w, req)

	var resp models.SystemConfig
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, 5, resp.MaxFailedLoginAttempts)
	assert.True(t, resp.EnableAccountLockout)
}

func TestUpdateSystemConfig_Success(t *testing.T) {
	var gotInput services.SystemConfigInput
	var gotActor string
	mockSvc := &handlers.MockSystemConfigService{
		UpdateFunc: func(ctx context.Context, input services.SystemConfigInput, updatedBy string) (*models.SystemConfig, error) {
			gotInput = input
			gotActor = updatedBy
			return models.DefaultSystemConfig(), nil
		},
	}

	handler := handlers.NewSystemConfigHandler(mockSvc)
	req := handlers.WithAuthContext(
		handlers.NewTestRequest(t, "PUT", "/api/system-config", handlers.UpdateSystemConfigRequest{
			MaxFailedLoginAttempts: 3,
			LockoutDurationHours:   1,
			SessionTimeoutMinutes:  30,
			PasswordMinLength:      8,
			EnableAccountLockout:   boolPtr(true),
		}),
		"admin-1", models.RoleAdmin)

	w := httptest.NewRecorder()
	handler.Update(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, 3, gotInput.MaxFailedLoginAttempts)
	assert.Equal(t, "admin-1", gotActor)
}

func TestUpdateSystemConfig_RejectsOutOfRange(t *testing.T) {
	called := false
	mockSvc := &handlers.MockSystemConfigService{
		UpdateFunc: func(ctx context.Context, input services.SystemConfigInput, updatedBy string) (*models.SystemConfig, error) {
			called = true
			return models.DefaultSystemConfig(), nil
		},
	}

	handler := handlers.NewSystemConfigHandler(mockSvc)
	req := handlers.WithAuthContext(
		handlers.NewTestRequest(t, "PUT", "/api/system-config", handlers.UpdateSystemConfigRequest{
			MaxFailedLoginAttempts: 21,
			LockoutDurationHours:   2,
			SessionTimeoutMinutes:  60,
			PasswordMinLength:      6,
			EnableAccountLockout:   boolPtr(true),
		}),
		"admin-1", models.RoleAdmin)

	w := httptest.NewRecorder()
	handler.Update(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
	assert.False(t, called)
}

func TestUpdateSystemConfig_RequiresLockoutFlag(t *testing.T) {
	handler := handlers.NewSystemConfigHandler(&handlers.MockSystemConfigService{})
	req := handlers.WithAuthContext(
		handlers.NewTestRequest(t, "PUT", "/api/system-config", handlers.UpdateSystemConfigRequest{
			MaxFailedLoginAttempts: 5,
			LockoutDurationHours:   2,
			SessionTimeoutMinutes:  60,
			PasswordMinLength:      6,
		}),
		"admin-1", models.RoleAdmin)

	w := httptest.NewRecorder()
	handler.Update(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestResetLockouts(t *testing.T) {
	mockSvc := &handlers.MockSystemConfigService{
		ResetLockoutsFunc: func(ctx context.Context, actorID string) (int64, error) {
			assert.Equal(t, "admin-1", actorID)
			return 3, nil
		},
	}

	handler := handlers.NewSystemConfigHandler(mockSvc)
	req := handlers.WithAuthContext(
		handlers.NewTestRequest(t, "POST", "/api/system-config/reset-lockouts", nil),
		"admin-1", models.RoleAdmin)

	w := httptest.NewRecorder()
	handler.ResetLockouts(w, req)

	var resp handlers.ResetLockoutsResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, int64(3), resp.Count)
}
