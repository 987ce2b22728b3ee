package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tmorvan/bankdesk/internal/handlers"
	"github.com/tmorvan/bankdesk/internal/models"
	"github.com/tmorvan/bankdesk/internal/services"
)

func TestLoginHandler_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error) {
			return &services.AuthResponse{
				Token: "token_123",
				User:  &services.UserResponse{ID: "user-1", Email: email},
			}, nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/api/auth/login", handlers.LoginRequest{
		Email:    "analyst@bank.test",
		Password: "password123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	var resp services.AuthResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "token_123", resp.Token)
	assert.Equal(t, "user-1", resp.User.ID)
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error) {
			return nil, &models.InvalidCredentialsError{RemainingAttempts: 3}
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/api/auth/login", handlers.LoginRequest{
		Email:    "analyst@bank.test",
		Password: "wrongpassword",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
	assert.Contains(t, w.Body.String(), "3 attempts remaining")
}

func TestLoginHandler_UnknownAccountHidesAttemptCount(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error) {
			return nil, &models.InvalidCredentialsError{RemainingAttempts: -1}
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/api/auth/login", handlers.LoginRequest{
		Email:    "nobody@bank.test",
		Password: "password123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
	assert.NotContains(t, w.Body.String(), "attempts remaining")
}

func TestLoginHandler_AccountDeactivated(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error) {
			return nil, models.ErrAccountDeactivated
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/api/auth/login", handlers.LoginRequest{
		Email:    "former@bank.test",
		Password: "password123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 403, "forbidden")
}

func TestLoginHandler_AccountLocked(t *testing.T) {
	until := time.Now().Add(2 * time.Hour)
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error) {
			return nil, &models.AccountLockedError{Until: until}
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/api/auth/login", handlers.LoginRequest{
		Email:    "analyst@bank.test",
		Password: "password123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 423, "account_locked")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestLoginHandler_MissingFields(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, nil)
	req := handlers.NewTestRequest(t, "POST", "/api/auth/login", handlers.LoginRequest{
		Email: "analyst@bank.test",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestLoginHandler_InvalidJSON(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, nil)
	req := handlers.NewTestRequest(t, "POST", "/api/auth/login", nil)

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestMeHandler_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		MeFunc: func(ctx context.Context, userID string) (*services.UserResponse, error) {
			return &services.UserResponse{ID: userID, Email: "analyst@bank.test"}, nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.WithAuthContext(
		handlers.NewTestRequest(t, "GET", "/api/auth/me", nil),
		"user-1", models.RoleUser)

	w := httptest.NewRecorder()
	handler.Me(w, req)

	var resp services.UserResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "user-1", resp.ID)
}

func TestMeHandler_RequiresAuth(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, nil)
	req := handlers.NewTestRequest(t, "GET", "/api/auth/me", nil)

	w := httptest.NewRecorder()
	handler.Me(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestLogoutHandler_Success(t *testing.T) {
	called := false
	mockAuth := &handlers.MockAuthService{
		LogoutFunc: func(ctx context.Context, userID, ipAddress, userAgent string) error {
			called = true
			assert.Equal(t, "user-1", userID)
			return nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.WithAuthContext(
		handlers.NewTestRequest(t, "POST", "/api/auth/logout", nil),
		"user-1", models.RoleUser)

	w := httptest.NewRecorder()
	handler.Logout(w, req)

	assert.Equal(t, 200, w.Code)
	assert.True(t, called)
}

func TestUpdateProfileHandler_WrongCurrentPassword(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		UpdateProfileFunc: func(ctx context.Context, userID string, input services.UpdateProfileInput, ipAddress, userAgent string) (*services.UserResponse, error) {
			return nil, &models.InvalidCredentialsError{RemainingAttempts: -1}
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.WithAuthContext(
		handlers.NewTestRequest(t, "PUT", "/api/auth/me", handlers.UpdateProfileRequest{
			CurrentPassword: "wrong",
			NewPassword:     "new-password-123",
		}),
		"user-1", models.RoleUser)

	w := httptest.NewRecorder()
	handler.UpdateProfile(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}
