package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tmorvan/bankdesk/internal/auth"
	"github.com/tmorvan/bankdesk/internal/models"
	"github.com/tmorvan/bankdesk/internal/services"
	pkghttp "github.com/tmorvan/bankdesk/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error)
	Logout(ctx context.Context, userID, ipAddress, userAgent string) error
	Me(ctx context.Context, userID string) (*services.UserResponse, error)
	UpdateProfile(ctx context.Context, userID string, input services.UpdateProfileInput, ipAddress, userAgent string) (*services.UserResponse, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest represents the request body for profile updates
type UpdateProfileRequest struct {
	Name            string `json:"name" validate:"omitempty,min=1,max=100"`
	Email           string `json:"email" validate:"omitempty,email"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Login handles user login. Failure responses carry distinct status codes:
// 400 for bad credentials (with remaining attempts when known), 403 for a
// deactivated account, 423 while a lockout holds.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	authResp, err := h.service.Login(r.Context(), req.Email, req.Password, ipAddress, userAgent)
	if err != nil {
		writeLoginError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, authResp)
}

func writeLoginError(w http.ResponseWriter, err error) {
	var locked *models.AccountLockedError
	var invalid *models.InvalidCredentialsError

	switch {
	case errors.As(err, &locked):
		w.Header().Set("Retry-After", locked.Until.UTC().Format(http.TimeFormat))
		pkghttp.WriteLocked(w, fmt.Sprintf(
			"Account temporarily locked due to repeated failed login attempts. Try again after %s.",
			locked.Until.UTC().Format(time.RFC3339)))
	case errors.Is(err, models.ErrAccountDeactivated):
		pkghttp.WriteForbidden(w, "Account is deactivated. Contact your administrator.")
	case errors.As(err, &invalid):
		if invalid.RemainingAttempts >= 0 {
			pkghttp.WriteBadRequest(w, fmt.Sprintf(
				"Invalid credentials. %d attempts remaining before account lockout.",
				invalid.RemainingAttempts))
			return
		}
		pkghttp.WriteBadRequest(w, "Invalid credentials.")
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteBadRequest(w, "Invalid credentials.")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// Logout handles user logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	if err := h.service.Logout(r.Context(), claims.UserID, ipAddress, userAgent); err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			pkghttp.WriteUnauthorized(w, "Authentication required")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me returns the authenticated user's profile
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	user, err := h.service.Me(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			pkghttp.WriteUnauthorized(w, "Authentication required")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}

// UpdateProfile updates the authenticated user's own account
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	user, err := h.service.UpdateProfile(r.Context(), claims.UserID, services.UpdateProfileInput{
		Name:            req.Name,
		Email:           req.Email,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	}, ipAddress, userAgent)
	if err != nil {
		var validation *models.ValidationError
		switch {
		case errors.As(err, &validation):
			pkghttp.WriteBadRequest(w, validation.Error())
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteBadRequest(w, "Current password is incorrect.")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "Email is already in use")
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Authentication required")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}
