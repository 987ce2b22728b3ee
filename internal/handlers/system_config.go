package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tmorvan/bankdesk/internal/auth"
	"github.com/tmorvan/bankdesk/internal/models"
	"github.com/tmorvan/bankdesk/internal/services"
	pkghttp "github.com/tmorvan/bankdesk/pkg/http"
)

// SystemConfigServiceInterface defines the interface for config management
type SystemConfigServiceInterface interface {
	Get(ctx context.Context) (*models.SystemConfig, error)
	Update(ctx context.Context, input services.SystemConfigInput, updatedBy string) (*models.SystemConfig, error)
	ResetLockouts(ctx context.Context, actorID string) (int64, error)
}

// SystemConfigHandler handles the admin security-policy endpoints
type SystemConfigHandler struct {
	service SystemConfigServiceInterface
}

// NewSystemConfigHandler creates a new SystemConfigHandler
func NewSystemConfigHandler(service SystemConfigServiceInterface) *SystemConfigHandler {
	return &SystemConfigHandler{service: service}
}

// UpdateSystemConfigRequest represents the request body for config updates.
// The bounds mirror the persistence-layer validation so bad values fail fast.
type UpdateSystemConfigRequest struct {
	MaxFailedLoginAttempts int     `json:"max_failed_login_attempts" validate:"required,gte=1,lte=20"`
	LockoutDurationHours   float64 `json:"lockout_duration_hours" validate:"required,gte=0.5,lte=24"`
	SessionTimeoutMinutes  int     `json:"session_timeout_minutes" validate:"required,gte=15,lte=480"`
	PasswordMinLength      int     `json:"password_min_length" validate:"required,gte=4,lte=20"`
	EnableAccountLockout   *bool   `json:"enable_account_lockout" validate:"required"`
}

// Get returns the current configuration, creating the defaults on first read
func (h *SystemConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Get(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, cfg)
}

// Update replaces the security policy
func (h *SystemConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req UpdateSystemConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	cfg, err := h.service.Update(r.Context(), services.SystemConfigInput{
		MaxFailedLoginAttempts: req.MaxFailedLoginAttempts,
		LockoutDurationHours:   req.LockoutDurationHours,
		SessionTimeoutMinutes:  req.SessionTimeoutMinutes,
		PasswordMinLength:      req.PasswordMinLength,
		EnableAccountLockout:   *req.EnableAccountLockout,
	}, claims.UserID)
	if err != nil {
		var validation *models.ValidationError
		if errors.As(err, &validation) {
			pkghttp.WriteBadRequest(w, validation.Error())
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, cfg)
}

// ResetLockoutsResponse reports how many accounts were unlocked
type ResetLockoutsResponse struct {
	Message string `json:"message"`
	Count   int64  `json:"count"`
}

// ResetLockouts clears lockout state for all users
func (h *SystemConfigHandler) ResetLockouts(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	count, err := h.service.ResetLockouts(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, ResetLockoutsResponse{
		Message: "Account lockouts reset",
		Count:   count,
	})
}
