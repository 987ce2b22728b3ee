package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/tmorvan/bankdesk/internal/models"
	pkghttp "github.com/tmorvan/bankdesk/pkg/http"
)

// AuditServiceInterface defines the interface for querying audit history
type AuditServiceInterface interface {
	List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error)
}

// AuditHandler handles the admin audit-trail endpoints
type AuditHandler struct {
	service AuditServiceInterface
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(service AuditServiceInterface) *AuditHandler {
	return &AuditHandler{service: service}
}

// List returns audit entries, newest first, with optional filters
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	logs, err := h.service.List(r.Context(), models.AuditLogFilter{
		UserID:   q.Get("user_id"),
		Action:   q.Get("action"),
		Resource: q.Get("resource"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, logs)
}
