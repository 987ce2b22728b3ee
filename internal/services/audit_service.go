package services

import (
	"context"
	"log/slog"

	"github.com/tmorvan/bankdesk/internal/models"
)

// AuditLogRepository defines the persistence operations for audit entries.
type AuditLogRepository interface {
	Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
	List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error)
}

// AuditEventInput describes a security-relevant event to record.
type AuditEventInput struct {
	UserID     *string
	Action     string
	Resource   string
	ResourceID string
	Details    string
	IPAddress  string
	UserAgent  string
}

// AuditService records security-relevant events with a dual write: an
// immediate slog line and a durable row. Persistence failures are logged and
// swallowed so audit recording never fails the operation it accompanies.
type AuditService struct {
	repo   AuditLogRepository
	logger *slog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo AuditLogRepository, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:   repo,
		logger: logger,
	}
}

// LogEvent records an audit event. Fire-and-forget: errors never propagate.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEventInput) {
	attrs := []slog.Attr{
		slog.String("action", event.Action),
		slog.String("resource", event.Resource),
	}
	if event.UserID != nil {
		attrs = append(attrs, slog.String("user_id", *event.UserID))
	}
	if event.ResourceID != "" {
		attrs = append(attrs, slog.String("resource_id", event.ResourceID))
	}
	if event.Details != "" {
		attrs = append(attrs, slog.String("details", event.Details))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "audit event", attrs...)

	log := &models.AuditLog{
		UserID:   event.UserID,
		Action:   event.Action,
		Resource: event.Resource,
	}
	if event.ResourceID != "" {
		log.ResourceID = &event.ResourceID
	}
	if event.Details != "" {
		log.Details = &event.Details
	}
	if event.IPAddress != "" {
		log.IPAddress = &event.IPAddress
	}
	if event.UserAgent != "" {
		log.UserAgent = &event.UserAgent
	}

	if _, err := s.repo.Create(ctx, log); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist audit log",
			slog.String("action", event.Action),
			slog.String("resource", event.Resource),
			slog.Any("error", err),
		)
	}
}

// List returns audit entries for the admin screen.
func (s *AuditService) List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error) {
	logs, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list audit logs", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return logs, nil
}
