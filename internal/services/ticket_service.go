package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tmorvan/bankdesk/internal/models"
)

// TicketRepository defines ticket persistence.
type TicketRepository interface {
	GetByID(ctx context.Context, id string) (*models.Ticket, error)
	List(ctx context.Context, filter models.TicketFilter) ([]*models.Ticket, error)
	Create(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error)
	Update(ctx context.Context, id string, ticket *models.Ticket) (*models.Ticket, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.TicketStats, error)
	AddComment(ctx context.Context, comment *models.TicketComment) (*models.TicketComment, error)
	ListComments(ctx context.Context, ticketID string) ([]*models.TicketComment, error)
}

// Actor identifies the caller for role-scoped operations.
type Actor struct {
	ID   string
	Role string
}

// IsStaff reports whether the actor can see and manage all tickets.
func (a Actor) IsStaff() bool {
	return a.Role == models.RoleSupport || a.Role == models.RoleAdmin
}

// TicketService handles ticket lifecycle and comment threads with role
// scoping: requesters see their own tickets, staff see everything.
type TicketService struct {
	repo   TicketRepository
	audit  AuditRecorder
	logger *slog.Logger
}

// NewTicketService creates a new TicketService
func NewTicketService(repo TicketRepository, audit AuditRecorder, logger *slog.Logger) *TicketService {
	return &TicketService{
		repo:   repo,
		audit:  audit,
		logger: logger,
	}
}

// CreateTicketInput carries a new ticket.
type CreateTicketInput struct {
	Title       string
	Description string
	Category    string
	Priority    string
	Tags        []string
}

// UpdateTicketInput carries ticket edits. Nil pointers leave fields as-is.
type UpdateTicketInput struct {
	Title       *string
	Description *string
	Category    *string
	Priority    *string
	Status      *string
	Tags        []string
	AssignedTo  *string
}

func validPriority(p string) bool {
	switch p {
	case models.TicketPriorityLow, models.TicketPriorityMedium,
		models.TicketPriorityHigh, models.TicketPriorityUrgent:
		return true
	}
	return false
}

func validStatus(s string) bool {
	switch s {
	case models.TicketStatusOpen, models.TicketStatusInProgress,
		models.TicketStatusResolved, models.TicketStatusClosed:
		return true
	}
	return false
}

func (s *TicketService) Create(ctx context.Context, input CreateTicketInput, actor Actor) (*models.Ticket, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, &models.ValidationError{Field: "title", Message: "required"}
	}
	if input.Priority != "" && !validPriority(input.Priority) {
		return nil, &models.ValidationError{Field: "priority", Message: "must be one of low, medium, high, urgent"}
	}

	ticket := &models.Ticket{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Priority:    input.Priority,
		Tags:        input.Tags,
		CreatedBy:   actor.ID,
	}

	created, err := s.repo.Create(ctx, ticket)
	if err != nil {
		s.logger.Error("failed to create ticket", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.LogEvent(ctx, AuditEventInput{
		UserID:     &actor.ID,
		Action:     models.AuditActionCreate,
		Resource:   models.AuditResourceTicket,
		ResourceID: created.ID,
		Details:    "Created ticket: " + created.Title,
	})

	return created, nil
}

func (s *TicketService) Get(ctx context.Context, id string, actor Actor) (*models.Ticket, error) {
	ticket, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get ticket", slog.String("ticket_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !actor.IsStaff() && ticket.CreatedBy != actor.ID {
		return nil, models.ErrForbidden
	}

	return ticket, nil
}

func (s *TicketService) List(ctx context.Context, filter models.TicketFilter, actor Actor) ([]*models.Ticket, error) {
	if !actor.IsStaff() {
		filter.CreatedBy = actor.ID
	}

	tickets, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list tickets", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return tickets, nil
}

func (s *TicketService) Update(ctx context.Context, id string, input UpdateTicketInput, actor Actor) (*models.Ticket, error) {
	ticket, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	// Requesters may only edit their own open tickets; status, priority and
	// assignment changes are staff operations.
	if !actor.IsStaff() {
		if input.Status != nil || input.Priority != nil || input.AssignedTo != nil {
			return nil, models.ErrForbidden
		}
		if ticket.Status != models.TicketStatusOpen {
			return nil, models.ErrForbidden
		}
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, &models.ValidationError{Field: "title", Message: "required"}
		}
		ticket.Title = title
	}
	if input.Description != nil {
		ticket.Description = *input.Description
	}
	if input.Category != nil {
		ticket.Category = *input.Category
	}
	if input.Priority != nil {
		if !validPriority(*input.Priority) {
			return nil, &models.ValidationError{Field: "priority", Message: "must be one of low, medium, high, urgent"}
		}
		ticket.Priority = *input.Priority
	}
	if input.Status != nil {
		if !validStatus(*input.Status) {
			return nil, &models.ValidationError{Field: "status", Message: "must be one of open, in-progress, resolved, closed"}
		}
		if *input.Status == models.TicketStatusResolved && ticket.Status != models.TicketStatusResolved {
			now := time.Now()
			ticket.ResolvedAt = &now
		}
		ticket.Status = *input.Status
	}
	if input.Tags != nil {
		ticket.Tags = input.Tags
	}
	if input.AssignedTo != nil {
		if *input.AssignedTo == "" {
			ticket.AssignedTo = nil
		} else {
			ticket.AssignedTo = input.AssignedTo
		}
	}

	updated, err := s.repo.Update(ctx, id, ticket)
	if err != nil {
		s.logger.Error("failed to update ticket", slog.String("ticket_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.LogEvent(ctx, AuditEventInput{
		UserID:     &actor.ID,
		Action:     models.AuditActionUpdate,
		Resource:   models.AuditResourceTicket,
		ResourceID: updated.ID,
		Details:    "Updated ticket: " + updated.Title,
	})

	return updated, nil
}

func (s *TicketService) Delete(ctx context.Context, id string, actor Actor) error {
	if actor.Role != models.RoleAdmin {
		return models.ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete ticket", slog.String("ticket_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.LogEvent(ctx, AuditEventInput{
		UserID:     &actor.ID,
		Action:     models.AuditActionDelete,
		Resource:   models.AuditResourceTicket,
		ResourceID: id,
	})

	return nil
}

func (s *TicketService) AddComment(ctx context.Context, ticketID, body string, actor Actor) (*models.TicketComment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, &models.ValidationError{Field: "body", Message: "required"}
	}

	// Visibility check doubles as existence check.
	if _, err := s.Get(ctx, ticketID, actor); err != nil {
		return nil, err
	}

	comment := &models.TicketComment{
		TicketID: ticketID,
		AuthorID: actor.ID,
		Body:     body,
	}

	created, err := s.repo.AddComment(ctx, comment)
	if err != nil {
		s.logger.Error("failed to add comment", slog.String("ticket_id", ticketID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return created, nil
}

func (s *TicketService) ListComments(ctx context.Context, ticketID string, actor Actor) ([]*models.TicketComment, error) {
	if _, err := s.Get(ctx, ticketID, actor); err != nil {
		return nil, err
	}

	comments, err := s.repo.ListComments(ctx, ticketID)
	if err != nil {
		s.logger.Error("failed to list comments", slog.String("ticket_id", ticketID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return comments, nil
}

// Stats aggregates ticket counts for the admin dashboard.
func (s *TicketService) Stats(ctx context.Context) (*models.TicketStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		s.logger.Error("failed to load ticket stats", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return stats, nil
}
