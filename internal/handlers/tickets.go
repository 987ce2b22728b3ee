package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tmorvan/bankdesk/internal/auth"
	"github.com/tmorvan/bankdesk/internal/models"
	"github.com/tmorvan/bankdesk/internal/services"
	pkghttp "github.com/tmorvan/bankdesk/pkg/http"
)

// TicketServiceInterface defines the interface for ticket business logic
type TicketServiceInterface interface {
	Create(ctx context.Context, input services.CreateTicketInput, actor services.Actor) (*models.Ticket, error)
	Get(ctx context.Context, id string, actor services.Actor) (*models.Ticket, error)
	List(ctx context.Context, filter models.TicketFilter, actor services.Actor) ([]*models.Ticket, error)
	Update(ctx context.Context, id string, input services.UpdateTicketInput, actor services.Actor) (*models.Ticket, error)
	Delete(ctx context.Context, id string, actor services.Actor) error
	AddComment(ctx context.Context, ticketID, body string, actor services.Actor) (*models.TicketComment, error)
	ListComments(ctx context.Context, ticketID string, actor services.Actor) ([]*models.TicketComment, error)
	Stats(ctx context.Context) (*models.TicketStats, error)
}

// TicketHandler handles ticket HTTP requests
type TicketHandler struct {
	service TicketServiceInterface
}

// NewTicketHandler creates a new TicketHandler
func NewTicketHandler(service TicketServiceInterface) *TicketHandler {
	return &TicketHandler{service: service}
}

// CreateTicketRequest represents the request body for opening a ticket
type CreateTicketRequest struct {
	Title       string   `json:"title" validate:"required,min=1,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Category    string   `json:"category" validate:"omitempty,max=100"`
	Priority    string   `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Tags        []string `json:"tags" validate:"omitempty,max=10,dive,max=50"`
}

// UpdateTicketRequest represents the request body for ticket edits
type UpdateTicketRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=5000"`
	Category    *string  `json:"category" validate:"omitempty,max=100"`
	Priority    *string  `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Status      *string  `json:"status" validate:"omitempty,oneof=open in-progress resolved closed"`
	Tags        []string `json:"tags" validate:"omitempty,max=10,dive,max=50"`
	AssignedTo  *string  `json:"assigned_to"`
}

// AddCommentRequest represents the request body for a ticket comment
type AddCommentRequest struct {
	Body string `json:"body" validate:"required,min=1,max=5000"`
}

func actorFromRequest(r *http.Request) (services.Actor, bool) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		return services.Actor{}, false
	}
	return services.Actor{ID: claims.UserID, Role: claims.Role}, true
}

func writeTicketError(w http.ResponseWriter, err error) {
	var validation *models.ValidationError
	switch {
	case errors.As(err, &validation):
		pkghttp.WriteBadRequest(w, validation.Error())
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Ticket not found")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "You do not have access to this ticket")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// Create opens a new ticket
func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req CreateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ticket, err := h.service.Create(r.Context(), services.CreateTicketInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Tags:        req.Tags,
	}, actor)
	if err != nil {
		writeTicketError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, ticket)
}

// Get returns a single ticket
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	ticket, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		writeTicketError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, ticket)
}

// List returns tickets visible to the caller, with optional filters
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	q := r.URL.Query()
	filter := models.TicketFilter{
		Status:     q.Get("status"),
		Priority:   q.Get("priority"),
		Category:   q.Get("category"),
		AssignedTo: q.Get("assigned_to"),
	}

	tickets, err := h.service.List(r.Context(), filter, actor)
	if err != nil {
		writeTicketError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, tickets)
}

// Update edits a ticket
func (h *TicketHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req UpdateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ticket, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), services.UpdateTicketInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Status:      req.Status,
		Tags:        req.Tags,
		AssignedTo:  req.AssignedTo,
	}, actor)
	if err != nil {
		writeTicketError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, ticket)
}

// Delete removes a ticket
func (h *TicketHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		writeTicketError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddComment appends a comment to a ticket
func (h *TicketHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	comment, err := h.service.AddComment(r.Context(), chi.URLParam(r, "id"), req.Body, actor)
	if err != nil {
		writeTicketError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, comment)
}

// ListComments returns a ticket's comment thread
func (h *TicketHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	comments, err := h.service.ListComments(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		writeTicketError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, comments)
}

// Stats returns ticket counts for the admin dashboard
func (h *TicketHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, stats)
}
