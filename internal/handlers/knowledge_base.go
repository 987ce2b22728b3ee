package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tmorvan/bankdesk/internal/models"
	"github.com/tmorvan/bankdesk/internal/services"
	pkghttp "github.com/tmorvan/bankdesk/pkg/http"
)

// ArticleServiceInterface defines the interface for knowledge-base logic
type ArticleServiceInterface interface {
	Search(ctx context.Context, filter models.ArticleFilter, actor services.Actor) ([]*models.Article, error)
	Get(ctx context.Context, id string, actor services.Actor) (*models.Article, error)
	Create(ctx context.Context, input services.ArticleInput, actor services.Actor) (*models.Article, error)
	Update(ctx context.Context, id string, input services.ArticleInput, actor services.Actor) (*models.Article, error)
	Delete(ctx context.Context, id string, actor services.Actor) error
	Rate(ctx context.Context, id string, helpful bool, actor services.Actor) error
}

// KnowledgeBaseHandler handles knowledge-base HTTP requests
type KnowledgeBaseHandler struct {
	service ArticleServiceInterface
}

// NewKnowledgeBaseHandler creates a new KnowledgeBaseHandler
func NewKnowledgeBaseHandler(service ArticleServiceInterface) *KnowledgeBaseHandler {
	return &KnowledgeBaseHandler{service: service}
}

// ArticleRequest represents the request body for creating or updating an article
type ArticleRequest struct {
	Title     string `json:"title" validate:"required,min=1,max=200"`
	Body      string `json:"body" validate:"required"`
	Category  string `json:"category" validate:"omitempty,max=100"`
	Published bool   `json:"published"`
}

// RateRequest represents the request body for rating an article
type RateRequest struct {
	Helpful *bool `json:"helpful" validate:"required"`
}

func writeArticleError(w http.ResponseWriter, err error) {
	var validation *models.ValidationError
	switch {
	case errors.As(err, &validation):
		pkghttp.WriteBadRequest(w, validation.Error())
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Article not found")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "You do not have access to this article")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// Search returns articles matching the query string and filters
func (h *KnowledgeBaseHandler) Search(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	q := r.URL.Query()
	filter := models.ArticleFilter{
		Query:    strings.TrimSpace(q.Get("q")),
		Category: q.Get("category"),
	}

	articles, err := h.service.Search(r.Context(), filter, actor)
	if err != nil {
		writeArticleError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, articles)
}

// Get returns a single article
func (h *KnowledgeBaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	article, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		writeArticleError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, article)
}

// Rate records reader feedback on an article
func (h *KnowledgeBaseHandler) Rate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.Rate(r.Context(), chi.URLParam(r, "id"), *req.Helpful, actor); err != nil {
		writeArticleError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "Rating recorded"})
}

// Create publishes a new article
func (h *KnowledgeBaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	article, err := h.service.Create(r.Context(), services.ArticleInput{
		Title:     req.Title,
		Body:      req.Body,
		Category:  req.Category,
		Published: req.Published,
	}, actor)
	if err != nil {
		writeArticleError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, article)
}

// Update edits an article
func (h *KnowledgeBaseHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	article, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), services.ArticleInput{
		Title:     req.Title,
		Body:      req.Body,
		Category:  req.Category,
		Published: req.Published,
	}, actor)
	if err != nil {
		writeArticleError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, article)
}

// Delete removes an article
func (h *KnowledgeBaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		writeArticleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
