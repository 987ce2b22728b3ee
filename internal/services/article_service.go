package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/tmorvan/bankdesk/internal/models"
)

// ArticleRepository defines knowledge-base persistence.
type ArticleRepository interface {
	GetByID(ctx context.Context, id string) (*models.Article, error)
	Search(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, error)
	Create(ctx context.Context, article *models.Article) (*models.Article, error)
	Update(ctx context.Context, id string, article *models.Article) (*models.Article, error)
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	Rate(ctx context.Context, id string, helpful bool) error
}

// ArticleService manages the knowledge base. Write operations are admin-only
// (enforced at the route layer); non-staff readers only see published entries.
type ArticleService struct {
	repo   ArticleRepository
	audit  AuditRecorder
	logger *slog.Logger
}

// NewArticleService creates a new ArticleService
func NewArticleService(repo ArticleRepository, audit AuditRecorder, logger *slog.Logger) *ArticleService {
	return &ArticleService{
		repo:   repo,
		audit:  audit,
		logger: logger,
	}
}

// ArticleInput carries article create/update fields.
type ArticleInput struct {
	Title     string
	Body      string
	Category  string
	Published bool
}

func (s *ArticleService) Search(ctx context.Context, filter models.ArticleFilter, actor Actor) ([]*models.Article, error) {
	if actor.Role != models.RoleAdmin {
		filter.PublishedOnly = true
	}

	articles, err := s.repo.Search(ctx, filter)
	if err != nil {
		s.logger.Error("failed to search articles", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return articles, nil
}

// Get returns an article and bumps its view counter. Counter failures are
// logged only; the read still succeeds.
func (s *ArticleService) Get(ctx context.Context, id string, actor Actor) (*models.Article, error) {
	article, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get article", slog.String("article_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !article.Published && actor.Role != models.RoleAdmin {
		return nil, models.ErrNotFound
	}

	if err := s.repo.IncrementViews(ctx, id); err != nil {
		s.logger.Warn("failed to increment article views", slog.String("article_id", id), slog.Any("error", err))
	}

	return article, nil
}

// Rate records reader feedback on an article. Unpublished articles are
// invisible to non-admins, same as Get.
func (s *ArticleService) Rate(ctx context.Context, id string, helpful bool, actor Actor) error {
	article, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get article", slog.String("article_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if !article.Published && actor.Role != models.RoleAdmin {
		return models.ErrNotFound
	}

	if err := s.repo.Rate(ctx, id, helpful); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to rate article", slog.String("article_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	return nil
}

func (s *ArticleService) Create(ctx context.Context, input ArticleInput, actor Actor) (*models.Article, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, &models.ValidationError{Field: "title", Message: "required"}
	}

	article := &models.Article{
		Title:     input.Title,
		Body:      input.Body,
		Category:  input.Category,
		Published: input.Published,
		AuthorID:  actor.ID,
	}

	created, err := s.repo.Create(ctx, article)
	if err != nil {
		s.logger.Error("failed to create article", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.LogEvent(ctx, AuditEventInput{
		UserID:     &actor.ID,
		Action:     models.AuditActionCreate,
		Resource:   models.AuditResourceArticle,
		ResourceID: created.ID,
		Details:    "Created article: " + created.Title,
	})

	return created, nil
}

func (s *ArticleService) Update(ctx context.Context, id string, input ArticleInput, actor Actor) (*models.Article, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, &models.ValidationError{Field: "title", Message: "required"}
	}

	article := &models.Article{
		Title:     input.Title,
		Body:      input.Body,
		Category:  input.Category,
		Published: input.Published,
	}

	updated, err := s.repo.Update(ctx, id, article)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update article", slog.String("article_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.LogEvent(ctx, AuditEventInput{
		UserID:     &actor.ID,
		Action:     models.AuditActionUpdate,
		Resource:   models.AuditResourceArticle,
		ResourceID: updated.ID,
		Details:    "Updated article: " + updated.Title,
	})

	return updated, nil
}

func (s *ArticleService) Delete(ctx context.Context, id string, actor Actor) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete article", slog.String("article_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.LogEvent(ctx, AuditEventInput{
		UserID:     &actor.ID,
		Action:     models.AuditActionDelete,
		Resource:   models.AuditResourceArticle,
		ResourceID: id,
	})

	return nil
}
