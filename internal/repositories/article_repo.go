package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tmorvan/bankdesk/internal/database"
	"github.com/tmorvan/bankdesk/internal/models"
)

type ArticleRepository struct {
	pool *pgxpool.Pool
}

func NewArticleRepository(db *database.DB) *ArticleRepository {
	return &ArticleRepository{pool: db.Pool}
}

const articleColumns = `id, title, body, category, published, views, helpful, not_helpful, author_id, created_at, updated_at`

func scanArticleRow(scanner rowScanner) (*models.Article, error) {
	var a models.Article
	err := scanner.Scan(
		&a.ID, &a.Title, &a.Body, &a.Category, &a.Published, &a.Views,
		&a.Helpful, &a.NotHelpful, &a.AuthorID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &a, nil
}

func scanArticleRows(rows pgx.Rows) ([]*models.Article, error) {
	defer rows.Close()

	articles := make([]*models.Article, 0)
	for rows.Next() {
		article, err := scanArticleRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return articles, nil
}

func (r *ArticleRepository) GetByID(ctx context.Context, id string) (*models.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM kb_articles WHERE id = $1`
	return scanArticleRow(r.pool.QueryRow(ctx, query, id))
}

func (r *ArticleRepository) Search(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, error) {
	query := `
		SELECT ` + articleColumns + ` FROM kb_articles
		WHERE ($1 = '' OR title ILIKE '%' || $1 || '%' OR body ILIKE '%' || $1 || '%')
			AND ($2 = '' OR category = $2)
			AND (NOT $3 OR published)
		ORDER BY updated_at DESC
		LIMIT $4 OFFSET $5
	`

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	rows, err := r.pool.Query(ctx, query,
		filter.Query, filter.Category, filter.PublishedOnly, limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}

	return scanArticleRows(rows)
}

func (r *ArticleRepository) Create(ctx context.Context, article *models.Article) (*models.Article, error) {
	article.ID = uuid.New().String()

	now := time.Now()
	article.CreatedAt = now
	article.UpdatedAt = now

	query := `
		INSERT INTO kb_articles (id, title, body, category, published, views, helpful, not_helpful, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, 0, 0, $6, $7, $8)
		RETURNING ` + articleColumns

	return scanArticleRow(r.pool.QueryRow(ctx, query,
		article.ID, article.Title, article.Body, article.Category,
		article.Published, article.AuthorID, article.CreatedAt, article.UpdatedAt,
	))
}

func (r *ArticleRepository) Update(ctx context.Context, id string, article *models.Article) (*models.Article, error) {
	query := `
		UPDATE kb_articles
		SET title = $1, body = $2, category = $3, published = $4, updated_at = $5
		WHERE id = $6
		RETURNING ` + articleColumns

	return scanArticleRow(r.pool.QueryRow(ctx, query,
		article.Title, article.Body, article.Category, article.Published, time.Now(), id,
	))
}

func (r *ArticleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM kb_articles WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// IncrementViews bumps the view counter without touching updated_at.
func (r *ArticleRepository) IncrementViews(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE kb_articles SET views = views + 1 WHERE id = $1`, id)
	return database.MapPostgresError(err)
}

// Rate bumps one of the feedback counters without touching updated_at.
func (r *ArticleRepository) Rate(ctx context.Context, id string, helpful bool) error {
	query := `UPDATE kb_articles SET not_helpful = not_helpful + 1 WHERE id = $1`
	if helpful {
		query = `UPDATE kb_articles SET helpful = helpful + 1 WHERE id = $1`
	}

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
