package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/tmorvan/bankdesk/internal/database"
	"github.com/tmorvan/bankdesk/internal/models"
)

type TicketRepository struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(db *database.DB) *TicketRepository {
	return &TicketRepository{pool: db.Pool}
}

const ticketColumns = `id, title, description, category, priority, status, tags,
	created_by, assigned_to, resolved_at, created_at, updated_at`

func scanTicketRow(scanner rowScanner) (*models.Ticket, error) {
	var t models.Ticket
	var assignedTo *string
	var resolvedAt *time.Time

	err := scanner.Scan(
		&t.ID, &t.Title, &t.Description, &t.Category, &t.Priority, &t.Status,
		pq.Array(&t.Tags), &t.CreatedBy, &assignedTo, &resolvedAt,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	t.AssignedTo = assignedTo
	t.ResolvedAt = resolvedAt

	return &t, nil
}

func scanTicketRows(rows pgx.Rows) ([]*models.Ticket, error) {
	defer rows.Close()

	tickets := make([]*models.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicketRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return tickets, nil
}

func (r *TicketRepository) GetByID(ctx context.Context, id string) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	return scanTicketRow(r.pool.QueryRow(ctx, query, id))
}

func (r *TicketRepository) List(ctx context.Context, filter models.TicketFilter) ([]*models.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + ` FROM tickets
		WHERE ($1 = '' OR status = $1)
			AND ($2 = '' OR priority = $2)
			AND ($3 = '' OR category = $3)
			AND ($4 = '' OR assigned_to::text = $4)
			AND ($5 = '' OR created_by::text = $5)
		ORDER BY created_at DESC
		LIMIT $6 OFFSET $7
	`

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	rows, err := r.pool.Query(ctx, query,
		filter.Status, filter.Priority, filter.Category, filter.AssignedTo, filter.CreatedBy,
		limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}

	return scanTicketRows(rows)
}

func (r *TicketRepository) Create(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	ticket.ID = uuid.New().String()

	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now

	if ticket.Status == "" {
		ticket.Status = models.TicketStatusOpen
	}
	if ticket.Priority == "" {
		ticket.Priority = models.TicketPriorityMedium
	}
	if ticket.Tags == nil {
		ticket.Tags = []string{}
	}

	query := `
		INSERT INTO tickets (id, title, description, category, priority, status, tags, created_by, assigned_to, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + ticketColumns

	return scanTicketRow(r.pool.QueryRow(ctx, query,
		ticket.ID, ticket.Title, ticket.Description, ticket.Category,
		ticket.Priority, ticket.Status, pq.Array(ticket.Tags),
		ticket.CreatedBy, ticket.AssignedTo, ticket.CreatedAt, ticket.UpdatedAt,
	))
}

func (r *TicketRepository) Update(ctx context.Context, id string, ticket *models.Ticket) (*models.Ticket, error) {
	if ticket.Tags == nil {
		ticket.Tags = []string{}
	}

	query := `
		UPDATE tickets
		SET title = $1, description = $2, category = $3, priority = $4, status = $5,
			tags = $6, assigned_to = $7, resolved_at = $8, updated_at = $9
		WHERE id = $10
		RETURNING ` + ticketColumns

	return scanTicketRow(r.pool.QueryRow(ctx, query,
		ticket.Title, ticket.Description, ticket.Category, ticket.Priority,
		ticket.Status, pq.Array(ticket.Tags), ticket.AssignedTo, ticket.ResolvedAt,
		time.Now(), id,
	))
}

func (r *TicketRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Stats aggregates ticket counts for the admin dashboard.
func (r *TicketRepository) Stats(ctx context.Context) (*models.TicketStats, error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'open'),
			COUNT(*) FILTER (WHERE status = 'in-progress'),
			COUNT(*) FILTER (WHERE status = 'resolved'),
			COUNT(*) FILTER (WHERE status = 'closed'),
			COUNT(*) FILTER (WHERE priority = 'urgent' AND status NOT IN ('resolved', 'closed'))
		FROM tickets
	`

	var stats models.TicketStats
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.Total, &stats.Open, &stats.InProgress,
		&stats.Resolved, &stats.Closed, &stats.Urgent,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &stats, nil
}

// Comments

func (r *TicketRepository) AddComment(ctx context.Context, comment *models.TicketComment) (*models.TicketComment, error) {
	comment.ID = uuid.New().String()
	comment.CreatedAt = time.Now()

	query := `
		INSERT INTO ticket_comments (id, ticket_id, author_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		comment.ID, comment.TicketID, comment.AuthorID, comment.Body, comment.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return comment, nil
}

func (r *TicketRepository) ListComments(ctx context.Context, ticketID string) ([]*models.TicketComment, error) {
	query := `
		SELECT c.id, c.ticket_id, c.author_id, COALESCE(u.name, ''), c.body, c.created_at
		FROM ticket_comments c
		LEFT JOIN users u ON u.id = c.author_id
		WHERE c.ticket_id = $1
		ORDER BY c.created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := make([]*models.TicketComment, 0)
	for rows.Next() {
		var c models.TicketComment
		err := rows.Scan(&c.ID, &c.TicketID, &c.AuthorID, &c.AuthorName, &c.Body, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return comments, nil
}
