package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/tmorvan/bankdesk/internal/models"
	pkglogger "github.com/tmorvan/bankdesk/pkg/logger"
)

// MockUserRepository implements UserRepository and LockoutRepository for testing
type MockUserRepository struct {
	GetByIDFunc            func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc         func(ctx context.Context, email string) (*models.User, error)
	ListFunc               func(ctx context.Context, limit, offset int) ([]*models.User, error)
	CreateFunc             func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc             func(ctx context.Context, id string, user *models.User) (*models.User, error)
	UpdatePasswordFunc     func(ctx context.Context, id, passwordHash string) error
	SetActiveFunc          func(ctx context.Context, id string, active bool) (*models.User, error)
	DeleteFunc             func(ctx context.Context, id string) error
	UpdateLockoutStateFunc func(ctx context.Context, id string, attempts int, lockoutUntil, lastFailedLogin *time.Time) (*models.User, error)
	ResetAllLockoutsFunc   func(ctx context.Context) (int64, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	if m.SetActiveFunc != nil {
		return m.SetActiveFunc(ctx, id, active)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) UpdateLockoutState(ctx context.Context, id string, attempts int, lockoutUntil, lastFailedLogin *time.Time) (*models.User, error) {
	if m.UpdateLockoutStateFunc != nil {
		return m.UpdateLockoutStateFunc(ctx, id, attempts, lockoutUntil, lastFailedLogin)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) ResetAllLockouts(ctx context.Context) (int64, error) {
	if m.ResetAllLockoutsFunc != nil {
		return m.ResetAllLockoutsFunc(ctx)
	}
	return 0, nil
}

// MockConfigRepository implements ConfigProvider and SystemConfigRepository for testing
type MockConfigRepository struct {
	GetOrCreateDefaultFunc func(ctx context.Context) (*models.SystemConfig, error)
	UpdateFunc             func(ctx context.Context, cfg *models.SystemConfig, updatedBy string) (*models.SystemConfig, error)
}

func (m *MockConfigRepository) GetOrCreateDefault(ctx context.Context) (*models.SystemConfig, error) {
	if m.GetOrCreateDefaultFunc != nil {
		return m.GetOrCreateDefaultFunc(ctx)
	}
	return models.DefaultSystemConfig(), nil
}

func (m *MockConfigRepository) Update(ctx context.Context, cfg *models.SystemConfig, updatedBy string) (*models.SystemConfig, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, cfg, updatedBy)
	}
	out := *cfg
	out.UpdatedBy = &updatedBy
	return &out, nil
}

// MockAuditLogRepository implements AuditLogRepository for testing
type MockAuditLogRepository struct {
	CreateFunc func(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
	ListFunc   func(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error)

	Created []*models.AuditLog
}

func (m *MockAuditLogRepository) Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error) {
	m.Created = append(m.Created, log)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, log)
	}
	return log, nil
}

func (m *MockAuditLogRepository) List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return []*models.AuditLog{}, nil
}

// MockTicketRepository implements TicketRepository for testing
type MockTicketRepository struct {
	GetByIDFunc      func(ctx context.Context, id string) (*models.Ticket, error)
	ListFunc         func(ctx context.Context, filter models.TicketFilter) ([]*models.Ticket, error)
	CreateFunc       func(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error)
	UpdateFunc       func(ctx context.Context, id string, ticket *models.Ticket) (*models.Ticket, error)
	DeleteFunc       func(ctx context.Context, id string) error
	StatsFunc        func(ctx context.Context) (*models.TicketStats, error)
	AddCommentFunc   func(ctx context.Context, comment *models.TicketComment) (*models.TicketComment, error)
	ListCommentsFunc func(ctx context.Context, ticketID string) ([]*models.TicketComment, error)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id string) (*models.Ticket, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockTicketRepository) List(ctx context.Context, filter models.TicketFilter) ([]*models.Ticket, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return []*models.Ticket{}, nil
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, ticket)
	}
	return nil, models.ErrInternalServer
}

func (m *MockTicketRepository) Update(ctx context.Context, id string, ticket *models.Ticket) (*models.Ticket, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, ticket)
	}
	return nil, models.ErrInternalServer
}

func (m *MockTicketRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockTicketRepository) Stats(ctx context.Context) (*models.TicketStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &models.TicketStats{}, nil
}

func (m *MockTicketRepository) AddComment(ctx context.Context, comment *models.TicketComment) (*models.TicketComment, error) {
	if m.AddCommentFunc != nil {
		return m.AddCommentFunc(ctx, comment)
	}
	return comment, nil
}

func (m *MockTicketRepository) ListComments(ctx context.Context, ticketID string) ([]*models.TicketComment, error) {
	if m.ListCommentsFunc != nil {
		return m.ListCommentsFunc(ctx, ticketID)
	}
	return []*models.TicketComment{}, nil
}

// MockArticleRepository implements ArticleRepository for testing
type MockArticleRepository struct {
	GetByIDFunc        func(ctx context.Context, id string) (*models.Article, error)
	SearchFunc         func(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, error)
	CreateFunc         func(ctx context.Context, article *models.Article) (*models.Article, error)
	UpdateFunc         func(ctx context.Context, id string, article *models.Article) (*models.Article, error)
	DeleteFunc         func(ctx context.Context, id string) error
	IncrementViewsFunc func(ctx context.Context, id string) error
	RateFunc           func(ctx context.Context, id string, helpful bool) error
}

func (m *MockArticleRepository) GetByID(ctx context.Context, id string) (*models.Article, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockArticleRepository) Search(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, filter)
	}
	return []*models.Article{}, nil
}

func (m *MockArticleRepository) Create(ctx context.Context, article *models.Article) (*models.Article, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, article)
	}
	return nil, models.ErrInternalServer
}

func (m *MockArticleRepository) Update(ctx context.Context, id string, article *models.Article) (*models.Article, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, article)
	}
	return nil, models.ErrInternalServer
}

func (m *MockArticleRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockArticleRepository) IncrementViews(ctx context.Context, id string) error {
	if m.IncrementViewsFunc != nil {
		return m.IncrementViewsFunc(ctx, id)
	}
	return nil
}

func (m *MockArticleRepository) Rate(ctx context.Context, id string, helpful bool) error {
	if m.RateFunc != nil {
		return m.RateFunc(ctx, id, helpful)
	}
	return nil
}

// MockAuditRecorder implements AuditRecorder for testing
type MockAuditRecorder struct {
	Events []AuditEventInput
}

func (m *MockAuditRecorder) LogEvent(ctx context.Context, event AuditEventInput) {
	m.Events = append(m.Events, event)
}

func newTestLoggers() (*slog.Logger, *pkglogger.AuditLogger) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return logger, pkglogger.NewAuditLogger(logger)
}

// NewTestUser builds an active user with clean lockout state
func NewTestUser(id, email, name string) *models.User {
	now := time.Now()
	return &models.User{
		ID:        id,
		Email:     email,
		Name:      name,
		Role:      models.RoleUser,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
