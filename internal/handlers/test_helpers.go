package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/tmorvan/bankdesk/internal/auth"
	"github.com/tmorvan/bankdesk/internal/models"
	"github.com/tmorvan/bankdesk/internal/services"
	pkghttp "github.com/tmorvan/bankdesk/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds user claims to request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, userID, role string) *http.Request {
	claims := &models.TokenClaims{
		UserID: userID,
		Role:   role,
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// WithURLParam adds a chi route parameter to the request context
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc         func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error)
	LogoutFunc        func(ctx context.Context, userID, ipAddress, userAgent string) error
	MeFunc            func(ctx context.Context, userID string) (*services.UserResponse, error)
	UpdateProfileFunc func(ctx context.Context, userID string, input services.UpdateProfileInput, ipAddress, userAgent string) (*services.UserResponse, error)
}

func (m *MockAuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrInvalidCredentials
	}
	return m.LoginFunc(ctx, email, password, ipAddress, userAgent)
}

func (m *MockAuthService) Logout(ctx context.Context, userID, ipAddress, userAgent string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, userID, ipAddress, userAgent)
}

func (m *MockAuthService) Me(ctx context.Context, userID string) (*services.UserResponse, error) {
	if m.MeFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.MeFunc(ctx, userID)
}

func (m *MockAuthService) UpdateProfile(ctx context.Context, userID string, input services.UpdateProfileInput, ipAddress, userAgent string) (*services.UserResponse, error) {
	if m.UpdateProfileFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.UpdateProfileFunc(ctx, userID, input, ipAddress, userAgent)
}

// MockSystemConfigService implements SystemConfigServiceInterface for testing
type MockSystemConfigService struct {
	GetFunc           func(ctx context.Context) (*models.SystemConfig, error)
	UpdateFunc        func(ctx context.Context, input services.SystemConfigInput, updatedBy string) (*models.SystemConfig, error)
	ResetLockoutsFunc func(ctx context.Context, actorID string) (int64, error)
}

func (m *MockSystemConfigService) Get(ctx context.Context) (*models.SystemConfig, error) {
	if m.GetFunc == nil {
		return models.DefaultSystemConfig(), nil
	}
	return m.GetFunc(ctx)
}

func (m *MockSystemConfigService) Update(ctx context.Context, input services.SystemConfigInput, updatedBy string) (*models.SystemConfig, error) {
	if m.UpdateFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.UpdateFunc(ctx, input, updatedBy)
}

func (m *MockSystemConfigService) ResetLockouts(ctx context.Context, actorID string) (int64, error) {
	if m.ResetLockoutsFunc == nil {
		return 0, nil
	}
	return m.ResetLockoutsFunc(ctx, actorID)
}

// MockTicketService implements TicketServiceInterface for testing
type MockTicketService struct {
	CreateFunc       func(ctx context.Context, input services.CreateTicketInput, actor services.Actor) (*models.Ticket, error)
	GetFunc          func(ctx context.Context, id string, actor services.Actor) (*models.Ticket, error)
	ListFunc         func(ctx context.Context, filter models.TicketFilter, actor services.Actor) ([]*models.Ticket, error)
	UpdateFunc       func(ctx context.Context, id string, input services.UpdateTicketInput, actor services.Actor) (*models.Ticket, error)
	DeleteFunc       func(ctx context.Context, id string, actor services.Actor) error
	AddCommentFunc   func(ctx context.Context, ticketID, body string, actor services.Actor) (*models.TicketComment, error)
	ListCommentsFunc func(ctx context.Context, ticketID string, actor services.Actor) ([]*models.TicketComment, error)
	StatsFunc        func(ctx context.Context) (*models.TicketStats, error)
}

func (m *MockTicketService) Create(ctx context.Context, input services.CreateTicketInput, actor services.Actor) (*models.Ticket, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.CreateFunc(ctx, input, actor)
}

func (m *MockTicketService) Get(ctx context.Context, id string, actor services.Actor) (*models.Ticket, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id, actor)
}

func (m *MockTicketService) List(ctx context.Context, filter models.TicketFilter, actor services.Actor) ([]*models.Ticket, error) {
	if m.ListFunc == nil {
		return []*models.Ticket{}, nil
	}
	return m.ListFunc(ctx, filter, actor)
}

func (m *MockTicketService) Update(ctx context.Context, id string, input services.UpdateTicketInput, actor services.Actor) (*models.Ticket, error) {
	if m.UpdateFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.UpdateFunc(ctx, id, input, actor)
}

func (m *MockTicketService) Delete(ctx context.Context, id string, actor services.Actor) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, id, actor)
}

func (m *MockTicketService) AddComment(ctx context.Context, ticketID, body string, actor services.Actor) (*models.TicketComment, error) {
	if m.AddCommentFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.AddCommentFunc(ctx, ticketID, body, actor)
}

func (m *MockTicketService) ListComments(ctx context.Context, ticketID string, actor services.Actor) ([]*models.TicketComment, error) {
	if m.ListCommentsFunc == nil {
		return []*models.TicketComment{}, nil
	}
	return m.ListCommentsFunc(ctx, ticketID, actor)
}

func (m *MockTicketService) Stats(ctx context.Context) (*models.TicketStats, error) {
	if m.StatsFunc == nil {
		return &models.TicketStats{}, nil
	}
	return m.StatsFunc(ctx)
}

// MockUserService implements UserServiceInterface for testing
type MockUserService struct {
	ListFunc          func(ctx context.Context, limit, offset int) ([]*services.UserResponse, error)
	GetFunc           func(ctx context.Context, id string) (*services.UserResponse, error)
	CreateFunc        func(ctx context.Context, input services.CreateUserInput, actorID string) (*services.UserResponse, error)
	UpdateFunc        func(ctx context.Context, id string, input services.UpdateUserInput, actorID string) (*services.UserResponse, error)
	ResetPasswordFunc func(ctx context.Context, id, newPassword, actorID string) error
	SetActiveFunc     func(ctx context.Context, id string, active bool, actorID string) (*services.UserResponse, error)
	DeleteFunc        func(ctx context.Context, id, actorID string) error
}

func (m *MockUserService) List(ctx context.Context, limit, offset int) ([]*services.UserResponse, error) {
	if m.ListFunc == nil {
		return []*services.UserResponse{}, nil
	}
	return m.ListFunc(ctx, limit, offset)
}

func (m *MockUserService) Get(ctx context.Context, id string) (*services.UserResponse, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id)
}

func (m *MockUserService) Create(ctx context.Context, input services.CreateUserInput, actorID string) (*services.UserResponse, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.CreateFunc(ctx, input, actorID)
}

func (m *MockUserService) Update(ctx context.Context, id string, input services.UpdateUserInput, actorID string) (*services.UserResponse, error) {
	if m.UpdateFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.UpdateFunc(ctx, id, input, actorID)
}

func (m *MockUserService) ResetPassword(ctx context.Context, id, newPassword, actorID string) error {
	if m.ResetPasswordFunc == nil {
		return nil
	}
	return m.ResetPasswordFunc(ctx, id, newPassword, actorID)
}

func (m *MockUserService) SetActive(ctx context.Context, id string, active bool, actorID string) (*services.UserResponse, error) {
	if m.SetActiveFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.SetActiveFunc(ctx, id, active, actorID)
}

func (m *MockUserService) Delete(ctx context.Context, id, actorID string) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, id, actorID)
}

// MockArticleService implements ArticleServiceInterface for testing
type MockArticleService struct {
	SearchFunc func(ctx context.Context, filter models.ArticleFilter, actor services.Actor) ([]*models.Article, error)
	GetFunc    func(ctx context.Context, id string, actor services.Actor) (*models.Article, error)
	CreateFunc func(ctx context.Context, input services.ArticleInput, actor services.Actor) (*models.Article, error)
	UpdateFunc func(ctx context.Context, id string, input services.ArticleInput, actor services.Actor) (*models.Article, error)
	DeleteFunc func(ctx context.Context, id string, actor services.Actor) error
	RateFunc   func(ctx context.Context, id string, helpful bool, actor services.Actor) error
}

func (m *MockArticleService) Search(ctx context.Context, filter models.ArticleFilter, actor services.Actor) ([]*models.Article, error) {
	if m.SearchFunc == nil {
		return []*models.Article{}, nil
	}
	return m.SearchFunc(ctx, filter, actor)
}

func (m *MockArticleService) Get(ctx context.Context, id string, actor services.Actor) (*models.Article, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id, actor)
}

func (m *MockArticleService) Create(ctx context.Context, input services.ArticleInput, actor services.Actor) (*models.Article, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.CreateFunc(ctx, input, actor)
}

func (m *MockArticleService) Update(ctx context.Context, id string, input services.ArticleInput, actor services.Actor) (*models.Article, error) {
	if m.UpdateFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.UpdateFunc(ctx, id, input, actor)
}

func (m *MockArticleService) Delete(ctx context.Context, id string, actor services.Actor) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, id, actor)
}

func (m *MockArticleService) Rate(ctx context.Context, id string, helpful bool, actor services.Actor) error {
	if m.RateFunc == nil {
		return nil
	}
	return m.RateFunc(ctx, id, helpful, actor)
}
