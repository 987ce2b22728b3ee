package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmorvan/bankdesk/internal/models"
)

type stubUserRepo struct {
	user *models.User
	err  error
}

func (s *stubUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

func okHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", time.Hour)
	next, called := okHandler()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	AuthMiddleware(tm)(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, *called)
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", time.Hour)
	next, called := okHandler()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Token abc")
	AuthMiddleware(tm)(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, *called)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", time.Hour)
	user := &models.User{ID: "user-1", Email: "u@bank.example", Role: models.RoleUser}

	token, err := tm.GenerateToken(user, 0)
	require.NoError(t, err)

	var gotClaims *models.TokenClaims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = GetUserFromContext(r)
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	AuthMiddleware(tm)(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, gotClaims)
	assert.Equal(t, "user-1", gotClaims.UserID)
}

func TestRequireRole_Allowed(t *testing.T) {
	repo := &stubUserRepo{user: &models.User{ID: "admin-1", Role: models.RoleAdmin, IsActive: true}}
	next, called := okHandler()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	ctx := context.WithValue(r.Context(), UserContextKey, &models.TokenClaims{UserID: "admin-1"})
	RequireRole(repo, models.RoleAdmin)(next).ServeHTTP(w, r.WithContext(ctx))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, *called)
}

func TestRequireRole_WrongRole(t *testing.T) {
	repo := &stubUserRepo{user: &models.User{ID: "user-1", Role: models.RoleUser, IsActive: true}}
	next, called := okHandler()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	ctx := context.WithValue(r.Context(), UserContextKey, &models.TokenClaims{UserID: "user-1"})
	RequireRole(repo, models.RoleAdmin)(next).ServeHTTP(w, r.WithContext(ctx))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, *called)
}

func TestRequireRole_MultipleRoles(t *testing.T) {
	repo := &stubUserRepo{user: &models.User{ID: "sup-1", Role: models.RoleSupport, IsActive: true}}
	next, called := okHandler()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	ctx := context.WithValue(r.Context(), UserContextKey, &models.TokenClaims{UserID: "sup-1"})
	RequireRole(repo, models.RoleSupport, models.RoleAdmin)(next).ServeHTTP(w, r.WithContext(ctx))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, *called)
}

func TestRequireRole_DeactivatedAccount(t *testing.T) {
	repo := &stubUserRepo{user: &models.User{ID: "user-1", Role: models.RoleAdmin, IsActive: false}}
	next, called := okHandler()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	ctx := context.WithValue(r.Context(), UserContextKey, &models.TokenClaims{UserID: "user-1"})
	RequireRole(repo, models.RoleAdmin)(next).ServeHTTP(w, r.WithContext(ctx))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, *called)
}

func TestRequireRole_UserGone(t *testing.T) {
	repo := &stubUserRepo{err: models.ErrNotFound}
	next, called := okHandler()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	ctx := context.WithValue(r.Context(), UserContextKey, &models.TokenClaims{UserID: "ghost"})
	RequireRole(repo, models.RoleAdmin)(next).ServeHTTP(w, r.WithContext(ctx))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, *called)
}
