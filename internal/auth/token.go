package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tmorvan/bankdesk/internal/models"
)

// TokenManager handles JWT token generation and validation
type TokenManager struct {
	secret        string
	defaultExpiry time.Duration
}

// NewTokenManager creates a new TokenManager. defaultExpiry is the fallback
// token lifetime used when no session timeout is supplied at issuance.
func NewTokenManager(secret string, defaultExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:        secret,
		defaultExpiry: defaultExpiry,
	}
}

// GenerateToken creates a session token for the user. expiry comes from the
// admin-configured session timeout; zero means use the default.
func (tm *TokenManager) GenerateToken(user *models.User, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = tm.defaultExpiry
	}

	now := time.Now()
	claims := &models.TokenClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken verifies a token and returns its claims
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("invalid token: missing subject")
	}

	return claims, nil
}
