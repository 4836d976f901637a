// Package jwt validates and issues the access tokens that authenticate API
// requests.
package jwt

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/whatisboom/blendroom-sub001/pkg/errors"
)

// Claims are the token claims carried by API access tokens. CatalogToken is
// the user's music-catalog credential, forwarded so the engine can read
// listening history on the user's behalf.
type Claims struct {
	UserID       string `json:"user_id"`
	DisplayName  string `json:"display_name,omitempty"`
	CatalogToken string `json:"catalog_token,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and validates tokens with a shared HMAC secret.
type Manager struct {
	secret      []byte
	issuer      string
	tokenExpiry time.Duration
}

// Config holds token settings.
type Config struct {
	Secret      string
	Issuer      string
	TokenExpiry time.Duration // default 1 hour
}

// NewManager creates a token manager.
func NewManager(cfg *Config) *Manager {
	expiry := cfg.TokenExpiry
	if expiry == 0 {
		expiry = time.Hour
	}
	return &Manager{
		secret:      []byte(cfg.Secret),
		issuer:      cfg.Issuer,
		tokenExpiry: expiry,
	}
}

// GenerateToken issues a signed access token for the user.
func (m *Manager) GenerateToken(userID, displayName, catalogToken string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:       userID,
		DisplayName:  displayName,
		CatalogToken: catalogToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenExpiry)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies an access token.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "invalid token", http.StatusUnauthorized)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.ErrUnauthorized
	}
	if claims.UserID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	return claims, nil
}
