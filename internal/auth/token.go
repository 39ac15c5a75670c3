// Package auth issues and verifies session tokens and owns the
// persisted session slot. Tokens are HS256 JWTs with a 24 hour expiry;
// verification fails closed on any malformed, tampered or expired token.
package auth

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bugtrackerpro/service-core/internal/apperror"
)

type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

type Config struct {
	Secret []byte
	TTL    time.Duration
}

// ConfigFromEnv reads the token secret and TTL from env vars.
func ConfigFromEnv() Config {
	secret := os.Getenv("AUTH_SECRET")
	if secret == "" {
		// dev fallback; deployments must set AUTH_SECRET
		secret = "bugtracker-dev-secret"
	}
	ttl := 24 * time.Hour
	if v := os.Getenv("AUTH_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			ttl = d
		}
	}
	return Config{Secret: []byte(secret), TTL: ttl}
}

// TokenManager signs and verifies session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(cfg Config) *TokenManager {
	return &TokenManager{secret: cfg.Secret, ttl: cfg.TTL}
}

// Issue creates a signed token for the given user id.
func (m *TokenManager) Issue(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		UserID: userID,
	})
	return token.SignedString(m.secret)
}

// Verify parses and validates a token, returning the embedded user id.
// Any failure (structure, signature, expiry) maps to an auth error.
func (m *TokenManager) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperror.Auth("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return "", apperror.Auth("invalid or expired token")
	}
	if claims.UserID == "" {
		return "", apperror.Auth("invalid or expired token")
	}
	return claims.UserID, nil
}
