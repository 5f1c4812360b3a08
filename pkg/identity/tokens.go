package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yuna-ai/yuna-server/pkg/errors"
)

// TokenClaims are carried inside the signed session token
type TokenClaims struct {
	Username  string `json:"username"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies session tokens. The token is only a
// tamper-evident pointer to a server-side session row; possession alone is
// not enough once the session or the account is gone.
type TokenManager struct {
	secret []byte
}

// NewTokenManager creates a token manager signing with the given secret
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

// Issue signs a token bound to the given session
func (tm *TokenManager) Issue(session *Session) (string, error) {
	claims := &TokenClaims{
		Username:  session.Username,
		SessionID: session.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			Subject:   session.Username,
			Issuer:    "yuna",
			ID:        session.SessionID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token's signature and returns its claims. Any defect in
// the token resolves to Unauthenticated, never to an internal error.
func (tm *TokenManager) Parse(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(time.Now))

	if err != nil {
		return nil, errors.NewUnauthenticatedError("invalid session token")
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.NewUnauthenticatedError("invalid session token claims")
	}
	return claims, nil
}
