package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const roleSession = "session"

// JWTClaims represents the claims in our JWT token
type JWTClaims struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates session tokens
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates an issuer. An empty secret gets a random one, which
// invalidates every token on restart.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("token TTL must be positive, got %s", ttl)
	}

	key := []byte(secret)
	if len(key) == 0 {
		random := make([]byte, 32)
		if _, err := rand.Read(random); err != nil {
			return nil, fmt.Errorf("failed to generate token secret: %w", err)
		}
		key = []byte(hex.EncodeToString(random))
	}

	return &TokenIssuer{secret: key, ttl: ttl}, nil
}

// GenerateSessionToken generates a JWT token bound to a session
func (i *TokenIssuer) GenerateSessionToken(sessionID string) (string, time.Time, error) {
	if sessionID == "" {
		return "", time.Time{}, errors.New("session ID is required")
	}

	now := time.Now()
	expiresAt := now.Add(i.ttl)
	claims := &JWTClaims{
		SessionID: sessionID,
		Role:      roleSession,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken validates a session token and returns the claims
func (i *TokenIssuer) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Role != roleSession || claims.SessionID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
