// Package qr issues and validates the bearer tokens QR codes carry. A token
// is a short-lived HS256 JWT whose claims hold a run's session identifier;
// rendering the actual QR image is the frontend's job.
package qr

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long an issued QR token stays valid.
const TokenTTL = 24 * time.Hour

const tokenType = "qr_token"

var (
	// ErrExpired means the token was valid but past its expiry.
	ErrExpired = errors.New("qr token expired")
	// ErrInvalid means the token failed signature, shape, or type checks.
	ErrInvalid = errors.New("qr token invalid")
)

// Claims are the JWT claims carried by a QR token.
type Claims struct {
	SessionID string `json:"session_id"`
	Type      string `json:"type"`
	jwt.RegisteredClaims
}

// IssueToken signs a token binding the session identifier for TokenTTL.
func IssueToken(key []byte, sessionID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		SessionID: sessionID,
		Type:      tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("signing qr token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks a presented token and returns its session identifier.
// Expired tokens return ErrExpired; anything else wrong returns ErrInvalid.
func ValidateToken(key []byte, tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpired
		}
		return "", ErrInvalid
	}
	if !token.Valid || claims.Type != tokenType || claims.SessionID == "" {
		return "", ErrInvalid
	}
	return claims.SessionID, nil
}
