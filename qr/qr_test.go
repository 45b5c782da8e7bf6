package qr

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var key = []byte("test-signing-key")

func TestTokenRoundTrip(t *testing.T) {
	token, err := IssueToken(key, "20240115-abcd1234")
	require.NoError(t, err)

	sessionID, err := ValidateToken(key, token)
	require.NoError(t, err)
	assert.Equal(t, "20240115-abcd1234", sessionID)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	token, err := IssueToken(key, "20240115-abcd1234")
	require.NoError(t, err)

	_, err = ValidateToken([]byte("other-key"), token)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidateRejectsExpired(t *testing.T) {
	claims := &Claims{
		SessionID: "20240115-abcd1234",
		Type:      tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-48 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-24 * time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)

	_, err = ValidateToken(key, signed)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestValidateRejectsWrongType(t *testing.T) {
	claims := &Claims{
		SessionID: "20240115-abcd1234",
		Type:      "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)

	_, err = ValidateToken(key, signed)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := ValidateToken(key, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalid)
}
