package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/sukha-pms/internal/model"
)

const secret = "test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken(secret, 42, model.RoleReception, time.Hour, time.Now())
	require.NoError(t, err)

	claims, err := ParseAccessToken(secret, tok.Token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.Equal(t, model.RoleReception, claims.Role)
}

func TestParseAccessToken_Rejects(t *testing.T) {
	expired, err := NewAccessToken(secret, 1, model.RoleAdmin, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = ParseAccessToken(secret, expired.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	good, err := NewAccessToken(secret, 1, model.RoleAdmin, time.Hour, time.Now())
	require.NoError(t, err)
	_, err = ParseAccessToken("other-secret", good.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseAccessToken(secret, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Role outside the canonical set.
	legacy := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1", "role": "hotel_owner", "exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := legacy.SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = ParseAccessToken(secret, raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "role": "admin"})
	raw, err = noExp.SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = ParseAccessToken(secret, raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshToken(t *testing.T) {
	now := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	a, err := NewRefreshToken(14*24*time.Hour, now)
	require.NoError(t, err)
	b, err := NewRefreshToken(14*24*time.Hour, now)
	require.NoError(t, err)

	assert.Len(t, a.Raw, 96)
	assert.NotEqual(t, a.Raw, b.Raw)
	assert.Equal(t, now.Add(14*24*time.Hour), a.Exp)
	assert.Len(t, HashRefreshRaw(a.Raw), 64)
	assert.Equal(t, HashRefreshRaw(a.Raw), HashRefreshRaw(a.Raw))
}

func TestPassword(t *testing.T) {
	_, err := HashPassword("short", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "correct horse"))
	assert.False(t, VerifyPassword(hash, "wrong horse"))
}
