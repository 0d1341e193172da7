package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthenticator() *JWTAuthenticator {
	return NewJWTAuthenticator(
		"access-secret", "refresh-secret",
		"lendbook", "lendbook",
		15*time.Minute, 7*24*time.Hour,
	)
}

func TestGenerateAndValidateTokens(t *testing.T) {
	a := testAuthenticator()

	access, refresh, err := a.GenerateTokens(42)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.NotEqual(t, access, refresh)

	token, err := a.ValidateAccessToken(access)
	require.NoError(t, err)
	assert.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.EqualValues(t, 42, claims["sub"])
}

func TestAccessTokenRejectedByRefreshValidator(t *testing.T) {
	a := testAuthenticator()

	access, refresh, err := a.GenerateTokens(7)
	require.NoError(t, err)

	// The pair is signed with different secrets, so they cannot stand in
	// for each other.
	_, err = a.ValidateRefreshToken(access)
	assert.Error(t, err)
	_, err = a.ValidateAccessToken(refresh)
	assert.Error(t, err)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	a := testAuthenticator()
	other := NewJWTAuthenticator(
		"another-secret", "another-refresh-secret",
		"lendbook", "lendbook",
		15*time.Minute, 7*24*time.Hour,
	)

	access, _, err := a.GenerateTokens(1)
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(access)
	assert.Error(t, err)
}
