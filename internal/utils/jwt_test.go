package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	SetJWTSecret("test-secret")
	userID := uuid.New()
	province := uint(4)

	token, err := GenerateJWT(userID, "clerk", "Province Clerk", "ProvinceEmployee", &province, 1)
	require.NoError(t, err)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "ProvinceEmployee", claims.Role)
	require.NotNil(t, claims.ProvinceID)
	assert.Equal(t, uint(4), *claims.ProvinceID)
	assert.Equal(t, tokenIssuer, claims.Issuer)
}

func TestJWT_Rejects(t *testing.T) {
	SetJWTSecret("test-secret")
	userID := uuid.New()

	expired, err := GenerateJWT(userID, "clerk", "", "Admin", nil, -1)
	require.NoError(t, err)
	_, err = ValidateJWT(expired)
	assert.Error(t, err)

	token, err := GenerateJWT(userID, "clerk", "", "Admin", nil, 1)
	require.NoError(t, err)
	SetJWTSecret("rotated")
	_, err = ValidateJWT(token)
	assert.Error(t, err)

	_, err = ValidateJWT("not-a-token")
	assert.Error(t, err)
}

func TestRefreshToken(t *testing.T) {
	SetJWTSecret("test-secret")
	userID := uuid.New()

	token, err := GenerateRefreshToken(userID, 24)
	require.NoError(t, err)

	subject, err := ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), subject)
}
