package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestTokenService(t *testing.T, accessTTL time.Duration) TokenService {
	t.Helper()
	svc, err := NewTokenService(
		accessTTL,
		7*24*time.Hour,
		"test-issuer",
		"test-audience",
		false,
		"",
		"",
		"test-secret-key-for-jwt-signing-32-chars",
	)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService(t *testing.T) {
	_, err := NewTokenService(time.Minute, time.Hour, "iss", "aud", false, "", "", "")
	assert.Error(t, err, "missing secret key")

	_, err = NewTokenService(time.Minute, time.Hour, "iss", "aud", true, "", "", "")
	assert.Error(t, err, "missing rsa keys")
}

func TestTokenService_UserAndAdminAreSeparated(t *testing.T) {
	svc := createTestTokenService(t, 15*time.Minute)

	access, refresh, err := svc.GenerateTokens(42)
	require.NoError(t, err)
	assert.NotEqual(t, access, refresh)

	claims, err := svc.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.SubjectID)
	assert.Equal(t, "access", claims.TokenType)

	_, err = svc.ValidateAdminToken(access)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	adminAccess, _, err := svc.GenerateAdminTokens(7)
	require.NoError(t, err)
	adminClaims, err := svc.ValidateAdminToken(adminAccess)
	require.NoError(t, err)
	assert.Equal(t, uint(7), adminClaims.SubjectID)

	_, err = svc.ValidateToken(adminAccess)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_Expired(t *testing.T) {
	svc := createTestTokenService(t, -time.Minute)

	access, _, err := svc.GenerateTokens(1)
	require.NoError(t, err)

	_, err = svc.ValidateToken(access)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_RejectsForeignSignature(t *testing.T) {
	svc := createTestTokenService(t, time.Minute)
	other, err := NewTokenService(time.Minute, time.Hour, "test-issuer", "test-audience", false, "", "", "another-secret-key-for-signing-32-chars")
	require.NoError(t, err)

	access, _, err := other.GenerateTokens(1)
	require.NoError(t, err)

	_, err = svc.ValidateToken(access)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_RefreshRotatesAndRevokes(t *testing.T) {
	svc := createTestTokenService(t, time.Minute)

	access, refresh, err := svc.GenerateTokens(5)
	require.NoError(t, err)

	_, _, err = svc.RefreshToken(access)
	assert.Error(t, err, "an access token cannot refresh")

	newAccess, newRefresh, err := svc.RefreshToken(refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, newAccess)
	assert.NotEqual(t, refresh, newRefresh)

	_, _, err = svc.RefreshToken(refresh)
	assert.Error(t, err, "a used refresh token is revoked")

	require.NoError(t, svc.RevokeToken(newAccess))
	_, err = svc.ValidateToken(newAccess)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}
