package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret-key-that-is-long-enough-for-hs256"

func TestTokenRoundTrip(t *testing.T) {
	svc := NewAuthService(testSecret, time.Hour)

	token, err := svc.GenerateToken("iss-42")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	issuerID, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "iss-42", issuerID)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc := NewAuthService(testSecret, time.Hour)
	other := NewAuthService("another-secret-key-also-long-enough-for-hs256", time.Hour)

	token, err := svc.GenerateToken("iss-42")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := NewAuthService(testSecret, -time.Minute)

	token, err := svc.GenerateToken("iss-42")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(testSecret, time.Hour)
	_, err := svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestAPISecretHashing(t *testing.T) {
	svc := NewAuthService(testSecret, time.Hour)

	hash, err := svc.HashAPISecret("super-secret-value")
	require.NoError(t, err)
	assert.NotEqual(t, "super-secret-value", hash)

	assert.NoError(t, svc.CompareHashAndSecret(hash, "super-secret-value"))
	assert.Error(t, svc.CompareHashAndSecret(hash, "wrong-value"))
}

func TestGenerateAPICredentials(t *testing.T) {
	key1, secret1, err := GenerateAPICredentials()
	require.NoError(t, err)
	key2, secret2, err := GenerateAPICredentials()
	require.NoError(t, err)

	assert.NotEmpty(t, key1)
	assert.NotEmpty(t, secret1)
	assert.NotEqual(t, key1, key2)
	assert.NotEqual(t, secret1, secret2)
}
