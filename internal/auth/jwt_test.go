package auth

import (
	"context"
	"testing"
	"time"

	"cineverse/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecretKey: "test_jwt_secret_key",
		JWTExpiry:    time.Hour,
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	cfg := testAuthConfig()
	token, err := GenerateToken(42, "alice", cfg)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(context.Background(), token, cfg.JWTSecretKey, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.ID) // JTI，登出黑名单需要它
}

func TestValidateTokenWrongKey(t *testing.T) {
	cfg := testAuthConfig()
	token, err := GenerateToken(42, "alice", cfg)
	require.NoError(t, err)

	_, err = ValidateToken(context.Background(), token, "another_key", nil)
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	cfg := testAuthConfig()
	cfg.JWTExpiry = -time.Minute

	token, err := GenerateToken(42, "alice", cfg)
	require.NoError(t, err)

	_, err = ValidateToken(context.Background(), token, cfg.JWTSecretKey, nil)
	assert.Error(t, err)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.True(t, CheckPasswordHash("secret123", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}
