package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vhm-notifier/internal/common/config"
)

func TestProvider_SignAndVerify(t *testing.T) {
	p := NewProvider(config.AuthConfig{JWTSecret: "test-secret", Expiry: time.Hour})

	token, err := p.Sign("user-1", "admin")
	require.NoError(t, err)

	claims, err := p.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestProvider_Verify_Failures(t *testing.T) {
	p := NewProvider(config.AuthConfig{JWTSecret: "test-secret", Expiry: time.Hour})

	_, err := p.Verify("garbage")
	assert.Error(t, err)

	// Token signed with a different secret is rejected.
	other := NewProvider(config.AuthConfig{JWTSecret: "other-secret", Expiry: time.Hour})
	token, err := other.Sign("user-1", "admin")
	require.NoError(t, err)
	_, err = p.Verify(token)
	assert.Error(t, err)

	// Expired token is rejected.
	expired := NewProvider(config.AuthConfig{JWTSecret: "test-secret", Expiry: -time.Minute})
	token, err = expired.Sign("user-1", "admin")
	require.NoError(t, err)
	_, err = p.Verify(token)
	assert.Error(t, err)
}
