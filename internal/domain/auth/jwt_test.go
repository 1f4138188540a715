package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "growermarket/internal/core/context"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))

	token, expiresAt, err := svc.GenerateAccessToken("u-1", "g-1", []string{appctx.RoleGrower}, false)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.UserID)
	assert.Equal(t, "g-1", user.GrowerID)
	assert.Equal(t, []string{appctx.RoleGrower}, user.Roles)
	assert.False(t, user.IsAdmin)
}

func TestJWTService_AdminClaim(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))

	token, _, err := svc.GenerateAccessToken("admin", "", []string{appctx.RoleAdmin}, true)
	require.NoError(t, err)

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)
	assert.Empty(t, user.GrowerID)
}

func TestJWTService_RejectsWrongSecret(t *testing.T) {
	token, _, err := NewJWTService(DefaultJWTConfig("one")).GenerateAccessToken("u", "", nil, false)
	require.NoError(t, err)

	_, err = NewJWTService(DefaultJWTConfig("two")).ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsWrongIssuer(t *testing.T) {
	cfg := DefaultJWTConfig("secret")
	cfg.Issuer = "someone-else"
	token, _, err := NewJWTService(cfg).GenerateAccessToken("u", "", nil, false)
	require.NoError(t, err)

	_, err = NewJWTService(DefaultJWTConfig("secret")).ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := svc.GenerateAccessToken("u", "", nil, false)
	require.NoError(t, err)

	_, err = NewJWTService(DefaultJWTConfig("secret")).ValidateToken(token)
	assert.Error(t, err)
}
