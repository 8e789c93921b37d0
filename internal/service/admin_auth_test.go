package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAdminAuth_LoginAndParse(t *testing.T) {
	auth := NewAdminAuth("s3cret", "jwt-key", time.Hour, zap.NewNop())

	_, _, err := auth.Login("wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, expiresAt, err := auth.Login("s3cret")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := auth.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)

	other := NewAdminAuth("s3cret", "different-key", time.Hour, zap.NewNop())
	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestAdminAuth_Expired(t *testing.T) {
	auth := NewAdminAuth("s3cret", "", -time.Minute, zap.NewNop())
	auth.ttl = -time.Minute

	token, _, err := auth.Login("s3cret")
	require.NoError(t, err)

	_, err = auth.ParseToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestAdminAuth_Disabled(t *testing.T) {
	auth := NewAdminAuth("", "", 0, zap.NewNop())
	assert.False(t, auth.Enabled())
	assert.ErrorIs(t, auth.CheckToken(""), ErrAdminDisabled)

	_, err := auth.ParseToken("anything")
	assert.ErrorIs(t, err, ErrAdminDisabled)
}
