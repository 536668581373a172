package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/RoshiKK/emergency-response-api/models"
)

func TestNewSessionTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, jti, expiresAt, err := NewSessionToken(secret, "64b5f0a8e4b0a1b2c3d4e5f6", models.RoleDriver)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, jti)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), expiresAt, time.Minute)

	claims, err := ParseSessionToken(token, secret)
	assert.NoError(t, err)
	assert.Equal(t, "64b5f0a8e4b0a1b2c3d4e5f6", claims.Subject)
	assert.Equal(t, string(models.RoleDriver), claims.Role)
	assert.Equal(t, jti, claims.ID)
}

func TestNewSessionTokenRequiresSecret(t *testing.T) {
	_, _, _, err := NewSessionToken(nil, "u", models.RoleAdmin)
	assert.Error(t, err)
}

func TestNewSessionTokenUniqueJTI(t *testing.T) {
	secret := []byte("test-secret")

	_, first, _, err := NewSessionToken(secret, "u", models.RoleAdmin)
	assert.NoError(t, err)
	_, second, _, err := NewSessionToken(secret, "u", models.RoleAdmin)
	assert.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestParseSessionTokenRejectsWrongSecret(t *testing.T) {
	token, _, _, err := NewSessionToken([]byte("right"), "u", models.RoleAdmin)
	assert.NoError(t, err)

	_, err = ParseSessionToken(token, []byte("wrong"))
	assert.Error(t, err)
}

func TestParseSessionTokenRejectsGarbage(t *testing.T) {
	_, err := ParseSessionToken("not.a.token", []byte("secret"))
	assert.Error(t, err)
}

func TestIdentityImpersonating(t *testing.T) {
	plain := Identity{UserID: "u", Role: models.RoleAdmin}
	assert.False(t, plain.Impersonating())

	overlaid := Identity{UserID: "u", Role: models.RoleDriver, Overlay: &models.ImpersonationOverlay{Name: "Root"}}
	assert.True(t, overlaid.Impersonating())
}
