package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTHHUB_SECURITY_JWTSIGNINGKEY", "signing-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "/api/auth", cfg.HTTP.BasePath)
	assert.Equal(t, 15*time.Minute, cfg.Security.JWTAccessTTL)
	assert.Equal(t, 24*time.Hour, cfg.Security.JWTRefreshTTL)
	assert.Equal(t, "signing-secret", cfg.Security.ActivationSecret)
	assert.Equal(t, time.Hour, cfg.Storage.PresignExpiry)
	assert.False(t, cfg.Features.SendActivationEmail)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AUTHHUB_SECURITY_JWTSIGNINGKEY", "signing-secret")
	t.Setenv("AUTHHUB_HTTP_PORT", "9090")
	t.Setenv("AUTHHUB_SECURITY_JWTACCESSTTL", "5m")
	t.Setenv("AUTHHUB_FEATURES_SENDACTIVATIONEMAIL", "true")
	t.Setenv("AUTHHUB_DOMAIN", "https://app.example.com/")
	t.Setenv("AUTHHUB_ALLOWCORSORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 5*time.Minute, cfg.Security.JWTAccessTTL)
	assert.True(t, cfg.Features.SendActivationEmail)
	assert.Equal(t, "https://app.example.com", cfg.Domain)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowCORSOrigins)
}

func TestLoadRequiresSigningKey(t *testing.T) {
	t.Setenv("AUTHHUB_SECURITY_JWTSIGNINGKEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwtsigningkey")
}
