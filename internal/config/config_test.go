package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webapi-template/internal/config"
)

func setBase(t *testing.T) {
	t.Helper()
	t.Setenv("ENV", "dev")
	t.Setenv("AUTH_MODE", "local")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "memory")
}

func TestLoadDefaults(t *testing.T) {
	setBase(t)

	c, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, 10*time.Second, c.HTTP.ShutdownTimeout)
	assert.Equal(t, "app_session", c.Auth.CookieName)
	assert.Equal(t, "info", c.Log.ConsoleLevel)
	assert.False(t, c.Production())
}

func TestLoadRejectsUnknownEnv(t *testing.T) {
	setBase(t)
	t.Setenv("ENV", "staging")

	_, err := config.Load()
	require.Error(t, err)
}

func TestLocalModeRequiresSecret(t *testing.T) {
	setBase(t)
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := config.Load()
	require.ErrorContains(t, err, "AUTH_JWT_SECRET")
}

func TestRemoteModeRequiresProviderURL(t *testing.T) {
	setBase(t)
	t.Setenv("AUTH_MODE", "remote")

	_, err := config.Load()
	require.ErrorContains(t, err, "AUTH_PROVIDER_URL")
}

func TestPostgresRequiresDSN(t *testing.T) {
	setBase(t)
	t.Setenv("STORE_DRIVER", "postgres")

	_, err := config.Load()
	require.ErrorContains(t, err, "STORE_POSTGRES_DSN")
}

func TestCORSOriginsParsing(t *testing.T) {
	setBase(t)
	t.Setenv("HTTP_CORS_ORIGINS", "https://app.example.com, https://admin.example.com")

	c, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"https://app.example.com", "https://admin.example.com"},
		c.HTTP.CORSOrigins)
}

func TestRateLimitDuration(t *testing.T) {
	setBase(t)
	t.Setenv("HTTP_RATE_LIMIT", "250ms")

	c, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, c.HTTP.RateLimit)
}
