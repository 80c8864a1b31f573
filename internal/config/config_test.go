package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PAYGATE_PRIVATE_KEY", "PAYGATE_PUBLIC_KEY", "PAYGATE_ENV", "PAYGATE_AUTH",
		"PAYGATE_LOCALE", "PAYGATE_TIMEOUT", "PAYGATE_CONNECT_TIMEOUT", "PAYGATE_DEBUG",
		"PAYGATE_RATE_LIMIT", "PAYGATE_BASE_URL", "PAYGATE_JOURNAL_PATH", "DB_SOURCE", "SERVER_PORT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadRequiresKey(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAYGATE_PRIVATE_KEY", "s-priv-123")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvSandbox, cfg.Env)
	assert.Equal(t, AuthBasic, cfg.Auth)
	assert.Equal(t, "en_US", cfg.Locale)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Zero(t, cfg.RateLimit)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAYGATE_PRIVATE_KEY", "p-priv-123")
	t.Setenv("PAYGATE_AUTH", "Bearer")
	t.Setenv("PAYGATE_TIMEOUT", "5")
	t.Setenv("PAYGATE_CONNECT_TIMEOUT", "250ms")
	t.Setenv("PAYGATE_DEBUG", "true")
	t.Setenv("PAYGATE_RATE_LIMIT", "2.5")
	t.Setenv("PAYGATE_BASE_URL", "http://localhost:8080/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, AuthBearer, cfg.Auth)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.ConnectTimeout)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PAYGATE_ENV":        "moon",
		"PAYGATE_AUTH":       "digest",
		"PAYGATE_TIMEOUT":    "soon",
		"PAYGATE_DEBUG":      "maybe",
		"PAYGATE_RATE_LIMIT": "-1",
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("PAYGATE_PRIVATE_KEY", "s-priv-123")
			t.Setenv(name, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadServerWithoutKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
}
