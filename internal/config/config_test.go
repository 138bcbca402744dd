package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_USER", "nexura")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_NAME", "nexura")
	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh-secret")
}

func TestParseDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "api", cfg.APIPrefix)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, MinBcryptCost, cfg.BcryptCost)
	assert.Equal(t, []string{"http://localhost:3001"}, cfg.CORSOrigins)
	assert.False(t, cfg.IsProduction())
	assert.Empty(t, cfg.TrustedProxies)
}

func TestParseTrustedProxies(t *testing.T) {
	setRequired(t)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 203.0.113.7,::1")

	cfg, err := Parse()
	require.NoError(t, err)
	require.Len(t, cfg.TrustedProxies, 3)
	assert.Equal(t, "10.0.0.0/8", cfg.TrustedProxies[0].String())
	assert.Equal(t, "203.0.113.7/32", cfg.TrustedProxies[1].String())
	assert.Equal(t, "::1/128", cfg.TrustedProxies[2].String())

	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/33")
	_, err = Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRUSTED_PROXIES")
}

func TestParseReportsAllMissingKeys(t *testing.T) {
	for _, k := range []string{"DB_USER", "DB_HOST", "DB_NAME", "JWT_SECRET", "REFRESH_TOKEN_SECRET"} {
		t.Setenv(k, "")
	}

	_, err := Parse()
	require.Error(t, err)
	for _, k := range []string{"DB_USER", "DB_HOST", "DB_NAME", "JWT_SECRET", "REFRESH_TOKEN_SECRET"} {
		assert.Contains(t, err.Error(), k)
	}
}

func TestParseRejectsBadExpiry(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_EXPIRES_IN", "15 minutes")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_EXPIRES_IN")
}

func TestParseRejectsSharedSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("REFRESH_TOKEN_SECRET", "access-secret")

	_, err := Parse()
	require.Error(t, err)
}

func TestParseClampsBcryptCostAndTrimsPrefix(t *testing.T) {
	setRequired(t)
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("API_PREFIX", "/v2/")
	t.Setenv("APP_ENV", "production")
	t.Setenv("CORS_ORIGIN", "https://a.example, https://b.example,")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, MinBcryptCost, cfg.BcryptCost)
	assert.Equal(t, "v2", cfg.APIPrefix)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoginRateLimitDefaults(t *testing.T) {
	cfg := LoadLoginRateLimitConfig()

	assert.Equal(t, 5, cfg.Capacity)
	assert.Equal(t, 5, cfg.RefillTokens)
	assert.Equal(t, 15*time.Minute, cfg.RefillInterval)
	assert.Equal(t, "ip_route", cfg.KeyStrategy)
}

func TestRateLimitNormalization(t *testing.T) {
	t.Setenv("THROTTLE_LIMIT", "0")
	t.Setenv("THROTTLE_TTL", "-1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, time.Second, cfg.RefillInterval)
	assert.GreaterOrEqual(t, cfg.TTL, 2*cfg.RefillInterval)
}
