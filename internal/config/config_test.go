package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, StoreMemory, cfg.RateStore)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 1000, cfg.CacheMaxEntries)
	assert.Equal(t, 20, cfg.Burst)
	assert.Equal(t, 100, cfg.ConcurrencyMax)
	assert.True(t, cfg.CSRFEnabled)
	assert.False(t, cfg.NeedsRedis())
}

func TestLoad_DevelopmentIgnoresAllowedIPs(t *testing.T) {
	t.Setenv("ALLOWED_IPS", "10.0.0.1, 10.0.0.0/8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.AllowedIPs)
}

func TestLoad_ProductionForcesCSRFAndKeepsAllowedIPs(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("CSRF_ENABLED", "false")
	t.Setenv("ALLOWED_IPS", "10.0.0.1, ,10.0.0.0/8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Production())
	assert.True(t, cfg.CSRFEnabled)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.0/8"}, cfg.AllowedIPs)
}

func TestLoad_LowRPSDefaultsBurstToOne(t *testing.T) {
	t.Setenv("RATE_BURST_RPS", "0.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Burst)
}

func TestLoad_RedisStoreRequiresAddr(t *testing.T) {
	t.Setenv("RATE_STORE", "redis")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_ADDR")

	t.Setenv("REDIS_ADDR", "localhost:6379")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.NeedsRedis())
}

func TestLoad_Rejects(t *testing.T) {
	cases := []struct {
		name, key, value string
	}{
		{"unknown env", "APP_ENV", "staging"},
		{"unknown store", "CSRF_STORE", "etcd"},
		{"bad log level", "LOG_LEVEL", "loud"},
		{"negative rps", "RATE_BURST_RPS", "-1"},
		{"negative concurrency", "CONCURRENCY_MAX", "-1"},
		{"zero cache entries", "CACHE_MAX_ENTRIES", "0"},
		{"zero body limit", "MAX_BODY_BYTES", "0"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
