package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ZuzannaKurillova/trAIvel/internal/config"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TRAIVEL_BACKEND_URL", "TRAIVEL_PORT", "TRAIVEL_METRICS_PORT",
		"TRAIVEL_LOG_LEVEL", "TRAIVEL_LOG_FORMAT", "TRAIVEL_REQUEST_TIMEOUT",
		"TRAIVEL_CORS_ORIGINS", "TRAIVEL_RATE_LIMIT", "TRAIVEL_SESSION_STORE",
		"TRAIVEL_REDIS_URL", "TRAIVEL_SESSION_TTL",
	} {
		t.Setenv(k, "")
	}
}

// TestLoad_defaults verifies the values used when nothing is configured.
func TestLoad_defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()

	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000", cfg.BackendURL)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "9090", cfg.MetricsPort)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "text", cfg.LogFormat)
	require.Equal(t, 10*time.Second, cfg.RequestTimeout)
	require.Equal(t, []string{"http://localhost:4200"}, cfg.CORSOrigins)
	require.Equal(t, 60, cfg.RateLimit)
	require.Equal(t, config.StoreMemory, cfg.SessionStore)
	require.Equal(t, time.Hour, cfg.SessionTTL)
}

// TestLoad_overrides verifies that all values can be overridden via env vars.
func TestLoad_overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRAIVEL_BACKEND_URL", "https://api.traivel.example")
	t.Setenv("TRAIVEL_PORT", "9000")
	t.Setenv("TRAIVEL_METRICS_PORT", "9100")
	t.Setenv("TRAIVEL_LOG_LEVEL", "debug")
	t.Setenv("TRAIVEL_LOG_FORMAT", "json")
	t.Setenv("TRAIVEL_REQUEST_TIMEOUT", "3s")
	t.Setenv("TRAIVEL_CORS_ORIGINS", "https://app.example.com, https://admin.example.com")
	t.Setenv("TRAIVEL_RATE_LIMIT", "10")
	t.Setenv("TRAIVEL_SESSION_STORE", "redis")
	t.Setenv("TRAIVEL_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("TRAIVEL_SESSION_TTL", "30m")

	cfg, err := config.Load()

	require.NoError(t, err)
	require.Equal(t, "https://api.traivel.example", cfg.BackendURL)
	require.Equal(t, "9000", cfg.Port)
	require.Equal(t, "9100", cfg.MetricsPort)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, 3*time.Second, cfg.RequestTimeout)
	require.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
	require.Equal(t, 10, cfg.RateLimit)
	require.Equal(t, config.StoreRedis, cfg.SessionStore)
	require.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	require.Equal(t, 30*time.Minute, cfg.SessionTTL)
}

// TestLoad_redisNeedsURL verifies that the redis store cannot be selected without a URL.
func TestLoad_redisNeedsURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRAIVEL_SESSION_STORE", "redis")

	_, err := config.Load()

	require.ErrorContains(t, err, "redis_url")
}

// TestLoad_invalidValues verifies that every bad value is named in the error.
func TestLoad_invalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRAIVEL_BACKEND_URL", "localhost")
	t.Setenv("TRAIVEL_REQUEST_TIMEOUT", "soon")
	t.Setenv("TRAIVEL_RATE_LIMIT", "lots")
	t.Setenv("TRAIVEL_SESSION_STORE", "postgres")

	_, err := config.Load()

	require.Error(t, err)
	require.ErrorContains(t, err, "backend_url")
	require.ErrorContains(t, err, "request_timeout")
	require.ErrorContains(t, err, "rate_limit")
	require.ErrorContains(t, err, "session_store")
}
