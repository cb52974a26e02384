package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	require.Equal(t, "points", cfg.Redis.CounterKey)
	require.Equal(t, 2*time.Second, cfg.Redis.Timeout)
	require.Equal(t, []string{"http://localhost:9200"}, cfg.Elasticsearch.Addresses)
	require.Equal(t, 10*time.Second, cfg.Elasticsearch.Timeout)
	require.Equal(t, 3, cfg.Elasticsearch.MaxRetries)
	require.False(t, cfg.RateLimit.Enabled)
	require.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://cache:6380/2")
	t.Setenv("ELASTICSEARCH_URL", "http://es1:9200, http://es2:9200")
	t.Setenv("ELASTICSEARCH_TIMEOUT", "5")
	t.Setenv("ELASTICSEARCH_MAX_RETRIES", "1")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("REDIS_TIMEOUT", "1")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "redis://cache:6380/2", cfg.Redis.URL)
	require.Equal(t, []string{"http://es1:9200", "http://es2:9200"}, cfg.Elasticsearch.Addresses)
	require.Equal(t, 5*time.Second, cfg.Elasticsearch.Timeout)
	require.Equal(t, 1, cfg.Elasticsearch.MaxRetries)
	require.Equal(t, "9000", cfg.Server.Port)
	require.Equal(t, time.Second, cfg.Redis.Timeout)
}

func TestLoadConfigRejectsBadTimeout(t *testing.T) {
	t.Setenv("ELASTICSEARCH_TIMEOUT", "0")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsBadRedisTimeout(t *testing.T) {
	t.Setenv("REDIS_TIMEOUT", "0")

	_, err := LoadConfig()
	require.Error(t, err)
}
