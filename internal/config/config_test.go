package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.HTTPPort)
	assert.Equal(t, "http://localhost:8080", cfg.UpstreamURL)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, StoreMemory, cfg.BreakdownStore)
	assert.False(t, cfg.EventsEnabled())
}

func TestLoad_KafkaBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.EventsEnabled())
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	t.Setenv("BABO_HTTP_PORT", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_InvalidUpstreamURL(t *testing.T) {
	t.Setenv("BABO_UPSTREAM_URL", "not-a-url")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid BABO_UPSTREAM_URL")
}

func TestLoad_UpstreamURLScheme(t *testing.T) {
	t.Setenv("BABO_UPSTREAM_URL", "ftp://books.example.com")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "http or https")
}

func TestLoad_InvalidOTELSampleRate(t *testing.T) {
	t.Setenv("OTEL_SAMPLE_RATE", "2.0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
}

func TestLoad_UnknownBreakdownStore(t *testing.T) {
	t.Setenv("BABO_BREAKDOWN_STORE", "postgres")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "BABO_BREAKDOWN_STORE")
}

func TestLoad_RedisStore(t *testing.T) {
	t.Setenv("BABO_BREAKDOWN_STORE", "redis")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, StoreRedis, cfg.BreakdownStore)
	assert.Equal(t, 6380, cfg.RedisPort)
}

func TestLoad_NonPositiveSessionTTL(t *testing.T) {
	t.Setenv("BABO_SESSION_TTL", "0s")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "BABO_SESSION_TTL")
}

func TestLoad_MalformedDuration(t *testing.T) {
	t.Setenv("BABO_SESSION_TTL", "soon")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load babo config")
}
