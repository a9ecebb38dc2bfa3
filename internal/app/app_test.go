package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/babo/internal/config"
	"github.com/utafrali/babo/pkg/logger"
)

func TestNewApp_MemoryStoreWithoutKafka(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	a, err := NewApp(cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(a.stop)

	assert.Nil(t, a.redis)
	assert.Nil(t, a.producer)

	rec := httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "upstream")
}

func TestNewApp_RedisUnreachable(t *testing.T) {
	t.Setenv("BABO_BREAKDOWN_STORE", "redis")
	t.Setenv("REDIS_HOST", "127.0.0.1")
	t.Setenv("REDIS_PORT", "1")
	cfg, err := config.Load()
	require.NoError(t, err)

	_, err = NewApp(cfg, logger.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}
