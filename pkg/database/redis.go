package database

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig describes the Redis instance holding shared agent state.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	// PoolSize caps open connections; 0 keeps the go-redis default.
	PoolSize int
	// PingTimeout bounds the connectivity check done at startup.
	PingTimeout time.Duration
	// SlowThreshold logs commands at least this slow; 0 disables it.
	SlowThreshold time.Duration
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Host:          "localhost",
		Port:          6379,
		PingTimeout:   3 * time.Second,
		SlowThreshold: 50 * time.Millisecond,
	}
}

func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// NewRedisClient returns a client instrumented with TracingHook, or an error
// if the server does not answer a PING within PingTimeout.
func NewRedisClient(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	client.AddHook(NewTracingHook(cfg.SlowThreshold, logger))

	if cfg.PingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.PingTimeout)
		defer cancel()
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}
