package infrastructure

import (
	"fmt"

	"go.uber.org/zap"

	"user-doc-service/internal/config"
	redisclient "user-doc-service/pkg/redis"
)

// NewRedisClient connects to Redis when the cache or the rate limiter needs it.
// It returns a nil client when neither is enabled.
func NewRedisClient(cfg *config.Config, l *zap.Logger) (*redisclient.Client, error) {
	if !cfg.NeedsRedis() {
		l.Info("Redis not required, cache and rate limiting disabled")
		return nil, nil
	}

	rdb, err := redisclient.NewClient(redisclient.Config{
		Host:        cfg.Redis.Host,
		Port:        cfg.Redis.Port,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		MaxRetries:  cfg.Redis.MaxRetries,
		PoolSize:    cfg.Redis.PoolSize,
		MinIdleConn: cfg.Redis.MinIdleConn,
	}, l)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return rdb, nil
}
