package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/logger"
)

// NewCache connects to Redis and verifies the connection with a ping.
// Returns a nil client on failure; callers treat Redis as optional.
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not reachable")
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}
