package database

import (
	"context"
	"fmt"
	"time"

	"chainspace-intake/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient holds the connection used by the redis draft backend.
type RedisClient struct {
	Client *redis.Client
}

func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	opTimeout := config.GetDuration(cfg.OpTimeout)
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  config.GetDuration(cfg.DialTimeout),
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.PoolSize / 5,
		// a draft save is worth one retry, not the client's default three
		MaxRetries: 1,
	})
	return &RedisClient{Client: rdb}, nil
}

// Ping checks the connection and reports the round trip.
func (c *RedisClient) Ping(ctx context.Context) error {
	start := time.Now()
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed after %s: %w", time.Since(start).Round(time.Millisecond), err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

func (c *RedisClient) GetClient() *redis.Client {
	return c.Client
}
