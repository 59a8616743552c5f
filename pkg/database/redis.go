package database

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/hijabpoint/accounts-api/internal/config"
)

// NewUniversalRedisClient creates a Redis client from the unified config.
// Supports single, sentinel and cluster modes.
func NewUniversalRedisClient(cfg config.RedisConfig) (redis.UniversalClient, error) {
	addresses := cfg.Addrs
	if len(addresses) == 0 {
		if cfg.Addr == "" {
			return nil, fmt.Errorf("redis configuration error: Addrs or Addr must be provided")
		}
		addresses = []string{cfg.Addr}
	}

	options := &redis.UniversalOptions{
		Addrs:    addresses,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	mode := cfg.Mode
	if mode == "" {
		mode = "single"
	}

	switch mode {
	case "sentinel":
		if cfg.MasterName == "" {
			return nil, fmt.Errorf("redis sentinel mode requires MasterName")
		}
		options.MasterName = cfg.MasterName
	case "cluster", "single":
		// NewUniversalClient picks the right client from the options.
	default:
		return nil, fmt.Errorf("unsupported redis mode: %s", mode)
	}

	client := redis.NewUniversalClient(options)

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis (mode: %s, addrs: %v): %w", mode, addresses, err)
	}

	return client, nil
}
