package cache

import (
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Backend         string
	CleanupInterval time.Duration
	Prefix          string
}

func NewBackend(cfg Config, redisClient *redis.Client) Backend {
	switch cfg.Backend {
	case "redis":
		return NewRedisBackend(redisClient, RedisConfig{
			Prefix: cfg.Prefix,
		})
	default:
		return NewMemoryBackend(cfg.CleanupInterval)
	}
}
