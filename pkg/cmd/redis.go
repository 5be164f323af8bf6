package cmd

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NewQuotaCache creates the Redis client backing the quota counter cache.
// An empty URL disables the cache; the quota service falls back to the
// database alone.
func NewQuotaCache(redisURL string) redis.UniversalClient {
	if redisURL == "" {
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("invalid redis url: %w", err))
	}

	return redis.NewClient(opts)
}
