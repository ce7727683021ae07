package cmd

import (
	"context"
	"log/slog"

	"github.com/voicetree/voicetree/pkg/cache"
)

// NewVersionCache returns the Redis live-version cache when a URL is
// configured, and a no-op cache otherwise.
func NewVersionCache(ctx context.Context, logger *slog.Logger, redisURL string) cache.VersionCache {
	if redisURL == "" {
		return cache.NewNoopCache()
	}

	c, err := cache.NewRedisVersionCache(ctx, redisURL)
	if err != nil {
		logger.ErrorContext(ctx, "failed to connect to Redis, running without live version cache", "error", err)

		return cache.NewNoopCache()
	}

	return c
}
