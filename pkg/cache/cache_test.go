package cache_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicetree/voicetree/pkg/cache"
	"github.com/voicetree/voicetree/pkg/models"
)

func TestNoopCache(t *testing.T) {
	t.Parallel()

	c := cache.NewNoopCache()
	ctx := context.Background()

	live, err := c.GetLive(ctx, "tenant-1", "flow-1")
	require.NoError(t, err)
	assert.Nil(t, live, "the noop cache always misses")

	assert.NoError(t, c.SetLive(ctx, &models.FlowVersion{ID: "version-1"}))

	live, err = c.GetLive(ctx, "tenant-1", "flow-1")
	require.NoError(t, err)
	assert.Nil(t, live, "writes are discarded")

	assert.NoError(t, c.InvalidateLive(ctx, "tenant-1", "flow-1"))
	assert.NoError(t, c.Close())
}

func TestNewRedisVersionCacheRejectsBadURL(t *testing.T) {
	t.Parallel()

	_, err := cache.NewRedisVersionCache(context.Background(), "not-a-redis-url")
	assert.Error(t, err)
}
