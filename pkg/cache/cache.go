// Package cache provides a read-through cache for live flow versions. The
// live version is the hot path for call routing, so it is kept in Redis and
// invalidated on every promotion or archive that touches it.
package cache

import (
	"context"

	"github.com/voicetree/voicetree/pkg/models"
)

// VersionCache caches the live version per tenant and flow. A miss returns
// (nil, nil); implementations must never fail a read path harder than a miss.
type VersionCache interface {
	GetLive(ctx context.Context, tenantID, flowID string) (*models.FlowVersion, error)
	SetLive(ctx context.Context, version *models.FlowVersion) error
	InvalidateLive(ctx context.Context, tenantID, flowID string) error
	Close() error
}

// NoopCache is used when no Redis URL is configured.
type NoopCache struct{}

func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

func (c *NoopCache) GetLive(_ context.Context, _, _ string) (*models.FlowVersion, error) {
	return nil, nil
}

func (c *NoopCache) SetLive(_ context.Context, _ *models.FlowVersion) error {
	return nil
}

func (c *NoopCache) InvalidateLive(_ context.Context, _, _ string) error {
	return nil
}

func (c *NoopCache) Close() error {
	return nil
}
