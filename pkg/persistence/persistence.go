// Package persistence provides the data storage abstraction layer for flows
// and their versions. Every repository call is tenant scoped; lookups that
// find nothing return (nil, nil) and callers map that to their own errors.
package persistence

import (
	"context"

	"github.com/voicetree/voicetree/pkg/models"
)

type Persistence interface {
	Flows() FlowRepository
	Versions() VersionRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// ListFlowsOptions controls pagination of flow listings.
type ListFlowsOptions struct {
	Limit  int
	Offset int
}

// FlowListResult is one page of flows plus the total count for the tenant.
type FlowListResult struct {
	Flows []*models.Flow
	Total int
}

// FlowRepository stores flow containers. Soft deletes only; deleted flows are
// invisible to every query.
type FlowRepository interface {
	Create(ctx context.Context, flow *models.Flow) error
	GetByID(ctx context.Context, tenantID, id string) (*models.Flow, error)
	List(ctx context.Context, tenantID string, opts ListFlowsOptions) (*FlowListResult, error)
	Update(ctx context.Context, flow *models.Flow) error
	Delete(ctx context.Context, tenantID, id string) error
}

// PromotionRecord reports the outcome of a promotion: the version in its new
// status, the status it held before, and the previously live or staged
// version that was archived to make room, if any.
type PromotionRecord struct {
	Version     *models.FlowVersion
	PriorStatus models.VersionStatus
	Demoted     *models.FlowVersion
}

// ArchiveRecord reports an archival: the version in its archived state and
// the status it held before.
type ArchiveRecord struct {
	Version     *models.FlowVersion
	PriorStatus models.VersionStatus
}

// VersionRepository stores flow versions and enforces the lifecycle
// invariants that must hold under concurrency: at most one draft and one live
// version per flow, version numbers assigned from a per-flow sequence.
type VersionRepository interface {
	// Create assigns the next version number for the flow and stores the
	// version as a draft. Fails with ErrDraftExists when the flow already
	// has one.
	Create(ctx context.Context, version *models.FlowVersion) error

	GetByID(ctx context.Context, tenantID, id string) (*models.FlowVersion, error)
	ListByFlow(ctx context.Context, tenantID, flowID string) ([]*models.FlowVersion, error)

	// GetByStatus returns the flow's version in the given status, or
	// (nil, nil) when none holds it. Only meaningful for draft, staged and
	// live, which are unique per flow.
	GetByStatus(ctx context.Context, tenantID, flowID string, status models.VersionStatus) (*models.FlowVersion, error)

	// UpdateGraph replaces the graph of a draft version. Fails with
	// ErrNotDraft for any other status.
	UpdateGraph(ctx context.Context, version *models.FlowVersion) error

	// Promote moves a version to the target status. A promotion to live
	// archives the current live version; a promotion to staged archives the
	// current staged version, keeping both statuses unique per flow. When
	// promoting to live, expectedLiveID carries the live version the caller
	// observed (nil for none); a mismatch at commit time fails with
	// ErrLiveConflict.
	Promote(ctx context.Context, tenantID, versionID string, target models.VersionStatus, promotedBy string, expectedLiveID *string) (*PromotionRecord, error)

	// Archive retires a draft or staged version. The live version cannot be
	// archived directly (ErrVersionLive); archiving an archived version
	// fails with ErrInvalidTransition.
	Archive(ctx context.Context, tenantID, versionID string) (*ArchiveRecord, error)
}
