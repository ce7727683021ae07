package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/voicetree/voicetree/pkg/cache"
	"github.com/voicetree/voicetree/pkg/events"
	"github.com/voicetree/voicetree/pkg/eventbus"
	"github.com/voicetree/voicetree/pkg/models"
	"github.com/voicetree/voicetree/pkg/persistence"
	"github.com/voicetree/voicetree/pkg/validation"
)

// Version manages flow version documents: draft creation, graph editing and
// reads. Promotion and archival live in the Promotion service.
type Version struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	validator   *validation.Validator
	cache       cache.VersionCache
	logger      *slog.Logger
}

// NewVersion creates a new version service.
func NewVersion(p persistence.Persistence, eb eventbus.EventBus, v *validation.Validator, c cache.VersionCache, logger *slog.Logger) *Version {
	return &Version{
		persistence: p,
		eventBus:    eb,
		validator:   v,
		cache:       c,
		logger:      logger.With("service", "version"),
	}
}

// CreateDraft opens a new draft for the flow. The graph starts as a copy of
// sourceVersionID when given, otherwise of the live version when one exists,
// otherwise as an empty skeleton. At most one draft may exist per flow.
func (s *Version) CreateDraft(ctx context.Context, tenantID, flowID, sourceVersionID string) (*models.FlowVersion, error) {
	flow, err := s.persistence.Flows().GetByID(ctx, tenantID, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get flow: %w", err)
	}

	if flow == nil {
		return nil, &ServiceError{Op: "CreateDraft", Err: ErrFlowNotFound}
	}

	graph, clonedFrom, err := s.draftGraph(ctx, tenantID, flowID, sourceVersionID, flow.Name)
	if err != nil {
		return nil, err
	}

	version := &models.FlowVersion{
		FlowID:   flowID,
		TenantID: tenantID,
		Graph:    graph,
	}

	err = s.persistence.Versions().Create(ctx, version)
	if err != nil {
		if persistence.IsDraftExists(err) {
			return nil, &ServiceError{Op: "CreateDraft", Err: ErrDraftExists}
		}

		if persistence.IsFlowNotFound(err) {
			return nil, &ServiceError{Op: "CreateDraft", Err: ErrFlowNotFound}
		}

		return nil, fmt.Errorf("failed to create draft: %w", err)
	}

	s.publishAudit(ctx, tenantID, events.DraftCreated{
		BaseEvent:     s.baseEvent(events.DraftCreatedEvent, tenantID, flowID),
		VersionID:     version.ID,
		VersionNumber: version.Number,
		ClonedFromID:  clonedFrom,
	})

	return version, nil
}

func (s *Version) draftGraph(ctx context.Context, tenantID, flowID, sourceVersionID, flowName string) (*models.FlowGraph, string, error) {
	var source *models.FlowVersion

	if sourceVersionID != "" {
		found, err := s.persistence.Versions().GetByID(ctx, tenantID, sourceVersionID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to get source version: %w", err)
		}

		if found == nil || found.FlowID != flowID {
			return nil, "", &ServiceError{Op: "CreateDraft", Err: ErrVersionNotFound}
		}

		source = found
	} else {
		live, err := s.persistence.Versions().GetByStatus(ctx, tenantID, flowID, models.VersionStatusLive)
		if err != nil {
			return nil, "", fmt.Errorf("failed to get live version: %w", err)
		}

		source = live
	}

	if source == nil || source.Graph == nil {
		return &models.FlowGraph{
			SchemaVersion: models.GraphSchemaVersion,
			Metadata: models.GraphMetadata{
				Name:         flowName,
				LastModified: time.Now().UTC(),
			},
			Nodes: make([]*models.FlowNode, 0),
		}, "", nil
	}

	clone, err := source.Graph.Clone()
	if err != nil {
		return nil, "", fmt.Errorf("failed to clone source graph: %w", err)
	}

	clone.Metadata.LastModified = time.Now().UTC()

	return clone, source.ID, nil
}

// Get returns a version scoped to the tenant.
func (s *Version) Get(ctx context.Context, tenantID, versionID string) (*models.FlowVersion, error) {
	version, err := s.persistence.Versions().GetByID(ctx, tenantID, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}

	if version == nil {
		return nil, &ServiceError{Op: "GetVersion", Err: ErrVersionNotFound}
	}

	return version, nil
}

// ListByFlow returns all versions of a flow, newest number first.
func (s *Version) ListByFlow(ctx context.Context, tenantID, flowID string) ([]*models.FlowVersion, error) {
	flow, err := s.persistence.Flows().GetByID(ctx, tenantID, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get flow: %w", err)
	}

	if flow == nil {
		return nil, &ServiceError{Op: "ListVersions", Err: ErrFlowNotFound}
	}

	versions, err := s.persistence.Versions().ListByFlow(ctx, tenantID, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}

	return versions, nil
}

// UpdateDraftGraph replaces the graph of a draft version. Saving never
// requires the graph to be valid; validity only gates promotion.
func (s *Version) UpdateDraftGraph(ctx context.Context, tenantID, versionID string, graph *models.FlowGraph) (*models.FlowVersion, error) {
	if graph == nil {
		return nil, NewValidationError("UpdateDraftGraph", "graph_required", "flow graph is required", ErrGraphRequired)
	}

	if graph.SchemaVersion != models.GraphSchemaVersion {
		return nil, NewValidationError("UpdateDraftGraph", "unsupported_schema_version",
			fmt.Sprintf("unsupported graph schema version %q", graph.SchemaVersion), ErrInvalidSchemaVer)
	}

	version, err := s.persistence.Versions().GetByID(ctx, tenantID, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}

	if version == nil {
		return nil, &ServiceError{Op: "UpdateDraftGraph", Err: ErrVersionNotFound}
	}

	graph.Metadata.LastModified = time.Now().UTC()
	version.Graph = graph

	err = s.persistence.Versions().UpdateGraph(ctx, version)
	if err != nil {
		switch {
		case persistence.IsVersionNotFound(err):
			return nil, &ServiceError{Op: "UpdateDraftGraph", Err: ErrVersionNotFound}
		case errors.Is(err, persistence.ErrNotDraft):
			return nil, &ServiceError{Op: "UpdateDraftGraph", Err: ErrNotDraft}
		}

		return nil, fmt.Errorf("failed to update draft graph: %w", err)
	}

	return version, nil
}

// GetLive returns the flow's live version, read through the cache.
func (s *Version) GetLive(ctx context.Context, tenantID, flowID string) (*models.FlowVersion, error) {
	cached, err := s.cache.GetLive(ctx, tenantID, flowID)
	if err != nil {
		s.logger.WarnContext(ctx, "live version cache read failed", "flow_id", flowID, "error", err)
	}

	if cached != nil {
		return cached, nil
	}

	live, err := s.persistence.Versions().GetByStatus(ctx, tenantID, flowID, models.VersionStatusLive)
	if err != nil {
		return nil, fmt.Errorf("failed to get live version: %w", err)
	}

	if live == nil {
		return nil, &ServiceError{Op: "GetLive", Err: ErrNoLiveVersion}
	}

	err = s.cache.SetLive(ctx, live)
	if err != nil {
		s.logger.WarnContext(ctx, "live version cache write failed", "flow_id", flowID, "error", err)
	}

	return live, nil
}

// Validate runs the graph validator without touching storage.
func (s *Version) Validate(graph *models.FlowGraph) validation.Result {
	return s.validator.Validate(graph)
}

func (s *Version) baseEvent(eventType events.EventType, tenantID, flowID string) events.BaseEvent {
	return events.BaseEvent{
		ID:        s.eventBus.GenerateID(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TenantID:  tenantID,
		FlowID:    flowID,
	}
}

func (s *Version) publishAudit(ctx context.Context, key string, event eventbus.Event) {
	err := s.eventBus.Publish(ctx, key, event)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish audit event",
			"event_type", event.GetType(), "error", err)
	}
}
