package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/voicetree/voicetree/pkg/cache"
	"github.com/voicetree/voicetree/pkg/events"
	"github.com/voicetree/voicetree/pkg/eventbus"
	"github.com/voicetree/voicetree/pkg/models"
	"github.com/voicetree/voicetree/pkg/otelhelper"
	"github.com/voicetree/voicetree/pkg/persistence"
	"github.com/voicetree/voicetree/pkg/validation"
)

// Promotion drives the version lifecycle: draft -> staged -> live -> archived.
// A promotion to live archives the previous live version in the same storage
// transaction; the service validates the graph first and refreshes the live
// cache afterward.
type Promotion struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	validator   *validation.Validator
	cache       cache.VersionCache
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewPromotion creates a new promotion service. A nil tracer disables spans.
func NewPromotion(p persistence.Persistence, eb eventbus.EventBus, v *validation.Validator, c cache.VersionCache, tracer trace.Tracer, logger *slog.Logger) *Promotion {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("promotion")
	}

	return &Promotion{
		persistence: p,
		eventBus:    eb,
		validator:   v,
		cache:       c,
		tracer:      tracer,
		logger:      logger.With("service", "promotion"),
	}
}

// Promote moves a version to staged or live. The graph must pass validation
// with zero errors; warnings never block. Promoting to live archives the
// current live version atomically, and a concurrent promotion that changes
// the live version between read and commit fails with ErrPromotionConflict.
func (s *Promotion) Promote(ctx context.Context, tenantID, versionID string, target models.VersionStatus, promotedBy string) (*persistence.PromotionRecord, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "promotion.promote",
		attribute.String(otelhelper.TenantIDKey, tenantID),
		attribute.String(otelhelper.VersionIDKey, versionID),
		attribute.String(otelhelper.TargetStatusKey, string(target)),
	)
	defer span.End()

	if target != models.VersionStatusStaged && target != models.VersionStatusLive {
		return nil, NewValidationError("Promote", "invalid_target",
			fmt.Sprintf("cannot promote to %q", target), ErrInvalidTarget)
	}

	if promotedBy == "" {
		return nil, NewValidationError("Promote", "promoted_by_required",
			"promoted_by must identify who promotes the version", ErrPromotedByRequired)
	}

	version, err := s.persistence.Versions().GetByID(ctx, tenantID, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}

	if version == nil {
		return nil, &ServiceError{Op: "Promote", Err: ErrVersionNotFound}
	}

	if !version.Status.CanPromoteTo(target) {
		return nil, &ServiceError{
			Op:      "Promote",
			Message: fmt.Sprintf("cannot promote a %s version to %s", version.Status, target),
			Err:     ErrInvalidTransition,
		}
	}

	result := s.validator.Validate(version.Graph)
	if !result.Valid {
		return nil, &GraphValidationError{Op: "Promote", Result: result}
	}

	var expectedLiveID *string

	if target == models.VersionStatusLive {
		currentLive, err := s.persistence.Versions().GetByStatus(ctx, tenantID, version.FlowID, models.VersionStatusLive)
		if err != nil {
			return nil, fmt.Errorf("failed to get live version: %w", err)
		}

		if currentLive != nil {
			expectedLiveID = &currentLive.ID
		}
	}

	record, err := s.persistence.Versions().Promote(ctx, tenantID, versionID, target, promotedBy, expectedLiveID)
	if err != nil {
		return nil, s.translatePromoteError(err)
	}

	s.refreshLiveCache(ctx, record)

	s.publishAudit(ctx, tenantID, events.VersionPromoted{
		BaseEvent:     s.baseEvent(events.VersionPromotedEvent, tenantID, record.Version.FlowID),
		VersionID:     record.Version.ID,
		VersionNumber: record.Version.Number,
		Target:        target,
		PriorStatus:   record.PriorStatus,
		PromotedBy:    promotedBy,
		DemotedID:     demotedID(record),
	})

	s.logger.InfoContext(ctx, "version promoted",
		"tenant_id", tenantID,
		"flow_id", record.Version.FlowID,
		"version_id", record.Version.ID,
		"number", record.Version.Number,
		"target", target,
	)

	return record, nil
}

// Archive retires a draft or staged version. Live versions cannot be archived
// directly; they leave live only by being replaced.
func (s *Promotion) Archive(ctx context.Context, tenantID, versionID, archivedBy string) (*models.FlowVersion, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "promotion.archive",
		attribute.String(otelhelper.TenantIDKey, tenantID),
		attribute.String(otelhelper.VersionIDKey, versionID),
	)
	defer span.End()

	if archivedBy == "" {
		return nil, NewValidationError("Archive", "archived_by_required",
			"archived_by must identify who archives the version", ErrArchivedByRequired)
	}

	record, err := s.persistence.Versions().Archive(ctx, tenantID, versionID)
	if err != nil {
		switch {
		case persistence.IsVersionNotFound(err):
			return nil, &ServiceError{Op: "Archive", Err: ErrVersionNotFound}
		case errors.Is(err, persistence.ErrVersionLive):
			return nil, &ServiceError{Op: "Archive", Err: ErrVersionLive}
		case persistence.IsInvalidTransition(err):
			return nil, &ServiceError{Op: "Archive", Err: ErrInvalidTransition}
		}

		return nil, fmt.Errorf("failed to archive version: %w", err)
	}

	s.publishAudit(ctx, tenantID, events.VersionArchived{
		BaseEvent:     s.baseEvent(events.VersionArchivedEvent, tenantID, record.Version.FlowID),
		VersionID:     record.Version.ID,
		VersionNumber: record.Version.Number,
		PriorStatus:   record.PriorStatus,
		ArchivedBy:    archivedBy,
	})

	return record.Version, nil
}

func (s *Promotion) translatePromoteError(err error) error {
	switch {
	case persistence.IsVersionNotFound(err):
		return &ServiceError{Op: "Promote", Err: ErrVersionNotFound}
	case persistence.IsLiveConflict(err):
		return &ServiceError{Op: "Promote", Err: ErrPromotionConflict}
	case persistence.IsInvalidTransition(err):
		return &ServiceError{Op: "Promote", Err: ErrInvalidTransition}
	}

	return fmt.Errorf("failed to promote version: %w", err)
}

// refreshLiveCache replaces the cached live version after a live promotion.
// Cache errors are logged; storage already holds the truth.
func (s *Promotion) refreshLiveCache(ctx context.Context, record *persistence.PromotionRecord) {
	if record.Version.Status != models.VersionStatusLive {
		return
	}

	err := s.cache.InvalidateLive(ctx, record.Version.TenantID, record.Version.FlowID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate live version cache", "error", err)
	}

	err = s.cache.SetLive(ctx, record.Version)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to cache live version", "error", err)
	}
}

func demotedID(record *persistence.PromotionRecord) string {
	if record.Demoted == nil {
		return ""
	}

	return record.Demoted.ID
}

func (s *Promotion) baseEvent(eventType events.EventType, tenantID, flowID string) events.BaseEvent {
	return events.BaseEvent{
		ID:        s.eventBus.GenerateID(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TenantID:  tenantID,
		FlowID:    flowID,
	}
}

func (s *Promotion) publishAudit(ctx context.Context, key string, event eventbus.Event) {
	err := s.eventBus.Publish(ctx, key, event)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish audit event",
			"event_type", event.GetType(), "error", err)
	}
}
