package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/voicetree/voicetree/pkg/events"
	"github.com/voicetree/voicetree/pkg/eventbus"
	"github.com/voicetree/voicetree/pkg/models"
	"github.com/voicetree/voicetree/pkg/persistence"
)

// Flow manages flow containers: the named, tenant-owned shells that versions
// hang off. All graph and lifecycle work lives in the Version and Promotion
// services.
type Flow struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	validator   *validator.Validate
	logger      *slog.Logger
}

// NewFlow creates a new flow service.
func NewFlow(p persistence.Persistence, eb eventbus.EventBus, logger *slog.Logger) *Flow {
	return &Flow{
		persistence: p,
		eventBus:    eb,
		validator:   validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger.With("service", "flow"),
	}
}

// Create stores a new flow after validating its fields.
func (s *Flow) Create(ctx context.Context, flow *models.Flow) (*models.Flow, error) {
	if flow.TenantID == "" {
		return nil, NewValidationError("CreateFlow", "tenant_required", "tenant is required", ErrTenantRequired)
	}

	err := s.validator.Struct(flow)
	if err != nil {
		return nil, NewValidationError("CreateFlow", "invalid_flow", err.Error(), ErrInvalidRequest)
	}

	err = s.persistence.Flows().Create(ctx, flow)
	if err != nil {
		return nil, fmt.Errorf("failed to create flow: %w", err)
	}

	s.publishAudit(ctx, flow.TenantID, events.FlowCreated{
		BaseEvent: s.baseEvent(events.FlowCreatedEvent, flow.TenantID, flow.ID),
		Name:      flow.Name,
	})

	return flow, nil
}

// Get returns a flow scoped to the tenant.
func (s *Flow) Get(ctx context.Context, tenantID, flowID string) (*models.Flow, error) {
	flow, err := s.persistence.Flows().GetByID(ctx, tenantID, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get flow: %w", err)
	}

	if flow == nil {
		return nil, &ServiceError{Op: "GetFlow", Err: ErrFlowNotFound}
	}

	return flow, nil
}

// List returns one page of the tenant's flows.
func (s *Flow) List(ctx context.Context, tenantID string, opts persistence.ListFlowsOptions) (*persistence.FlowListResult, error) {
	if tenantID == "" {
		return nil, NewValidationError("ListFlows", "tenant_required", "tenant is required", ErrTenantRequired)
	}

	result, err := s.persistence.Flows().List(ctx, tenantID, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	return result, nil
}

// Update rewrites the mutable fields of a flow.
func (s *Flow) Update(ctx context.Context, flow *models.Flow) (*models.Flow, error) {
	err := s.validator.Struct(flow)
	if err != nil {
		return nil, NewValidationError("UpdateFlow", "invalid_flow", err.Error(), ErrInvalidRequest)
	}

	err = s.persistence.Flows().Update(ctx, flow)
	if err != nil {
		if persistence.IsFlowNotFound(err) {
			return nil, &ServiceError{Op: "UpdateFlow", Err: ErrFlowNotFound}
		}

		return nil, fmt.Errorf("failed to update flow: %w", err)
	}

	return flow, nil
}

// Delete soft deletes a flow. Its versions stay on record for audit purposes.
func (s *Flow) Delete(ctx context.Context, tenantID, flowID string) error {
	err := s.persistence.Flows().Delete(ctx, tenantID, flowID)
	if err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}

	s.publishAudit(ctx, tenantID, events.FlowDeleted{
		BaseEvent: s.baseEvent(events.FlowDeletedEvent, tenantID, flowID),
	})

	return nil
}

func (s *Flow) baseEvent(eventType events.EventType, tenantID, flowID string) events.BaseEvent {
	return events.BaseEvent{
		ID:        s.eventBus.GenerateID(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TenantID:  tenantID,
		FlowID:    flowID,
	}
}

// publishAudit emits an audit event; failures are logged, never surfaced, so
// a broken broker cannot block tenant operations.
func (s *Flow) publishAudit(ctx context.Context, key string, event eventbus.Event) {
	err := s.eventBus.Publish(ctx, key, event)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish audit event",
			"event_type", event.GetType(), "error", err)
	}
}
