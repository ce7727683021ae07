package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/voicetree/voicetree/pkg/models"
	"github.com/voicetree/voicetree/pkg/persistence"
)

const defaultPageSize = 50

// FlowRepository handles flow-related file operations.
type FlowRepository struct {
	store *store
}

// Create writes a new flow document with no versions yet.
func (fr *FlowRepository) Create(_ context.Context, flow *models.Flow) error {
	now := time.Now().UTC()

	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	flow.UpdatedAt = now

	if flow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate flow ID: %w", err)
		}

		flow.ID = id.String()
	}

	mutex := fr.store.lock(flow.TenantID, flow.ID)
	mutex.Lock()
	defer mutex.Unlock()

	doc := &flowDocument{
		Flow:     flow,
		Versions: make([]*models.FlowVersion, 0),
	}

	return fr.store.save(flow.TenantID, flow.ID, doc)
}

// GetByID retrieves a flow by its ID, or (nil, nil) when not found.
func (fr *FlowRepository) GetByID(_ context.Context, tenantID, id string) (*models.Flow, error) {
	doc, err := fr.store.load(tenantID, id)
	if err != nil {
		return nil, err
	}

	if doc == nil || doc.Flow == nil || doc.Flow.DeletedAt != nil {
		return nil, nil
	}

	return doc.Flow, nil
}

// List returns one page of the tenant's flows, newest first.
func (fr *FlowRepository) List(ctx context.Context, tenantID string, opts persistence.ListFlowsOptions) (*persistence.FlowListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	dir := fr.store.tenantDir(tenantID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return &persistence.FlowListResult{Flows: make([]*models.Flow, 0)}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list flow documents: %w", err)
	}

	flows := make([]*models.Flow, 0, len(jsonFiles))

	for _, name := range jsonFiles {
		flowID := name[:len(name)-len(".json")]

		flow, err := fr.GetByID(ctx, tenantID, flowID)
		if err != nil {
			return nil, fmt.Errorf("failed to load flow %s: %w", flowID, err)
		}

		if flow != nil {
			flows = append(flows, flow)
		}
	}

	sort.Slice(flows, func(i, j int) bool {
		return flows[i].CreatedAt.After(flows[j].CreatedAt)
	})

	total := len(flows)

	if offset >= total {
		return &persistence.FlowListResult{Flows: make([]*models.Flow, 0), Total: total}, nil
	}

	end := offset + limit
	if end > total {
		end = total
	}

	return &persistence.FlowListResult{Flows: flows[offset:end], Total: total}, nil
}

// Update rewrites the mutable fields of a flow.
func (fr *FlowRepository) Update(_ context.Context, flow *models.Flow) error {
	mutex := fr.store.lock(flow.TenantID, flow.ID)
	mutex.Lock()
	defer mutex.Unlock()

	doc, err := fr.store.load(flow.TenantID, flow.ID)
	if err != nil {
		return err
	}

	if doc == nil || doc.Flow == nil || doc.Flow.DeletedAt != nil {
		return persistence.NewFlowError("Update", flow.TenantID, flow.ID, persistence.ErrFlowNotFound)
	}

	doc.Flow.Name = flow.Name
	doc.Flow.Description = flow.Description
	doc.Flow.IsTemplate = flow.IsTemplate
	doc.Flow.UpdatedAt = time.Now().UTC()
	flow.UpdatedAt = doc.Flow.UpdatedAt

	return fr.store.save(flow.TenantID, flow.ID, doc)
}

// Delete soft deletes a flow by setting its deleted_at timestamp.
func (fr *FlowRepository) Delete(_ context.Context, tenantID, id string) error {
	mutex := fr.store.lock(tenantID, id)
	mutex.Lock()
	defer mutex.Unlock()

	doc, err := fr.store.load(tenantID, id)
	if err != nil {
		return err
	}

	if doc == nil || doc.Flow == nil || doc.Flow.DeletedAt != nil {
		// Flow doesn't exist or already deleted - this is not an error
		return nil
	}

	now := time.Now().UTC()
	doc.Flow.DeletedAt = &now
	doc.Flow.UpdatedAt = now

	return fr.store.save(tenantID, id, doc)
}
