package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/voicetree/voicetree/pkg/models"
	"github.com/voicetree/voicetree/pkg/persistence"
)

const defaultPageSize = 50

// FlowRepository handles flow-related database operations.
type FlowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(db *sql.DB, logger *slog.Logger) *FlowRepository {
	return &FlowRepository{db: db, logger: logger}
}

// Create inserts a new flow, assigning an identifier and timestamps when unset.
func (r *FlowRepository) Create(ctx context.Context, flow *models.Flow) error {
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

	query := `
		INSERT INTO flows (id, tenant_id, name, description, is_template, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		flow.ID,
		flow.TenantID,
		flow.Name,
		flow.Description,
		flow.IsTemplate,
		flow.CreatedAt,
		flow.UpdatedAt,
		flow.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert flow: %w", err)
	}

	return nil
}

// GetByID returns a flow scoped to the tenant, or (nil, nil) when not found.
func (r *FlowRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Flow, error) {
	query := `
		SELECT
			id
		  , tenant_id
		  , name
		  , description
		  , is_template
		  , created_at
		  , updated_at
		  , deleted_at
		FROM flows
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`

	row := r.db.QueryRowContext(ctx, query, id, tenantID)

	flow, err := scanFlow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan flow: %w", err)
	}

	return flow, nil
}

// List returns one page of the tenant's flows, newest first, plus the total count.
func (r *FlowRepository) List(ctx context.Context, tenantID string, opts persistence.ListFlowsOptions) (*persistence.FlowListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	var total int

	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM flows WHERE tenant_id = $1 AND deleted_at IS NULL", tenantID,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count flows: %w", err)
	}

	query := `
		SELECT
			id
		  , tenant_id
		  , name
		  , description
		  , is_template
		  , created_at
		  , updated_at
		  , deleted_at
		FROM flows
		WHERE tenant_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query flows: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	flows := make([]*models.Flow, 0)

	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}

		flows = append(flows, flow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating flows: %w", err)
	}

	return &persistence.FlowListResult{Flows: flows, Total: total}, nil
}

// Update rewrites the mutable fields of a flow.
func (r *FlowRepository) Update(ctx context.Context, flow *models.Flow) error {
	flow.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE flows
		SET name = $1, description = $2, is_template = $3, updated_at = $4
		WHERE id = $5 AND tenant_id = $6 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		flow.Name,
		flow.Description,
		flow.IsTemplate,
		flow.UpdatedAt,
		flow.ID,
		flow.TenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to update flow: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewFlowError("Update", flow.TenantID, flow.ID, persistence.ErrFlowNotFound)
	}

	return nil
}

// Delete soft deletes a flow by setting deleted_at timestamp.
func (r *FlowRepository) Delete(ctx context.Context, tenantID, id string) error {
	query := `UPDATE flows SET deleted_at = NOW() WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Flow doesn't exist or already deleted - this is not an error
		return nil
	}

	return nil
}

func scanFlow(scanner interface {
	Scan(dest ...any) error
}) (*models.Flow, error) {
	var flow models.Flow

	err := scanner.Scan(
		&flow.ID,
		&flow.TenantID,
		&flow.Name,
		&flow.Description,
		&flow.IsTemplate,
		&flow.CreatedAt,
		&flow.UpdatedAt,
		&flow.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	return &flow, nil
}
