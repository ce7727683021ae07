package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/voicetree/voicetree/pkg/models"
	"github.com/voicetree/voicetree/pkg/persistence"
)

// VersionRepository handles flow version database operations. All lifecycle
// mutations run in a transaction holding a row lock on the version (and, for
// live promotions, on the current live version) so the one-draft and one-live
// invariants survive concurrent callers; the partial unique indexes back the
// same guarantees at the schema level.
type VersionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewVersionRepository creates a new flow version repository.
func NewVersionRepository(db *sql.DB, logger *slog.Logger) *VersionRepository {
	return &VersionRepository{db: db, logger: logger}
}

const versionColumns = `
	id
  , flow_id
  , tenant_id
  , number
  , status
  , graph
  , promoted_by
  , created_at
  , updated_at
`

// Create assigns the next version number and stores the version as a draft.
func (r *VersionRepository) Create(ctx context.Context, version *models.FlowVersion) error {
	now := time.Now().UTC()

	if version.CreatedAt.IsZero() {
		version.CreatedAt = now
	}

	version.UpdatedAt = now
	version.Status = models.VersionStatusDraft

	if version.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate version ID: %w", err)
		}

		version.ID = id.String()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Lock the parent flow row so concurrent drafts for the same flow
	// serialize here rather than racing to the unique index.
	var flowID string

	err = tx.QueryRowContext(ctx,
		"SELECT id FROM flows WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL FOR UPDATE",
		version.FlowID, version.TenantID,
	).Scan(&flowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = persistence.NewFlowError("CreateVersion", version.TenantID, version.FlowID, persistence.ErrFlowNotFound)

			return err
		}

		return fmt.Errorf("failed to lock flow: %w", err)
	}

	var draftCount int

	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM flow_versions WHERE flow_id = $1 AND status = 'draft'",
		version.FlowID,
	).Scan(&draftCount)
	if err != nil {
		return fmt.Errorf("failed to count drafts: %w", err)
	}

	if draftCount > 0 {
		err = persistence.NewFlowError("CreateVersion", version.TenantID, version.FlowID, persistence.ErrDraftExists)

		return err
	}

	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(number), 0) + 1 FROM flow_versions WHERE flow_id = $1",
		version.FlowID,
	).Scan(&version.Number)
	if err != nil {
		return fmt.Errorf("failed to compute next version number: %w", err)
	}

	graphJSON, err := marshalGraph(version.Graph)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO flow_versions (id, flow_id, tenant_id, number, status, graph, promoted_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = tx.ExecContext(ctx, query,
		version.ID,
		version.FlowID,
		version.TenantID,
		version.Number,
		version.Status,
		graphJSON,
		version.PromotedBy,
		version.CreatedAt,
		version.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert version: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetByID returns a version scoped to the tenant, or (nil, nil) when not found.
func (r *VersionRepository) GetByID(ctx context.Context, tenantID, id string) (*models.FlowVersion, error) {
	query := "SELECT " + versionColumns + " FROM flow_versions WHERE id = $1 AND tenant_id = $2"

	row := r.db.QueryRowContext(ctx, query, id, tenantID)

	version, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan version: %w", err)
	}

	return version, nil
}

// ListByFlow returns all versions of a flow, newest number first.
func (r *VersionRepository) ListByFlow(ctx context.Context, tenantID, flowID string) ([]*models.FlowVersion, error) {
	query := "SELECT " + versionColumns + ` FROM flow_versions
		WHERE flow_id = $1 AND tenant_id = $2
		ORDER BY number DESC`

	rows, err := r.db.QueryContext(ctx, query, flowID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	versions := make([]*models.FlowVersion, 0)

	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}

		versions = append(versions, version)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating versions: %w", err)
	}

	return versions, nil
}

// GetByStatus returns the flow's version in the given status, or (nil, nil).
func (r *VersionRepository) GetByStatus(ctx context.Context, tenantID, flowID string, status models.VersionStatus) (*models.FlowVersion, error) {
	query := "SELECT " + versionColumns + ` FROM flow_versions
		WHERE flow_id = $1 AND tenant_id = $2 AND status = $3
		ORDER BY number DESC
		LIMIT 1`

	row := r.db.QueryRowContext(ctx, query, flowID, tenantID, status)

	version, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan version: %w", err)
	}

	return version, nil
}

// UpdateGraph replaces the graph of a draft version.
func (r *VersionRepository) UpdateGraph(ctx context.Context, version *models.FlowVersion) error {
	version.UpdatedAt = time.Now().UTC()

	graphJSON, err := marshalGraph(version.Graph)
	if err != nil {
		return err
	}

	query := `
		UPDATE flow_versions
		SET graph = $1, updated_at = $2
		WHERE id = $3 AND tenant_id = $4 AND status = 'draft'
	`

	result, err := r.db.ExecContext(ctx, query, graphJSON, version.UpdatedAt, version.ID, version.TenantID)
	if err != nil {
		return fmt.Errorf("failed to update graph: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		existing, err := r.GetByID(ctx, version.TenantID, version.ID)
		if err != nil {
			return err
		}

		if existing == nil {
			return persistence.NewVersionError("UpdateGraph", version.TenantID, version.ID, persistence.ErrVersionNotFound)
		}

		return persistence.NewVersionError("UpdateGraph", version.TenantID, version.ID, persistence.ErrNotDraft)
	}

	return nil
}

// Promote moves a version to the target status under row locks.
func (r *VersionRepository) Promote(ctx context.Context, tenantID, versionID string, target models.VersionStatus, promotedBy string, expectedLiveID *string) (*persistence.PromotionRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	version, err := r.lockVersion(ctx, tx, tenantID, versionID)
	if err != nil {
		return nil, err
	}

	if version == nil {
		err = persistence.NewVersionError("Promote", tenantID, versionID, persistence.ErrVersionNotFound)

		return nil, err
	}

	if !version.Status.CanPromoteTo(target) {
		err = persistence.NewVersionError("Promote", tenantID, versionID,
			fmt.Errorf("%w: %s -> %s", persistence.ErrInvalidTransition, version.Status, target))

		return nil, err
	}

	record := &persistence.PromotionRecord{PriorStatus: version.Status}

	switch target {
	case models.VersionStatusLive:
		record.Demoted, err = r.demoteLive(ctx, tx, tenantID, version, expectedLiveID)
		if err != nil {
			return nil, err
		}
	case models.VersionStatusStaged:
		record.Demoted, err = r.demoteStaged(ctx, tx, version)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		"UPDATE flow_versions SET status = $1, promoted_by = $2, updated_at = $3 WHERE id = $4",
		target, promotedBy, now, version.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			err = persistence.NewVersionError("Promote", tenantID, versionID, persistence.ErrLiveConflict)

			return nil, err
		}

		return nil, fmt.Errorf("failed to update version status: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		if isUniqueViolation(err) {
			err = persistence.NewVersionError("Promote", tenantID, versionID, persistence.ErrLiveConflict)

			return nil, err
		}

		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	version.Status = target
	version.PromotedBy = promotedBy
	version.UpdatedAt = now
	record.Version = version

	return record, nil
}

// demoteLive locks the flow's current live version, verifies it matches what
// the caller observed, and archives it. Returns the demoted version, if any.
func (r *VersionRepository) demoteLive(ctx context.Context, tx *sql.Tx, tenantID string, version *models.FlowVersion, expectedLiveID *string) (*models.FlowVersion, error) {
	query := "SELECT " + versionColumns + ` FROM flow_versions
		WHERE flow_id = $1 AND status = 'live'
		FOR UPDATE`

	row := tx.QueryRowContext(ctx, query, version.FlowID)

	current, err := scanVersion(row)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to lock live version: %w", err)
	}

	switch {
	case current == nil && expectedLiveID != nil:
		return nil, persistence.NewVersionError("Promote", tenantID, version.ID, persistence.ErrLiveConflict)
	case current != nil && (expectedLiveID == nil || *expectedLiveID != current.ID):
		return nil, persistence.NewVersionError("Promote", tenantID, version.ID, persistence.ErrLiveConflict)
	case current == nil:
		return nil, nil
	}

	now := time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		"UPDATE flow_versions SET status = 'archived', updated_at = $1 WHERE id = $2",
		now, current.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to archive live version: %w", err)
	}

	current.Status = models.VersionStatusArchived
	current.UpdatedAt = now

	return current, nil
}

// demoteStaged locks the flow's current staged version and archives it so the
// incoming promotion can take the slot. Returns the superseded version, if
// any.
func (r *VersionRepository) demoteStaged(ctx context.Context, tx *sql.Tx, version *models.FlowVersion) (*models.FlowVersion, error) {
	query := "SELECT " + versionColumns + ` FROM flow_versions
		WHERE flow_id = $1 AND status = 'staged' AND id <> $2
		FOR UPDATE`

	row := tx.QueryRowContext(ctx, query, version.FlowID, version.ID)

	current, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to lock staged version: %w", err)
	}

	now := time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		"UPDATE flow_versions SET status = 'archived', updated_at = $1 WHERE id = $2",
		now, current.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to archive staged version: %w", err)
	}

	current.Status = models.VersionStatusArchived
	current.UpdatedAt = now

	return current, nil
}

// isUniqueViolation reports whether the error is a violation of one of the
// one-per-flow partial unique indexes, which means a concurrent promotion got
// there first.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Archive retires a draft or staged version.
func (r *VersionRepository) Archive(ctx context.Context, tenantID, versionID string) (*persistence.ArchiveRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	version, err := r.lockVersion(ctx, tx, tenantID, versionID)
	if err != nil {
		return nil, err
	}

	if version == nil {
		err = persistence.NewVersionError("Archive", tenantID, versionID, persistence.ErrVersionNotFound)

		return nil, err
	}

	switch version.Status {
	case models.VersionStatusLive:
		err = persistence.NewVersionError("Archive", tenantID, versionID, persistence.ErrVersionLive)

		return nil, err
	case models.VersionStatusArchived:
		err = persistence.NewVersionError("Archive", tenantID, versionID, persistence.ErrInvalidTransition)

		return nil, err
	}

	record := &persistence.ArchiveRecord{PriorStatus: version.Status}
	now := time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		"UPDATE flow_versions SET status = 'archived', updated_at = $1 WHERE id = $2",
		now, version.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to archive version: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	version.Status = models.VersionStatusArchived
	version.UpdatedAt = now
	record.Version = version

	return record, nil
}

func (r *VersionRepository) lockVersion(ctx context.Context, tx *sql.Tx, tenantID, versionID string) (*models.FlowVersion, error) {
	query := "SELECT " + versionColumns + ` FROM flow_versions
		WHERE id = $1 AND tenant_id = $2
		FOR UPDATE`

	row := tx.QueryRowContext(ctx, query, versionID, tenantID)

	version, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to lock version: %w", err)
	}

	return version, nil
}

func marshalGraph(graph *models.FlowGraph) ([]byte, error) {
	if graph == nil {
		return nil, nil
	}

	graphJSON, err := json.Marshal(graph)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal graph: %w", err)
	}

	return graphJSON, nil
}

func scanVersion(scanner interface {
	Scan(dest ...any) error
}) (*models.FlowVersion, error) {
	var (
		version   models.FlowVersion
		graphJSON []byte
	)

	err := scanner.Scan(
		&version.ID,
		&version.FlowID,
		&version.TenantID,
		&version.Number,
		&version.Status,
		&graphJSON,
		&version.PromotedBy,
		&version.CreatedAt,
		&version.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if graphJSON != nil {
		err := json.Unmarshal(graphJSON, &version.Graph)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
		}
	}

	return &version, nil
}
