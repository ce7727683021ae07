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

// VersionRepository handles flow version file operations. Every mutation
// holds the flow's mutex for the whole read-modify-write cycle, which gives
// the same serialization the SQL backend gets from row locks.
type VersionRepository struct {
	store *store
}

// Create assigns the next version number and stores the version as a draft.
func (vr *VersionRepository) Create(_ context.Context, version *models.FlowVersion) error {
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

	mutex := vr.store.lock(version.TenantID, version.FlowID)
	mutex.Lock()
	defer mutex.Unlock()

	doc, err := vr.store.load(version.TenantID, version.FlowID)
	if err != nil {
		return err
	}

	if doc == nil || doc.Flow == nil || doc.Flow.DeletedAt != nil {
		return persistence.NewFlowError("CreateVersion", version.TenantID, version.FlowID, persistence.ErrFlowNotFound)
	}

	maxNumber := 0

	for _, existing := range doc.Versions {
		if existing.Status == models.VersionStatusDraft {
			return persistence.NewFlowError("CreateVersion", version.TenantID, version.FlowID, persistence.ErrDraftExists)
		}

		if existing.Number > maxNumber {
			maxNumber = existing.Number
		}
	}

	version.Number = maxNumber + 1
	doc.Versions = append(doc.Versions, version)

	return vr.store.save(version.TenantID, version.FlowID, doc)
}

// GetByID retrieves a version by its ID, or (nil, nil) when not found.
func (vr *VersionRepository) GetByID(_ context.Context, tenantID, id string) (*models.FlowVersion, error) {
	_, version, err := vr.findVersion(tenantID, id)
	if err != nil {
		return nil, err
	}

	return version, nil
}

// ListByFlow returns all versions of a flow, newest number first.
func (vr *VersionRepository) ListByFlow(_ context.Context, tenantID, flowID string) ([]*models.FlowVersion, error) {
	doc, err := vr.store.load(tenantID, flowID)
	if err != nil {
		return nil, err
	}

	if doc == nil {
		return make([]*models.FlowVersion, 0), nil
	}

	versions := make([]*models.FlowVersion, len(doc.Versions))
	copy(versions, doc.Versions)

	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Number > versions[j].Number
	})

	return versions, nil
}

// GetByStatus returns the flow's version in the given status, or (nil, nil).
func (vr *VersionRepository) GetByStatus(_ context.Context, tenantID, flowID string, status models.VersionStatus) (*models.FlowVersion, error) {
	doc, err := vr.store.load(tenantID, flowID)
	if err != nil {
		return nil, err
	}

	if doc == nil {
		return nil, nil
	}

	var found *models.FlowVersion

	for _, version := range doc.Versions {
		if version.Status != status {
			continue
		}

		if found == nil || version.Number > found.Number {
			found = version
		}
	}

	return found, nil
}

// UpdateGraph replaces the graph of a draft version.
func (vr *VersionRepository) UpdateGraph(_ context.Context, version *models.FlowVersion) error {
	mutex := vr.store.lock(version.TenantID, version.FlowID)
	mutex.Lock()
	defer mutex.Unlock()

	doc, err := vr.store.load(version.TenantID, version.FlowID)
	if err != nil {
		return err
	}

	if doc == nil {
		return persistence.NewVersionError("UpdateGraph", version.TenantID, version.ID, persistence.ErrVersionNotFound)
	}

	stored := findInDocument(doc, version.ID)
	if stored == nil {
		return persistence.NewVersionError("UpdateGraph", version.TenantID, version.ID, persistence.ErrVersionNotFound)
	}

	if stored.Status != models.VersionStatusDraft {
		return persistence.NewVersionError("UpdateGraph", version.TenantID, version.ID, persistence.ErrNotDraft)
	}

	stored.Graph = version.Graph
	stored.UpdatedAt = time.Now().UTC()
	version.UpdatedAt = stored.UpdatedAt
	version.Number = stored.Number
	version.Status = stored.Status

	return vr.store.save(version.TenantID, version.FlowID, doc)
}

// Promote moves a version to the target status under the flow's mutex.
func (vr *VersionRepository) Promote(_ context.Context, tenantID, versionID string, target models.VersionStatus, promotedBy string, expectedLiveID *string) (*persistence.PromotionRecord, error) {
	flowID, located, err := vr.findVersion(tenantID, versionID)
	if err != nil {
		return nil, err
	}

	if located == nil {
		return nil, persistence.NewVersionError("Promote", tenantID, versionID, persistence.ErrVersionNotFound)
	}

	mutex := vr.store.lock(tenantID, flowID)
	mutex.Lock()
	defer mutex.Unlock()

	// Reload under the lock; the pre-lock lookup only resolved the flow.
	doc, err := vr.store.load(tenantID, flowID)
	if err != nil {
		return nil, err
	}

	version := findInDocument(doc, versionID)
	if version == nil {
		return nil, persistence.NewVersionError("Promote", tenantID, versionID, persistence.ErrVersionNotFound)
	}

	if !version.Status.CanPromoteTo(target) {
		return nil, persistence.NewVersionError("Promote", tenantID, versionID,
			fmt.Errorf("%w: %s -> %s", persistence.ErrInvalidTransition, version.Status, target))
	}

	record := &persistence.PromotionRecord{PriorStatus: version.Status}
	now := time.Now().UTC()

	if target == models.VersionStatusLive {
		var currentLive *models.FlowVersion

		for _, candidate := range doc.Versions {
			if candidate.Status == models.VersionStatusLive {
				currentLive = candidate

				break
			}
		}

		switch {
		case currentLive == nil && expectedLiveID != nil:
			return nil, persistence.NewVersionError("Promote", tenantID, versionID, persistence.ErrLiveConflict)
		case currentLive != nil && (expectedLiveID == nil || *expectedLiveID != currentLive.ID):
			return nil, persistence.NewVersionError("Promote", tenantID, versionID, persistence.ErrLiveConflict)
		}

		if currentLive != nil {
			currentLive.Status = models.VersionStatusArchived
			currentLive.UpdatedAt = now
			record.Demoted = currentLive
		}
	}

	// At most one staged version per flow: staging a new candidate archives
	// the one it supersedes, mirroring the live replacement.
	if target == models.VersionStatusStaged {
		for _, candidate := range doc.Versions {
			if candidate.Status != models.VersionStatusStaged || candidate.ID == versionID {
				continue
			}

			candidate.Status = models.VersionStatusArchived
			candidate.UpdatedAt = now
			record.Demoted = candidate

			break
		}
	}

	version.Status = target
	version.PromotedBy = promotedBy
	version.UpdatedAt = now
	record.Version = version

	err = vr.store.save(tenantID, flowID, doc)
	if err != nil {
		return nil, err
	}

	return record, nil
}

// Archive retires a draft or staged version.
func (vr *VersionRepository) Archive(_ context.Context, tenantID, versionID string) (*persistence.ArchiveRecord, error) {
	flowID, located, err := vr.findVersion(tenantID, versionID)
	if err != nil {
		return nil, err
	}

	if located == nil {
		return nil, persistence.NewVersionError("Archive", tenantID, versionID, persistence.ErrVersionNotFound)
	}

	mutex := vr.store.lock(tenantID, flowID)
	mutex.Lock()
	defer mutex.Unlock()

	doc, err := vr.store.load(tenantID, flowID)
	if err != nil {
		return nil, err
	}

	version := findInDocument(doc, versionID)
	if version == nil {
		return nil, persistence.NewVersionError("Archive", tenantID, versionID, persistence.ErrVersionNotFound)
	}

	switch version.Status {
	case models.VersionStatusLive:
		return nil, persistence.NewVersionError("Archive", tenantID, versionID, persistence.ErrVersionLive)
	case models.VersionStatusArchived:
		return nil, persistence.NewVersionError("Archive", tenantID, versionID, persistence.ErrInvalidTransition)
	}

	record := &persistence.ArchiveRecord{PriorStatus: version.Status}

	version.Status = models.VersionStatusArchived
	version.UpdatedAt = time.Now().UTC()
	record.Version = version

	err = vr.store.save(tenantID, flowID, doc)
	if err != nil {
		return nil, err
	}

	return record, nil
}

// findVersion scans the tenant's flow documents for a version ID and returns
// the owning flow ID and the version.
func (vr *VersionRepository) findVersion(tenantID, versionID string) (string, *models.FlowVersion, error) {
	dir := vr.store.tenantDir(tenantID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return "", nil, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return "", nil, fmt.Errorf("failed to list flow documents: %w", err)
	}

	for _, name := range jsonFiles {
		flowID := name[:len(name)-len(".json")]

		doc, err := vr.store.load(tenantID, flowID)
		if err != nil {
			return "", nil, err
		}

		if doc == nil {
			continue
		}

		if version := findInDocument(doc, versionID); version != nil {
			return flowID, version, nil
		}
	}

	return "", nil, nil
}

func findInDocument(doc *flowDocument, versionID string) *models.FlowVersion {
	if doc == nil {
		return nil
	}

	for _, version := range doc.Versions {
		if version.ID == versionID {
			return version
		}
	}

	return nil
}
