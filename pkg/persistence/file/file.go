// Package file provides file-based persistence implementation for flows and versions.
// Each flow is stored as one JSON document holding the flow and all of its
// versions; a per-flow mutex serializes lifecycle mutations the way the SQL
// backend's row locks do.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/voicetree/voicetree/pkg/models"
	"github.com/voicetree/voicetree/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	store       *store
	flowRepo    *FlowRepository
	versionRepo *VersionRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)
	st := newStore(cleanRoot)

	return &Persistence{
		store:       st,
		flowRepo:    &FlowRepository{store: st},
		versionRepo: &VersionRepository{store: st},
	}
}

// Flows returns the flow repository implementation for file persistence.
func (fp *Persistence) Flows() persistence.FlowRepository {
	return fp.flowRepo
}

// Versions returns the flow version repository implementation for file persistence.
func (fp *Persistence) Versions() persistence.VersionRepository {
	return fp.versionRepo
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.store.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// flowDocument is the on-disk shape of one flow and all of its versions.
type flowDocument struct {
	Flow     *models.Flow          `json:"flow"`
	Versions []*models.FlowVersion `json:"versions"`
}

type store struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newStore(root string) *store {
	return &store{
		root:  root,
		locks: make(map[string]*sync.Mutex),
	}
}

// lock returns the mutex guarding one flow's document, creating it on first use.
func (s *store) lock(tenantID, flowID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tenantID + "/" + flowID

	mutex, ok := s.locks[key]
	if !ok {
		mutex = &sync.Mutex{}
		s.locks[key] = mutex
	}

	return mutex
}

func (s *store) tenantDir(tenantID string) string {
	return filepath.Join(s.root, "flows", tenantID)
}

func (s *store) documentPath(tenantID, flowID string) string {
	return filepath.Join(s.tenantDir(tenantID), flowID+".json")
}

// load reads a flow document, returning (nil, nil) when the file does not exist.
func (s *store) load(tenantID, flowID string) (*flowDocument, error) {
	data, err := os.ReadFile(s.documentPath(tenantID, flowID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read flow document: %w", err)
	}

	var doc flowDocument

	err = json.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow document: %w", err)
	}

	return &doc, nil
}

// save writes a flow document atomically via a temp file and rename.
func (s *store) save(tenantID, flowID string, doc *flowDocument) error {
	dir := s.tenantDir(tenantID)

	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create tenant directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal flow document: %w", err)
	}

	tmp, err := os.CreateTemp(dir, flowID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	_, err = tmp.Write(data)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write flow document: %w", err)
	}

	err = tmp.Close()
	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to close temp file: %w", err)
	}

	err = os.Rename(tmp.Name(), s.documentPath(tenantID, flowID))
	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to replace flow document: %w", err)
	}

	return nil
}
