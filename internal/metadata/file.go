package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Lllllllleong/pdfvault/internal/models"
)

// FileStore keeps all records in one JSON file. Every mutation marshals the
// full set and replaces the file via write-temp-then-rename; a crash mid-write
// leaves the previous version intact, never a torn file. A single mutex
// serializes writers, which also satisfies single-writer-per-id.
type FileStore struct {
	path string

	mu      sync.RWMutex
	records map[string]*models.DocumentRecord
}

// NewFileStore loads (or initializes) the store file at path.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create metadata directory: %w", err)
	}
	s := &FileStore{path: path, records: make(map[string]*models.DocumentRecord)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file %s: %w", path, err)
	}
	var records []*models.DocumentRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse metadata file %s: %w", path, err)
	}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s, nil
}

// persist writes the full record set. Callers hold the write lock.
func (s *FileStore) persist() error {
	records := make([]*models.DocumentRecord, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".metadata-*")
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *FileStore) Put(ctx context.Context, record *models.DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.records[record.ID]
	copied := *record
	s.records[record.ID] = &copied
	if err := s.persist(); err != nil {
		// Roll the in-memory state back so memory matches disk.
		if existed {
			s.records[record.ID] = previous
		} else {
			delete(s.records, record.ID)
		}
		return err
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*models.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	copied := *r
	return &copied, nil
}

func (s *FileStore) List(ctx context.Context) ([]*models.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*models.DocumentRecord, 0, len(s.records))
	for _, r := range s.records {
		copied := *r
		records = append(records, &copied)
	}
	return records, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	delete(s.records, id)
	if err := s.persist(); err != nil {
		s.records[id] = previous
		return err
	}
	return nil
}
