package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"dynosched/pkg/config"
)

// Store persists the full newest-first record sequence.
type Store interface {
	Load(ctx context.Context) ([]ActionRecord, error)
	Save(ctx context.Context, records []ActionRecord) error
	Close() error
}

// OpenStore opens the store selected by cfg.Driver.
func OpenStore(cfg *config.HistoryConfig) (Store, error) {
	if cfg == nil {
		cfg = config.NewHistoryConfig()
	}
	switch cfg.Driver {
	case "", "file":
		return NewFileStore(cfg.Path)
	case "sqlite":
		return NewSQLStore(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}

// OpenFromConfig opens the configured store and wraps it in an ActionLog.
func OpenFromConfig(cfg *config.HistoryConfig) (*ActionLog, error) {
	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	capacity := DefaultCapacity
	if cfg != nil && cfg.MaxEntries > 0 {
		capacity = cfg.MaxEntries
	}
	return Open(store, Options{Capacity: capacity})
}

// FileStore keeps records as a JSON array in a single file. Writes go to a
// temp file that is then renamed over the existing one.
type FileStore struct {
	path string
}

// NewFileStore creates the file (holding "[]") and its directory if needed.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		path = config.DefaultHistoryPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
			return nil, fmt.Errorf("create history file: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) ([]ActionRecord, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return []ActionRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []ActionRecord{}, nil
	}
	var records []ActionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, s.path, err)
	}
	return records, nil
}

func (s *FileStore) Save(ctx context.Context, records []ActionRecord) error {
	if records == nil {
		records = []ActionRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}

func (s *FileStore) Close() error { return nil }

// MemoryStore keeps records in memory only.
type MemoryStore struct {
	mu      sync.Mutex
	records []ActionRecord
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load(ctx context.Context) ([]ActionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ActionRecord(nil), s.records...), nil
}

func (s *MemoryStore) Save(ctx context.Context, records []ActionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]ActionRecord(nil), records...)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
