package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps orders as a JSON array in a single file. Writes replace the
// file atomically through a temp file and rename; a mutex serialises writers
// within the process.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by the file at path. The file does not
// need to exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Append implements Store.
func (s *FileStore) Append(ctx context.Context, o Order) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return false, err
	}
	for _, existing := range all {
		if existing.ID == o.ID {
			return false, nil
		}
	}
	if err := s.save(append(all, o)); err != nil {
		return false, err
	}
	return true, nil
}

// ListRecent implements Store.
func (s *FileStore) ListRecent(ctx context.Context, n int) ([]Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	s.mu.Lock()
	all, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []Order{}, nil
	}
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

// Exists implements Store.
func (s *FileStore) Exists(ctx context.Context, id ID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	s.mu.Lock()
	all, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return false, err
	}
	for _, o := range all {
		if o.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// Ping checks that the store directory is reachable.
func (s *FileStore) Ping(context.Context) error {
	if _, err := os.Stat(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

func (s *FileStore) load() ([]Order, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Order{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrStorage, s.path, err)
	}
	out := []Order{}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrStorage, s.path, err)
	}
	return out, nil
}

func (s *FileStore) save(all []Order) error {
	data, err := json.MarshalIndent(all, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrStorage, err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	tmp, err := os.CreateTemp(dir, ".orders-*.json")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write: %w", ErrStorage, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: sync: %w", ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: rename: %w", ErrStorage, err)
	}
	return nil
}
