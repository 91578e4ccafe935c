package memory

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"sync"
)

// Storage is an in-memory artifact store for tests.
type Storage struct {
	mu    sync.Mutex
	items map[string][]byte
}

func (s *Storage) key(buildID int64, path string) string {
	return fmt.Sprintf("%d/%s", buildID, path)
}

// Put stores content as the artifact at path within buildID.
func (s *Storage) Put(buildID int64, path string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[s.key(buildID, path)] = append([]byte(nil), content...)
}

func (s *Storage) Open(buildID int64, path string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.items[s.key(buildID, path)]
	if !ok {
		return nil, fmt.Errorf("Storage.Open: %s: %w", path, fs.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// NewStorage returns a new initialized Storage
func NewStorage() *Storage {
	return &Storage{items: map[string][]byte{}}
}
