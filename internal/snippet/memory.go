package snippet

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu      sync.Mutex
	data    map[int][]byte
	dir     string
	failing error
}

// NewMemoryStore creates an empty in-memory store with a conventional
// path root.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[int][]byte),
		dir:  "/var/lib/vz/snippets",
	}
}

// Fail makes every subsequent operation return err. Passing nil heals
// the store.
func (s *MemoryStore) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = err
}

// Publish stores a copy of the artifact.
func (s *MemoryStore) Publish(_ context.Context, vmid int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing != nil {
		return s.failing
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.data[vmid] = cp
	return nil
}

// Read returns the stored artifact.
func (s *MemoryStore) Read(_ context.Context, vmid int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing != nil {
		return nil, s.failing
	}
	data, ok := s.data[vmid]
	if !ok {
		return nil, fmt.Errorf("no artifact for VMID %d", vmid)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Remove deletes the artifact if present.
func (s *MemoryStore) Remove(_ context.Context, vmid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing != nil {
		return s.failing
	}
	delete(s.data, vmid)
	return nil
}

// Path returns the conventional node-side path.
func (s *MemoryStore) Path(vmid int) string {
	return s.dir + "/" + FileName(vmid)
}

// Len returns the number of stored artifacts.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

var _ Store = (*MemoryStore)(nil)
