package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// MemoryStore keeps objects in memory. Used in tests and --memory mode.
type MemoryStore struct {
	mu         sync.RWMutex
	objects    map[string]Object
	publicBase string
}

// Object is a stored blob with its content type
type Object struct {
	Data        []byte
	ContentType string
}

// NewMemoryStore creates an empty store; URLs are built under publicBase
func NewMemoryStore(publicBase string) *MemoryStore {
	if publicBase == "" {
		publicBase = "memory://videos"
	}
	return &MemoryStore{
		objects:    make(map[string]Object),
		publicBase: strings.TrimRight(publicBase, "/"),
	}
}

// Put stores the content of r at key, overwriting
func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}
	s.mu.Lock()
	s.objects[key] = Object{Data: data, ContentType: contentType}
	s.mu.Unlock()
	return nil
}

// PublicURL returns publicBase/key
func (s *MemoryStore) PublicURL(key string) string {
	if key == "" {
		return ""
	}
	return s.publicBase + "/" + key
}

// Get returns the stored object
func (s *MemoryStore) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	return o, ok
}

// Len returns the number of stored objects
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
