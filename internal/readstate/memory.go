package readstate

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps read marks in process memory
type MemoryStore struct {
	cap int

	mu    sync.Mutex
	seq   uint64
	marks map[uuid.UUID]map[string]uint64
}

func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{
		cap:   normalizeCap(capacity),
		marks: make(map[uuid.UUID]map[string]uint64),
	}
}

func (s *MemoryStore) MarkRead(ctx context.Context, userID uuid.UUID, notificationID string) error {
	return s.MarkAllRead(ctx, userID, []string{notificationID})
}

func (s *MemoryStore) MarkAllRead(_ context.Context, userID uuid.UUID, notificationIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.marks[userID]
	if m == nil {
		m = make(map[string]uint64)
		s.marks[userID] = m
	}
	for _, id := range notificationIDs {
		s.seq++
		m[id] = s.seq
	}
	s.evictLocked(m)
	return nil
}

// evictLocked drops the oldest marks beyond cap
func (s *MemoryStore) evictLocked(m map[string]uint64) {
	if len(m) <= s.cap {
		return
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return m[ids[i]] < m[ids[j]] })
	for _, id := range ids[:len(ids)-s.cap] {
		delete(m, id)
	}
}

func (s *MemoryStore) ReadSet(_ context.Context, userID uuid.UUID, ids []string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]bool, len(ids))
	m := s.marks[userID]
	for _, id := range ids {
		_, ok := m[id]
		out[id] = ok
	}
	return out, nil
}
