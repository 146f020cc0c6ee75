package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"pymentor/internal/session"
)

// MemoryStore keeps encoded snapshots in process. Values are stored as JSON
// so callers never share slices with the live session.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

func (s *MemoryStore) Save(_ context.Context, snap session.Snapshot) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	id, err := normalizeID(snap.SessionID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = raw
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (session.Snapshot, error) {
	if s == nil {
		return session.Snapshot{}, fmt.Errorf("store is nil")
	}
	id, err := normalizeID(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	s.mu.RLock()
	raw, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return session.Snapshot{}, session.ErrSnapshotNotFound
	}
	var snap session.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return session.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
