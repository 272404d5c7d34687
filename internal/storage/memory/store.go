package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/zhouzirui/z-interview/backend/internal/storage"
)

// Store keeps artifacts in process memory, suitable for tests and local runs.
type Store struct {
	mu        sync.RWMutex
	documents map[string]map[string][]byte
	blobs     map[string]map[string][]byte
	order     []string
	writes    map[string]int
}

// NewStore bootstraps an empty in-memory store.
func NewStore() *Store {
	return &Store{
		documents: make(map[string]map[string][]byte),
		blobs:     make(map[string]map[string][]byte),
		writes:    make(map[string]int),
	}
}

func (s *Store) touch(sessionID string) {
	if _, ok := s.documents[sessionID]; ok {
		return
	}
	if _, ok := s.blobs[sessionID]; ok {
		return
	}
	s.order = append(s.order, sessionID)
}

// SaveJSON stores payload encoded as JSON.
func (s *Store) SaveJSON(_ context.Context, sessionID, kind string, payload any) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch(sessionID)
	if s.documents[sessionID] == nil {
		s.documents[sessionID] = make(map[string][]byte)
	}
	s.documents[sessionID][kind] = data
	s.writes[kind]++
	return nil
}

// LoadJSON decodes a stored document into out.
func (s *Store) LoadJSON(_ context.Context, sessionID, kind string, out any) error {
	s.mu.RLock()
	data, ok := s.documents[sessionID][kind]
	s.mu.RUnlock()
	if !ok {
		return storage.ErrNotFound
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	return nil
}

// SaveArtifact stores a binary artifact.
func (s *Store) SaveArtifact(_ context.Context, sessionID, kind string, data []byte) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch(sessionID)
	if s.blobs[sessionID] == nil {
		s.blobs[sessionID] = make(map[string][]byte)
	}
	s.blobs[sessionID][kind] = append([]byte(nil), data...)
	return nil
}

// LoadArtifact returns a copy of a binary artifact.
func (s *Store) LoadArtifact(_ context.Context, sessionID, kind string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[sessionID][kind]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// ListSessions returns session ids, most recently created first.
func (s *Store) ListSessions(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.order))
	for i, id := range s.order {
		ids[len(s.order)-1-i] = id
	}
	return ids, nil
}

// Writes returns how many times a document of kind was saved.
func (s *Store) Writes(kind string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes[kind]
}
