package memory

import (
	"context"
	"sync"

	"interview-rehearsal-service/internal/domain"
)

// StateStore is an in-memory implementation of the selection-history and
// session-progress ports, keyed by (userID, topicID). Useful for tests and
// for running without Redis.
type StateStore struct {
	mu       sync.RWMutex
	history  map[string]domain.SelectionHistory
	progress map[string]domain.Progress
}

func NewStateStore() *StateStore {
	return &StateStore{
		history:  make(map[string]domain.SelectionHistory),
		progress: make(map[string]domain.Progress),
	}
}

func (s *StateStore) GetHistory(_ context.Context, userID, topicID string) (domain.SelectionHistory, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.history[key(userID, topicID)]
	return h, ok, nil
}

func (s *StateStore) PutHistory(_ context.Context, userID, topicID string, h domain.SelectionHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[key(userID, topicID)] = h
	return nil
}

func (s *StateStore) GetProgress(_ context.Context, userID, topicID string) (domain.Progress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[key(userID, topicID)]
	return p, ok, nil
}

func (s *StateStore) PutProgress(_ context.Context, userID, topicID string, p domain.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[key(userID, topicID)] = p
	return nil
}

func (s *StateStore) ClearProgress(_ context.Context, userID, topicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.progress, key(userID, topicID))
	return nil
}

func key(userID, topicID string) string {
	return userID + ":" + topicID
}
