// Package memory provides an in-memory result store for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/storesight/insights-crawler/internal/insights"
	"github.com/storesight/insights-crawler/internal/storage"
)

// Store keeps finished insight documents in-memory.
type Store struct {
	mu      sync.RWMutex
	results map[string]insights.InsightsResult
	ids     insights.IDGenerator
}

// NewStore constructs a Store.
func NewStore(ids insights.IDGenerator) *Store {
	return &Store{
		results: make(map[string]insights.InsightsResult),
		ids:     ids,
	}
}

// SaveInsights stores a result and returns its assigned ID.
func (s *Store) SaveInsights(_ context.Context, result insights.InsightsResult) (string, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[id] = result
	return id, nil
}

// GetInsights fetches a stored result by ID.
func (s *Store) GetInsights(_ context.Context, id string) (insights.InsightsResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[id]
	if !ok {
		return insights.InsightsResult{}, storage.ErrNotFound
	}
	return result, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
