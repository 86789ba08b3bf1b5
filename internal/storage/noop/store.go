// Package noop provides a result store that discards everything.
package noop

import (
	"context"

	"github.com/storesight/insights-crawler/internal/insights"
	"github.com/storesight/insights-crawler/internal/storage"
)

// Store discards results. Used when persistence is disabled.
type Store struct {
	ids insights.IDGenerator
}

// NewStore constructs a Store.
func NewStore(ids insights.IDGenerator) *Store {
	return &Store{ids: ids}
}

// SaveInsights assigns an ID without persisting anything.
func (s *Store) SaveInsights(_ context.Context, _ insights.InsightsResult) (string, error) {
	return s.ids.NewID()
}

// GetInsights always reports the result as missing.
func (s *Store) GetInsights(_ context.Context, _ string) (insights.InsightsResult, error) {
	return insights.InsightsResult{}, storage.ErrNotFound
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
