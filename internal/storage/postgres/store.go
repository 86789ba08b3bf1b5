// Package postgres provides Postgres-backed persistence for insight documents.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storesight/insights-crawler/internal/insights"
	"github.com/storesight/insights-crawler/internal/storage"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for insight rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Store writes insight documents into Postgres as JSONB rows.
type Store struct {
	pool  pool
	table string
	ids   insights.IDGenerator
	clock insights.Clock
}

// NewStore creates a Postgres-backed Store using the provided config.
func NewStore(ctx context.Context, cfg Config, ids insights.IDGenerator, clock insights.Clock) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "store_insights"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: p, table: table, ids: ids, clock: clock}, nil
}

// NewStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewStoreWithPool(p pool, table string, ids insights.IDGenerator, clock insights.Clock) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "store_insights"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: p, table: table, ids: ids, clock: clock}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// SaveInsights inserts one insight document and returns its assigned ID.
func (s *Store) SaveInsights(ctx context.Context, result insights.InsightsResult) (string, error) {
	if s == nil || s.pool == nil {
		return "", fmt.Errorf("insights store is not configured")
	}
	id, err := s.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshal insights: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	root_url,
	fetched_at,
	payload,
	created_at
) VALUES (
	$1,$2,$3,$4,$5
)`, s.table)

	args := []any{
		id,
		result.Store.RootURL,
		result.FetchedAt,
		payload,
		s.clock.Now(),
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert insights: %w", err)
	}
	return id, nil
}

// GetInsights fetches one insight document by ID.
func (s *Store) GetInsights(ctx context.Context, id string) (insights.InsightsResult, error) {
	if s == nil || s.pool == nil {
		return insights.InsightsResult{}, fmt.Errorf("insights store is not configured")
	}
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE id = $1`, s.table)

	var payload []byte
	if err := s.pool.QueryRow(ctx, query, id).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return insights.InsightsResult{}, storage.ErrNotFound
		}
		return insights.InsightsResult{}, fmt.Errorf("select insights: %w", err)
	}
	var result insights.InsightsResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return insights.InsightsResult{}, fmt.Errorf("unmarshal insights: %w", err)
	}
	return result, nil
}
