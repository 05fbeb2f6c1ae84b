// Package store owns the registry of in-memory tables and their derived
// statistics. The Store is an explicit value the caller constructs and
// threads through the engine's entry points — there is no hidden
// singleton. Map access is internally synchronized, but callers must
// serialize mutations per table id (no concurrent UpdateTable/Delete on
// one id); registered tables themselves are immutable and freely
// shareable across readers.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

// Metadata describes a registered table. It is owned exclusively by the
// Store; callers receive copies.
type Metadata struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	RowCount    int                    `json:"rowCount"`
	ColumnCount int                    `json:"columnCount"`
	ColumnStats map[string]ColumnStats `json:"columnStats"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

type entry struct {
	table *table.Table
	meta  Metadata
}

// Store is the table registry.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	logger  *zap.Logger
}

// New creates an empty Store.
func New(logger *zap.Logger) *Store {
	return &Store{
		entries: make(map[string]*entry),
		logger:  logger,
	}
}

// Register adds a table under the given id, computing per-column
// statistics eagerly. An empty id gets a generated UUID. Registering an
// existing id fails with ErrConflict; use UpdateTable to replace.
func (s *Store) Register(id, name string, t *table.Table) (Metadata, error) {
	if t == nil {
		return Metadata{}, fmt.Errorf("store: nil table: %w", apperrors.ErrInvalidInput)
	}
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[id]; exists {
		return Metadata{}, fmt.Errorf("store: table %q already registered: %w", id, apperrors.ErrConflict)
	}

	now := time.Now()
	e := &entry{
		table: t,
		meta: Metadata{
			ID:          id,
			Name:        name,
			RowCount:    t.NumRows(),
			ColumnCount: t.NumColumns(),
			ColumnStats: statsForTable(t),
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
	s.entries[id] = e
	s.logger.Debug("table registered",
		zap.String("table_id", id),
		zap.String("name", name),
		zap.Int("rows", t.NumRows()),
		zap.Int("columns", t.NumColumns()))
	return copyMeta(e.meta), nil
}

// Get returns the table registered under id.
func (s *Store) Get(id string) (*table.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("store: table %q: %w", id, apperrors.ErrNotFound)
	}
	return e.table, nil
}

// GetMetadata returns a copy of the metadata for id.
func (s *Store) GetMetadata(id string) (Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return Metadata{}, fmt.Errorf("store: table %q: %w", id, apperrors.ErrNotFound)
	}
	return copyMeta(e.meta), nil
}

// UpdateTable replaces the table under id and recomputes its statistics.
func (s *Store) UpdateTable(id string, t *table.Table) (Metadata, error) {
	if t == nil {
		return Metadata{}, fmt.Errorf("store: nil table: %w", apperrors.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return Metadata{}, fmt.Errorf("store: table %q: %w", id, apperrors.ErrNotFound)
	}
	e.table = t
	e.meta.RowCount = t.NumRows()
	e.meta.ColumnCount = t.NumColumns()
	e.meta.ColumnStats = statsForTable(t)
	e.meta.UpdatedAt = time.Now()
	s.logger.Debug("table updated", zap.String("table_id", id), zap.Int("rows", t.NumRows()))
	return copyMeta(e.meta), nil
}

// Delete removes the table under id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("store: table %q: %w", id, apperrors.ErrNotFound)
	}
	delete(s.entries, id)
	s.logger.Debug("table deleted", zap.String("table_id", id))
	return nil
}

// List returns metadata for every registered table, ordered by creation
// time.
func (s *Store) List() []Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Metadata, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, copyMeta(e.meta))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// GetStats returns the statistics of one column.
func (s *Store) GetStats(id, column string) (ColumnStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return ColumnStats{}, fmt.Errorf("store: table %q: %w", id, apperrors.ErrNotFound)
	}
	stats, ok := e.meta.ColumnStats[column]
	if !ok {
		return ColumnStats{}, fmt.Errorf("store: table %q column %q: %w", id, column, apperrors.ErrColumnNotFound)
	}
	return stats, nil
}

func statsForTable(t *table.Table) map[string]ColumnStats {
	stats := make(map[string]ColumnStats, t.NumColumns())
	for _, col := range t.Columns() {
		stats[col.Name()] = computeColumnStats(col)
	}
	return stats
}

func copyMeta(m Metadata) Metadata {
	out := m
	out.ColumnStats = make(map[string]ColumnStats, len(m.ColumnStats))
	for k, v := range m.ColumnStats {
		out.ColumnStats[k] = v
	}
	return out
}
