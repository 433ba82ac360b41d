package store

import (
	"context"
	"strings"

	"github.com/Allreality/my-twin/internal/model"
)

// ExportAll returns all memories oldest first, optionally filtered by type.
// Exporting does not count as retrieval.
func (s *SQLiteStore) ExportAll(ctx context.Context, memType model.MemoryType) ([]model.Memory, error) {
	query := `SELECT ` + memoryColumns + ` FROM memories`
	var args []interface{}
	if memType != "" {
		query += ` WHERE memory_type = ?`
		args = append(args, string(memType))
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memories := []model.Memory{}
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// Snapshot returns every stored memory. Consolidation reads from it.
func (s *SQLiteStore) Snapshot(ctx context.Context) ([]model.Memory, error) {
	return s.ExportAll(ctx, "")
}

// Import stores memories from an export, re-embedding their content with
// the store's embedder. IDs, timestamps and retrieval counters are kept;
// memories whose ID already exists are skipped. Returns how many were added.
func (s *SQLiteStore) Import(ctx context.Context, memories []model.Memory) (int, error) {
	imported := 0
	for _, m := range memories {
		m.Content = strings.TrimSpace(m.Content)
		if m.ID == "" {
			m.ID = s.newID(s.now())
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = s.now()
		}
		if err := s.insert(ctx, &m, true); err != nil {
			return imported, err
		}
		if m.ChunkCount > 0 {
			imported++
		}
	}
	return imported, nil
}
