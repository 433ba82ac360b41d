package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath         string      `json:"db_path"`
	DBSizeBytes    int64       `json:"db_size_bytes"`
	TotalMemories  int         `json:"total_memories"`
	TotalChunks    int         `json:"total_chunks"`
	TotalRetrieved int         `json:"total_retrievals"`
	Types          []TypeStats `json:"types"`
	Sessions       int         `json:"live_sessions"`
	Turns          int         `json:"turns"`
	Emotions       int         `json:"emotion_states"`
}

// TypeStats holds per-type counts.
type TypeStats struct {
	Type          string  `json:"memory_type"`
	Count         int     `json:"count"`
	AvgImportance float64 `json:"avg_importance"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	now := s.now().UnixNano()
	s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(retrieval_count), 0) FROM memories`).
		Scan(&st.TotalMemories, &st.TotalRetrieved)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_chunks`).Scan(&st.TotalChunks)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE expires_at > ?`, now).Scan(&st.Sessions)
	s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM turns t JOIN sessions s ON s.session_id = t.session_id
		WHERE s.expires_at > ?`, now).Scan(&st.Turns)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM emotions`).Scan(&st.Emotions)

	rows, err := s.db.QueryContext(ctx, `
		SELECT memory_type, COUNT(*) AS cnt, AVG(importance)
		FROM memories GROUP BY memory_type ORDER BY cnt DESC`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var ts TypeStats
		rows.Scan(&ts.Type, &ts.Count, &ts.AvgImportance)
		st.Types = append(st.Types, ts)
	}

	return st, nil
}
