package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Allreality/my-twin/internal/embedding"
	"github.com/Allreality/my-twin/internal/model"
)

// DefaultSearchLimit is used when SearchParams.Limit is not positive.
const DefaultSearchLimit = 5

type hit struct {
	id  string
	sim float64
}

// Search ranks every stored memory by the best cosine similarity of any of
// its chunks to the query, keeps the top Limit, then applies the type and
// person filters. Each returned memory has its retrieval counter bumped.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]model.Memory, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	qvec, err := s.embedder.Embed(ctx, p.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.rank(ctx, qvec)
	if err != nil {
		return nil, err
	}
	if p.MinSimilarity != 0 {
		kept := hits[:0]
		for _, h := range hits {
			if h.sim >= p.MinSimilarity {
				kept = append(kept, h)
			}
		}
		hits = kept
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}
	if len(hits) == 0 {
		return []model.Memory{}, nil
	}

	return s.touch(ctx, hits, p.Type, p.Person)
}

// rank scores each memory by its best chunk, most similar first. Ties go to
// the newer memory (IDs are time-ordered).
func (s *SQLiteStore) rank(ctx context.Context, qvec embedding.Vector) ([]hit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT memory_id, embedding FROM memory_chunks`)
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	defer rows.Close()

	best := map[string]float64{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var vec embedding.Vector
		if err := json.Unmarshal([]byte(raw), &vec); err != nil {
			s.logger.Warn("store: skipping corrupt embedding", "memory_id", id, "err", err)
			continue
		}
		sim := embedding.CosineSimilarity(qvec, vec)
		if cur, ok := best[id]; !ok || sim > cur {
			best[id] = sim
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hits := make([]hit, 0, len(best))
	for id, sim := range best {
		hits = append(hits, hit{id: id, sim: sim})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].sim != hits[j].sim {
			return hits[i].sim > hits[j].sim
		}
		return hits[i].id > hits[j].id
	})
	return hits, nil
}

// touch filters the ranked hits and records the retrieval of the survivors
// in one transaction. The increment happens in SQL so concurrent searches
// never lose an update.
func (s *SQLiteStore) touch(ctx context.Context, hits []hit, memType model.MemoryType, person string) ([]model.Memory, error) {
	now := s.now()
	stamp := formatTime(now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	out := make([]model.Memory, 0, len(hits))
	for _, h := range hits {
		m, err := scanMemory(tx.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = ?`, h.id))
		if err == sql.ErrNoRows {
			// Forgotten between ranking and now.
			continue
		}
		if err != nil {
			return nil, err
		}
		if memType != "" && m.Type != memType {
			continue
		}
		if person != "" && !containsFold(m.AssociatedPeople, person) {
			continue
		}

		err = tx.QueryRowContext(ctx, `
			UPDATE memories
			SET retrieval_count = retrieval_count + 1, last_accessed_at = ?
			WHERE id = ?
			RETURNING retrieval_count`, stamp, m.ID).Scan(&m.RetrievalCount)
		if err != nil {
			return nil, fmt.Errorf("record retrieval: %w", err)
		}
		at := now
		m.LastAccessedAt = &at
		m.Similarity = h.sim
		out = append(out, m)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func containsFold(list []string, v string) bool {
	for _, x := range list {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}
