// Package store provides the twin's long-term memory store and the SQLite
// backend shared by semantic memory, durable working memory and emotion
// snapshots.
package store

import (
	"context"

	"github.com/Allreality/my-twin/internal/model"
)

// RememberParams holds parameters for storing a memory.
type RememberParams struct {
	Content          string
	Type             model.MemoryType // defaults to semantic
	EmotionalValence float64          // clamped to [-1, 1]
	Importance       float64          // clamped to [0, 1]
	Tags             []string
	AssociatedPeople []string
}

// SearchParams holds parameters for a similarity search.
type SearchParams struct {
	Query string
	// Type and Person filter the ranked hits after the top Limit have been
	// chosen, so a filtered search may return fewer than Limit memories.
	Type   model.MemoryType
	Person string
	Limit  int
	// MinSimilarity drops hits below the threshold when non-zero.
	MinSimilarity float64
}

// MemoryStore is the long-term memory contract.
//
// Search is not read-only: every memory it returns has its RetrievalCount
// incremented and LastAccessedAt set to now before the call returns, and
// the returned values already reflect that.
type MemoryStore interface {
	// Remember stores a memory and returns it with its assigned ID.
	Remember(ctx context.Context, p RememberParams) (*model.Memory, error)

	// Search returns memories ranked by similarity to the query, most
	// similar first. An empty store yields an empty slice.
	Search(ctx context.Context, p SearchParams) ([]model.Memory, error)

	// Context formats up to five search hits for a prompt, or returns
	// NoMemoriesFound when there are none.
	Context(ctx context.Context, query string) (string, error)

	// Close closes the store.
	Close() error
}

var _ MemoryStore = (*SQLiteStore)(nil)
