package store

import (
	"context"
	"strings"

	"github.com/Allreality/my-twin/internal/model"
)

// NoMemoriesFound is the context text when a search returns nothing.
const NoMemoriesFound = "No relevant memories found."

// ContextLimit is the number of memories Context retrieves.
const ContextLimit = 5

// Context searches for memories related to query and formats them for a
// prompt. Retrieved memories count as retrievals.
func (s *SQLiteStore) Context(ctx context.Context, query string) (string, error) {
	mems, err := s.Search(ctx, SearchParams{Query: query, Limit: ContextLimit})
	if err != nil {
		return "", err
	}
	if len(mems) == 0 {
		return NoMemoriesFound, nil
	}
	return FormatMemories(mems), nil
}

// FormatMemories renders memories as a bulleted "Relevant memories" block
// with each memory's creation date. Returns "" for no memories.
func FormatMemories(mems []model.Memory) string {
	if len(mems) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Relevant memories:\n\n")
	for _, m := range mems {
		b.WriteString(FormatMemory(m))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatMemory renders one memory entry including its trailing blank line.
func FormatMemory(m model.Memory) string {
	return "• " + m.Content + "\n  (From: " + m.CreatedAt.Format("2006-01-02") + ")\n\n"
}
