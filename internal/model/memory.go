// Package model defines the core memory data types.
package model

import "time"

// MemoryType classifies a long-term memory.
type MemoryType string

const (
	Episodic   MemoryType = "episodic"
	Semantic   MemoryType = "semantic"
	Procedural MemoryType = "procedural"
	Emotional  MemoryType = "emotional"
	Working    MemoryType = "working"
)

// ValidTypes are the allowed memory types.
var ValidTypes = map[MemoryType]bool{
	Episodic:   true,
	Semantic:   true,
	Procedural: true,
	Emotional:  true,
	Working:    true,
}

// Memory represents a stored long-term memory.
//
// Content, ID and the valence/importance metadata never change after the
// memory is stored. RetrievalCount and LastAccessedAt are bumped every time
// the memory is returned by a search.
type Memory struct {
	ID               string     `json:"id"`
	Content          string     `json:"content"`
	Type             MemoryType `json:"memory_type"`
	EmotionalValence float64    `json:"emotional_valence"`
	Importance       float64    `json:"importance"`
	Tags             []string   `json:"tags,omitempty"`
	AssociatedPeople []string   `json:"associated_people,omitempty"`
	CreatedAt        time.Time  `json:"timestamp"`
	RetrievalCount   int        `json:"retrieval_count"`
	LastAccessedAt   *time.Time `json:"last_accessed,omitempty"`
	ChunkCount       int        `json:"chunks,omitempty"`

	// Similarity is the query similarity of a search hit. Zero outside search results.
	Similarity float64 `json:"similarity,omitempty"`
}

// Turn is one user/assistant exchange in a session's working memory.
type Turn struct {
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
}

// EmotionSnapshot is the persisted form of a session's emotional state.
type EmotionSnapshot struct {
	SessionID  string    `json:"session_id"`
	Emotion    string    `json:"emotion"`
	Intensity  float64   `json:"intensity"`
	Momentum   float64   `json:"momentum"`
	Trigger    string    `json:"trigger"`
	LastUpdate time.Time `json:"last_update"`
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
