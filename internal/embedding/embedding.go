// Package embedding turns text into vectors for similarity search.
package embedding

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
)

// Vector is a float32 embedding vector.
type Vector = []float32

// Embedder generates embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Dims() int
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when the lengths differ or either vector is empty or all zeros.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, aa, bb float64
	for i, x := range a {
		y := float64(b[i])
		dot += float64(x) * y
		aa += float64(x) * float64(x)
		bb += y * y
	}
	if aa == 0 || bb == 0 {
		return 0
	}
	return dot / math.Sqrt(aa*bb)
}

// Options selects and configures an embedding provider.
type Options struct {
	Provider string // hash (default), ollama or openai
	Model    string
	BaseURL  string
	APIKey   string
	Dims     int
}

// New creates an embedder from options. An empty provider selects the
// local hash embedder so semantic search always has vectors to work with.
func New(o Options) (Embedder, error) {
	switch strings.ToLower(o.Provider) {
	case "", "hash":
		return NewHashEmbedder(o.Dims), nil
	case "ollama":
		return NewOllamaEmbedder(o.BaseURL, o.Model), nil
	case "openai":
		key := o.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAIEmbedder(o.BaseURL, key, o.Model, o.Dims), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.Provider)
	}
}
