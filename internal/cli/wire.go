package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Allreality/my-twin/internal/assembler"
	"github.com/Allreality/my-twin/internal/embedding"
	"github.com/Allreality/my-twin/internal/emotion"
	"github.com/Allreality/my-twin/internal/inference"
	"github.com/Allreality/my-twin/internal/orchestrator"
	"github.com/Allreality/my-twin/internal/personality"
	"github.com/Allreality/my-twin/internal/store"
	"github.com/Allreality/my-twin/internal/working"
)

func openStore() (*store.SQLiteStore, error) {
	c := settings()
	emb, err := embedding.New(embedding.Options{
		Provider: c.Embedding.Provider,
		Model:    c.Embedding.Model,
		BaseURL:  c.Embedding.BaseURL,
		APIKey:   c.Embedding.APIKey,
		Dims:     c.Embedding.Dims,
	})
	if err != nil {
		return nil, err
	}
	return store.NewSQLiteStore(c.DB.Path,
		store.WithEmbedder(emb),
		store.WithWorkingOptions(working.Options{MaxTurns: c.Working.MaxTurns, TTL: c.WorkingTTL()}),
		store.WithLogger(slog.Default()),
	)
}

// twin bundles the collaborators every conversational command needs.
type twin struct {
	store     *store.SQLiteStore
	profile   *personality.Profile
	emotions  *emotion.Registry
	assembler *assembler.Assembler
}

func openTwin() (*twin, error) {
	c := settings()

	profile, err := personality.Load(c.Personality.File)
	if err != nil {
		return nil, err
	}
	if !profile.HasLocation(c.Personality.Location) {
		return nil, fmt.Errorf("unknown location %q (available: %s)",
			c.Personality.Location, strings.Join(profile.LocationNames(), ", "))
	}

	s, err := openStore()
	if err != nil {
		return nil, err
	}

	emotions := emotion.NewRegistry(s, slog.Default())
	return &twin{
		store:    s,
		profile:  profile,
		emotions: emotions,
		assembler: &assembler.Assembler{
			Persona:  profile,
			Location: c.Personality.Location,
			Emotions: emotions,
			Memory:   s,
			Working:  s,
			Options: assembler.Options{
				MaxTokens:     c.Context.MaxTokens,
				MemoryLimit:   c.Context.MemoryLimit,
				RecentTurns:   c.Context.RecentTurns,
				MinSimilarity: c.Context.MinSimilarity,
			},
			Logger: slog.Default(),
		},
	}, nil
}

// orchestrator wires an inference client into a turn pipeline.
func (t *twin) orchestrator() (*orchestrator.Orchestrator, error) {
	c := settings()
	completer, err := inference.New(inference.Options{
		Provider:  c.Inference.Provider,
		Model:     c.Inference.Model,
		BaseURL:   c.Inference.BaseURL,
		APIKey:    c.Inference.APIKey,
		MaxTokens: c.Inference.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	return orchestrator.New(orchestrator.Config{
		Context:          t.assembler,
		Completer:        completer,
		Working:          t.store,
		Memory:           t.store,
		Emotions:         t.emotions,
		Importance:       orchestrator.SentimentMagnitude(c.Memory.MinSentiment, c.Memory.Importance),
		InferenceTimeout: c.InferenceTimeout(),
		Logger:           slog.Default(),
	})
}

func (t *twin) Close() error {
	return t.store.Close()
}

// output prints v as indented JSON, or text when --format text is set.
func output(v interface{}, text string) {
	if formatFlag == "text" {
		fmt.Println(text)
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
