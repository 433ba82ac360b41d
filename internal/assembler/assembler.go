// Package assembler composes the system prompt sent with every turn.
//
// Sections are joined by blank lines in a fixed order: personality framing,
// emotional state, retrieved memories, recent conversation, and finally the
// current user input. Identity comes first and the freshest material sits
// closest to the question.
//
// The prompt is bounded by MaxTokens (estimated at four characters per
// token). Over budget, the least relevant memories are dropped first, then
// the oldest turns. The personality and the user input are never cut.
package assembler

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Allreality/my-twin/internal/emotion"
	"github.com/Allreality/my-twin/internal/model"
	"github.com/Allreality/my-twin/internal/store"
	"github.com/Allreality/my-twin/internal/working"
)

const (
	// DefaultMaxTokens is the soft prompt ceiling.
	DefaultMaxTokens = 4000
	// DefaultMemoryLimit is how many memories are retrieved per turn.
	DefaultMemoryLimit = store.ContextLimit
	// DefaultRecentTurns is how many working-memory turns are included.
	DefaultRecentTurns = working.DefaultSummaryTurns

	charsPerToken = 4
	separator     = "\n\n"
	inputLabel    = "Current user input: "
)

// Searcher retrieves long-term memories. store.SQLiteStore implements it.
type Searcher interface {
	Search(ctx context.Context, p store.SearchParams) ([]model.Memory, error)
}

// Persona renders the personality framing for a location.
// personality.Profile implements it.
type Persona interface {
	Prompt(location string) string
}

// Options bounds the assembled prompt.
type Options struct {
	MaxTokens     int
	MemoryLimit   int
	RecentTurns   int
	MinSimilarity float64
}

// DefaultOptions returns the default bounds.
func DefaultOptions() Options {
	return Options{
		MaxTokens:   DefaultMaxTokens,
		MemoryLimit: DefaultMemoryLimit,
		RecentTurns: DefaultRecentTurns,
	}
}

// Assembler builds prompts from its collaborators. Any collaborator may be
// nil, in which case its section is omitted.
type Assembler struct {
	Persona  Persona
	Location string
	Emotions *emotion.Registry
	Memory   Searcher
	Working  working.Store
	Options  Options
	Logger   *slog.Logger
}

// Assembly is a built prompt together with what went into it.
type Assembly struct {
	Text string
	// Memories and Turns are what survived the budget.
	Memories []model.Memory
	Turns    []model.Turn
	// Dropped counts memories and turns removed to fit the budget.
	Dropped int
}

// Build returns the assembled prompt for one turn.
func (a *Assembler) Build(ctx context.Context, sessionID, input string) (string, error) {
	asm, err := a.Assemble(ctx, sessionID, input)
	if err != nil {
		return "", err
	}
	return asm.Text, nil
}

// Assemble gathers every section and fits them to the budget. Failures in
// the memory layer are logged and leave the affected section empty; only a
// cancelled context is returned as an error.
func (a *Assembler) Assemble(ctx context.Context, sessionID, input string) (*Assembly, error) {
	opts := a.options()
	logger := a.logger()

	var persona string
	if a.Persona != nil {
		persona = strings.TrimSpace(a.Persona.Prompt(a.Location))
	}

	var mood string
	if a.Emotions != nil {
		mood = a.Emotions.Get(ctx, sessionID).Context()
	}

	var (
		mems     []model.Memory
		searched bool
	)
	if a.Memory != nil {
		found, err := a.Memory.Search(ctx, store.SearchParams{
			Query:         input,
			Limit:         opts.MemoryLimit,
			MinSimilarity: opts.MinSimilarity,
		})
		if err != nil {
			logger.Warn("assembler: memory search failed", "session_id", sessionID, "err", err)
		} else {
			mems, searched = found, true
		}
	}

	var turns []model.Turn
	if a.Working != nil {
		recent, err := a.Working.Recent(ctx, sessionID, opts.RecentTurns)
		if err != nil {
			logger.Warn("assembler: working memory read failed", "session_id", sessionID, "err", err)
		} else {
			turns = recent
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := parts{
		persona: persona,
		mood:    mood,
		mems:    mems,
		noHits:  searched && len(mems) == 0,
		turns:   turns,
		input:   input,
	}
	dropped := p.fit(opts.MaxTokens * charsPerToken)
	if dropped > 0 {
		logger.Debug("assembler: trimmed to budget",
			"session_id", sessionID,
			"dropped", dropped,
			"max_tokens", opts.MaxTokens,
		)
	}

	return &Assembly{
		Text:     p.render(),
		Memories: p.mems,
		Turns:    p.turns,
		Dropped:  dropped,
	}, nil
}

func (a *Assembler) options() Options {
	o := a.Options
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.MemoryLimit <= 0 {
		o.MemoryLimit = DefaultMemoryLimit
	}
	if o.RecentTurns <= 0 {
		o.RecentTurns = DefaultRecentTurns
	}
	return o
}

func (a *Assembler) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

type parts struct {
	persona string
	mood    string
	mems    []model.Memory // most relevant first
	noHits  bool
	turns   []model.Turn // oldest first
	input   string
}

func (p *parts) render() string {
	sections := make([]string, 0, 5)
	for _, s := range []string{p.persona, p.mood, p.memorySection(), working.FormatTurns(p.turns)} {
		if s != "" {
			sections = append(sections, s)
		}
	}
	sections = append(sections, inputLabel+p.input)
	return strings.Join(sections, separator)
}

func (p *parts) memorySection() string {
	if p.noHits {
		return store.NoMemoriesFound
	}
	return store.FormatMemories(p.mems)
}

// fit drops memories from the tail (least relevant), then turns from the
// head (oldest), until the render fits budget or nothing droppable is left.
func (p *parts) fit(budget int) int {
	dropped := 0
	for utf8.RuneCountInString(p.render()) > budget {
		switch {
		case len(p.mems) > 0:
			p.mems = p.mems[:len(p.mems)-1]
		case len(p.turns) > 0:
			p.turns = p.turns[1:]
		default:
			return dropped
		}
		dropped++
	}
	return dropped
}
