// Package working implements the twin's short-term conversation memory.
// Each session keeps an ordered, capped list of turns that expires as a
// whole when nothing is written to it for the configured TTL.
package working

import (
	"context"
	"strings"
	"time"

	"github.com/Allreality/my-twin/internal/model"
)

const (
	// DefaultMaxTurns is the per-session turn cap.
	DefaultMaxTurns = 50
	// DefaultTTL is the sliding expiry of a session's turn list.
	DefaultTTL = 24 * time.Hour
	// DefaultSummaryTurns is how many turns Summarize reads.
	DefaultSummaryTurns = 5

	summaryFieldLimit = 50
)

// Store is the working-memory contract. Reads of unknown or expired sessions
// return an empty slice, not an error. Writes create sessions implicitly.
type Store interface {
	AppendTurn(ctx context.Context, sessionID, userText, assistantText string) error
	Recent(ctx context.Context, sessionID string, n int) ([]model.Turn, error)
}

// Options configures turn retention.
type Options struct {
	MaxTurns int
	TTL      time.Duration
}

// DefaultOptions returns the documented retention defaults.
func DefaultOptions() Options {
	return Options{MaxTurns: DefaultMaxTurns, TTL: DefaultTTL}
}

func (o Options) withDefaults() Options {
	if o.MaxTurns <= 0 {
		o.MaxTurns = DefaultMaxTurns
	}
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	return o
}

// Summarize renders the last n turns of a session, oldest first, with each
// side cut to 50 characters. An empty or expired session yields "".
func Summarize(ctx context.Context, s Store, sessionID string, n int) (string, error) {
	if n <= 0 {
		n = DefaultSummaryTurns
	}
	turns, err := s.Recent(ctx, sessionID, n)
	if err != nil {
		return "", err
	}
	return FormatTurns(turns), nil
}

// FormatTurns renders turns the way Summarize does.
func FormatTurns(turns []model.Turn) string {
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Recent conversation:\n")
	for _, t := range turns {
		b.WriteString(FormatTurn(t))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatTurn renders a single summarized turn, trailing blank line included.
func FormatTurn(t model.Turn) string {
	return "User: " + truncate(t.User, summaryFieldLimit) + "\n" +
		"You: " + truncate(t.Assistant, summaryFieldLimit) + "\n\n"
}

// truncate cuts s to limit runes, marking the cut with an ellipsis.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
