package working

import (
	"context"
	"sync"
	"time"

	"github.com/Allreality/my-twin/internal/model"
)

type session struct {
	turns     []model.Turn
	expiresAt time.Time
}

// Buffer is an in-memory Store. It is safe for concurrent use; the cap trim
// and TTL reset happen under the same lock as the append.
type Buffer struct {
	mu       sync.Mutex
	opts     Options
	sessions map[string]*session
	now      func() time.Time
}

// NewBuffer creates a Buffer with the given retention options.
func NewBuffer(opts Options) *Buffer {
	return &Buffer{
		opts:     opts.withDefaults(),
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// SetClock replaces the time source (for tests).
func (b *Buffer) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// AppendTurn adds a turn to the end of the session and resets its expiry.
func (b *Buffer) AppendTurn(_ context.Context, sessionID, userText, assistantText string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	s := b.live(sessionID, now)
	if s == nil {
		s = &session{}
		b.sessions[sessionID] = s
	}

	s.turns = append(s.turns, model.Turn{Timestamp: now, User: userText, Assistant: assistantText})
	if excess := len(s.turns) - b.opts.MaxTurns; excess > 0 {
		s.turns = append([]model.Turn(nil), s.turns[excess:]...)
	}
	s.expiresAt = now.Add(b.opts.TTL)
	return nil
}

// Recent returns up to n of the newest turns, oldest first. Reading does not
// extend the session's expiry.
func (b *Buffer) Recent(_ context.Context, sessionID string, n int) ([]model.Turn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.live(sessionID, b.now())
	if s == nil || n <= 0 {
		return []model.Turn{}, nil
	}
	start := len(s.turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]model.Turn, len(s.turns)-start)
	copy(out, s.turns[start:])
	return out, nil
}

// Len returns the number of live turns in a session.
func (b *Buffer) Len(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s := b.live(sessionID, b.now()); s != nil {
		return len(s.turns)
	}
	return 0
}

// Sweep removes every expired session and reports how many were dropped.
func (b *Buffer) Sweep() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	dropped := 0
	for id, s := range b.sessions {
		if !now.Before(s.expiresAt) {
			delete(b.sessions, id)
			dropped++
		}
	}
	return dropped
}

// live returns the session if it exists and has not expired, dropping it
// otherwise. Must be called with mu held.
func (b *Buffer) live(sessionID string, now time.Time) *session {
	s, ok := b.sessions[sessionID]
	if !ok {
		return nil
	}
	if !now.Before(s.expiresAt) {
		delete(b.sessions, sessionID)
		return nil
	}
	return s
}

var _ Store = (*Buffer)(nil)
