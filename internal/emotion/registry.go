package emotion

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Allreality/my-twin/internal/model"
)

// Persister loads and saves emotion snapshots. The SQLite store implements it.
type Persister interface {
	LoadEmotion(ctx context.Context, sessionID string) (*model.EmotionSnapshot, error)
	SaveEmotion(ctx context.Context, snap model.EmotionSnapshot) error
}

// Registry holds one State per session. States are created lazily on first
// access, restored from the Persister when one is configured.
type Registry struct {
	mu        sync.Mutex
	states    map[string]*State
	persister Persister
	now       func() time.Time
	logger    *slog.Logger
}

// NewRegistry creates a Registry. persister and logger may be nil.
func NewRegistry(persister Persister, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		states:    make(map[string]*State),
		persister: persister,
		now:       time.Now,
		logger:    logger,
	}
}

// SetClock replaces the time source for states created afterwards.
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Get returns the session's state, creating it if needed. A failed load
// yields a fresh state rather than an error.
func (r *Registry) Get(ctx context.Context, sessionID string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st, ok := r.states[sessionID]; ok {
		return st
	}

	var st *State
	if r.persister != nil {
		snap, err := r.persister.LoadEmotion(ctx, sessionID)
		if err != nil {
			r.logger.Warn("emotion: load snapshot failed", "err", err, "session_id", sessionID)
		} else if snap != nil {
			st = FromSnapshot(*snap, r.now)
		}
	}
	if st == nil {
		st = NewWithClock(r.now)
	}
	r.states[sessionID] = st
	return st
}

// Update applies an event to the session's state and persists the result.
func (r *Registry) Update(ctx context.Context, sessionID string, sentiment float64, trigger string) *State {
	st := r.Get(ctx, sessionID)
	st.Update(sentiment, trigger)

	if r.persister != nil {
		if err := r.persister.SaveEmotion(ctx, st.Snapshot(sessionID)); err != nil {
			r.logger.Warn("emotion: save snapshot failed", "err", err, "session_id", sessionID)
		}
	}
	return st
}

// Drop forgets the in-memory state of a session.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, sessionID)
}
