// Package orchestrator runs one conversation turn end to end:
//
//	receive → assemble context → infer → persist turn → (maybe) remember → update emotion
//
// Turns of one session are serialized; different sessions run in parallel.
// Inference is the only step allowed to fail a turn, and a failed turn
// leaves no trace in working memory, long-term memory or emotion.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Allreality/my-twin/internal/emotion"
	"github.com/Allreality/my-twin/internal/inference"
	"github.com/Allreality/my-twin/internal/model"
	"github.com/Allreality/my-twin/internal/store"
	"github.com/Allreality/my-twin/internal/working"
)

// ErrEmptyInput is returned for blank user input.
var ErrEmptyInput = errors.New("empty input")

// DefaultInferenceTimeout bounds a single model call.
const DefaultInferenceTimeout = 60 * time.Second

// Turn stages, as reported by TurnError.
const (
	StageReceive  = "receive"
	StageAssemble = "assemble"
	StageInfer    = "infer"
)

// TurnError reports the stage that aborted a turn.
type TurnError struct {
	Stage string
	Err   error
}

func (e *TurnError) Error() string { return e.Stage + ": " + e.Err.Error() }
func (e *TurnError) Unwrap() error { return e.Err }

// ContextBuilder assembles the system prompt. assembler.Assembler implements it.
type ContextBuilder interface {
	Build(ctx context.Context, sessionID, input string) (string, error)
}

// MemoryWriter stores long-term memories. store.SQLiteStore implements it.
type MemoryWriter interface {
	Remember(ctx context.Context, p store.RememberParams) (*model.Memory, error)
}

// Config wires an Orchestrator. Context, Completer and Working are required.
type Config struct {
	Context   ContextBuilder
	Completer inference.Completer
	Working   working.Store
	Memory    MemoryWriter
	Emotions  *emotion.Registry

	Sentiment  SentimentFunc
	Topic      TopicFunc
	Importance ImportanceFunc

	InferenceTimeout time.Duration
	Logger           *slog.Logger
}

// Orchestrator processes conversation turns.
type Orchestrator struct {
	cfg   Config
	locks *sessionLocks
}

// TurnRequest is one user message.
type TurnRequest struct {
	SessionID string
	Input     string
}

// TurnResult is a completed turn.
type TurnResult struct {
	SessionID string        `json:"session_id"`
	Response  string        `json:"response"`
	Sentiment float64       `json:"sentiment"`
	Topic     string        `json:"topic"`
	Memory    *model.Memory `json:"memory,omitempty"`
	Emotion   string        `json:"emotion,omitempty"`
	Intensity float64       `json:"intensity"`
}

// New validates cfg and fills in defaults.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Context == nil || cfg.Completer == nil || cfg.Working == nil {
		return nil, fmt.Errorf("orchestrator: context builder, completer and working memory are required")
	}
	if cfg.Sentiment == nil {
		cfg.Sentiment = LexiconSentiment
	}
	if cfg.Topic == nil {
		cfg.Topic = KeywordTopic
	}
	if cfg.Importance == nil {
		cfg.Importance = NeverImportant
	}
	if cfg.InferenceTimeout <= 0 {
		cfg.InferenceTimeout = DefaultInferenceTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{cfg: cfg, locks: newSessionLocks()}, nil
}

// Process runs one turn. Errors are *TurnError values wrapping either
// ErrEmptyInput, inference.ErrInference or the context's error.
func (o *Orchestrator) Process(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	input := strings.TrimSpace(req.Input)
	if input == "" {
		return nil, &TurnError{Stage: StageReceive, Err: ErrEmptyInput}
	}
	log := o.cfg.Logger.With("session_id", req.SessionID)

	unlock, err := o.locks.lock(ctx, req.SessionID)
	if err != nil {
		return nil, &TurnError{Stage: StageReceive, Err: err}
	}
	defer unlock()

	system, err := o.cfg.Context.Build(ctx, req.SessionID, input)
	if err != nil {
		return nil, &TurnError{Stage: StageAssemble, Err: err}
	}

	response, err := o.infer(ctx, system, input)
	if err != nil {
		log.Warn("orchestrator: inference failed, turn discarded", "err", err)
		return nil, &TurnError{Stage: StageInfer, Err: err}
	}

	// From here on the turn has happened. The writes below outlive a caller
	// that gives up now, and their failures are logged without failing the turn.
	wctx := context.WithoutCancel(ctx)
	if err := o.cfg.Working.AppendTurn(wctx, req.SessionID, input, response); err != nil {
		log.Warn("orchestrator: append turn failed", "err", err)
	}

	res := &TurnResult{
		SessionID: req.SessionID,
		Response:  response,
		Sentiment: o.cfg.Sentiment(input),
		Topic:     o.cfg.Topic(input),
	}

	if o.cfg.Memory != nil {
		if keep, importance := o.cfg.Importance(input, response, res.Sentiment); keep {
			mem, err := o.cfg.Memory.Remember(wctx, store.RememberParams{
				Content:          "User: " + input + "\nTwin: " + response,
				Type:             model.Episodic,
				EmotionalValence: res.Sentiment,
				Importance:       importance,
				Tags:             []string{res.Topic},
				AssociatedPeople: []string{req.SessionID},
			})
			if err != nil {
				log.Warn("orchestrator: remember failed", "err", err)
			} else {
				res.Memory = mem
			}
		}
	}

	if o.cfg.Emotions != nil {
		st := o.cfg.Emotions.Update(wctx, req.SessionID, res.Sentiment, "conversation about "+res.Topic)
		res.Emotion = string(st.Emotion())
		res.Intensity = st.Intensity()
	}

	log.Info("orchestrator: turn complete",
		"topic", res.Topic,
		"sentiment", res.Sentiment,
		"remembered", res.Memory != nil,
		"emotion", res.Emotion,
	)
	return res, nil
}

func (o *Orchestrator) infer(ctx context.Context, system, input string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.InferenceTimeout)
	defer cancel()

	out, err := o.cfg.Completer.Complete(ctx, system, []inference.Message{
		{Role: inference.RoleUser, Content: input},
	})
	if err == nil && strings.TrimSpace(out) == "" {
		err = errors.New("empty response")
	}
	if err != nil && !errors.Is(err, inference.ErrInference) {
		err = fmt.Errorf("%w: %w", inference.ErrInference, err)
	}
	return out, err
}

// sessionLocks serializes turns per session in arrival order. The lock
// is handed directly to the next waiter, so a late arrival can never
// overtake a queued turn. Idle sessions hold no entry.
type sessionLocks struct {
	mu     sync.Mutex
	queues map[string]*sessionQueue
}

type sessionQueue struct {
	waiters []chan struct{}
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{queues: make(map[string]*sessionQueue)}
}

// lock blocks until the session is free or ctx is done.
func (s *sessionLocks) lock(ctx context.Context, id string) (func(), error) {
	s.mu.Lock()
	q, busy := s.queues[id]
	if !busy {
		s.queues[id] = &sessionQueue{}
		s.mu.Unlock()
		return func() { s.release(id) }, nil
	}
	ch := make(chan struct{})
	q.waiters = append(q.waiters, ch)
	s.mu.Unlock()

	select {
	case <-ch:
		return func() { s.release(id) }, nil
	case <-ctx.Done():
		s.mu.Lock()
		defer s.mu.Unlock()
		select {
		case <-ch:
			// Handed the lock while giving up: pass it on.
			s.releaseLocked(id)
		default:
			for i, w := range q.waiters {
				if w == ch {
					q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
					break
				}
			}
		}
		return nil, ctx.Err()
	}
}

func (s *sessionLocks) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked(id)
}

func (s *sessionLocks) releaseLocked(id string) {
	q := s.queues[id]
	if len(q.waiters) == 0 {
		delete(s.queues, id)
		return
	}
	next := q.waiters[0]
	q.waiters = q.waiters[1:]
	close(next)
}

func (s *sessionLocks) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues)
}
