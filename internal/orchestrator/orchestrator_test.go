package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Allreality/my-twin/internal/assembler"
	"github.com/Allreality/my-twin/internal/emotion"
	"github.com/Allreality/my-twin/internal/inference"
	"github.com/Allreality/my-twin/internal/model"
	"github.com/Allreality/my-twin/internal/store"
)

type staticPersona string

func (p staticPersona) Prompt(string) string { return string(p) }

type call struct {
	system string
	msgs   []inference.Message
}

type fakeCompleter struct {
	mu    sync.Mutex
	calls []call
	fn    func(ctx context.Context, system string, msgs []inference.Message) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, system string, msgs []inference.Message) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{system, msgs})
	f.mu.Unlock()
	return f.fn(ctx, system, msgs)
}

func reply(text string) *fakeCompleter {
	return &fakeCompleter{fn: func(context.Context, string, []inference.Message) (string, error) {
		return text, nil
	}}
}

type harness struct {
	store    *store.SQLiteStore
	emotions *emotion.Registry
	orch     *Orchestrator
}

func newHarness(t *testing.T, c inference.Completer, mutate func(*Config)) *harness {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "twin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	reg := emotion.NewRegistry(s, nil)
	cfg := Config{
		Context: &assembler.Assembler{
			Persona:  staticPersona("You are the twin."),
			Emotions: reg,
			Memory:   s,
			Working:  s,
		},
		Completer:  c,
		Working:    s,
		Memory:     s,
		Emotions:   reg,
		Importance: SentimentMagnitude(0, DefaultImportance),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	o, err := New(cfg)
	require.NoError(t, err)
	return &harness{store: s, emotions: reg, orch: o}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestProcess_FullTurn(t *testing.T) {
	ctx := context.Background()
	c := reply("Midnight uses zero-knowledge proofs.")
	h := newHarness(t, c, nil)

	res, err := h.orch.Process(ctx, TurnRequest{SessionID: "s1", Input: "  I love learning about Midnight  "})
	require.NoError(t, err)
	assert.Equal(t, "Midnight uses zero-knowledge proofs.", res.Response)
	assert.Equal(t, "learning", res.Topic)
	assert.InDelta(t, 0.5, res.Sentiment, 1e-9)

	require.Len(t, c.calls, 1)
	assert.Contains(t, c.calls[0].system, "You are the twin.")
	assert.Contains(t, c.calls[0].system, "Current user input: I love learning about Midnight")
	assert.Equal(t, []inference.Message{{Role: inference.RoleUser, Content: "I love learning about Midnight"}}, c.calls[0].msgs)

	turns, err := h.store.Recent(ctx, "s1", 5)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "I love learning about Midnight", turns[0].User)
	assert.Equal(t, res.Response, turns[0].Assistant)

	require.NotNil(t, res.Memory)
	mems, err := h.store.ExportAll(ctx, model.Episodic)
	require.NoError(t, err)
	require.Len(t, mems, 1)
	m := mems[0]
	assert.Equal(t, "User: I love learning about Midnight\nTwin: Midnight uses zero-knowledge proofs.", m.Content)
	assert.Equal(t, DefaultImportance, m.Importance)
	assert.InDelta(t, res.Sentiment, m.EmotionalValence, 1e-9)
	assert.Equal(t, []string{"learning"}, m.Tags)
	assert.Equal(t, []string{"s1"}, m.AssociatedPeople)

	snap, err := h.store.LoadEmotion(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "conversation about learning", snap.Trigger)
	assert.Equal(t, res.Emotion, snap.Emotion)
}

func TestProcess_ImportancePredicateSkipsMemory(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, reply("ok"), func(c *Config) { c.Importance = nil })

	res, err := h.orch.Process(ctx, TurnRequest{SessionID: "s1", Input: "I love this"})
	require.NoError(t, err)
	assert.Nil(t, res.Memory)

	mems, _ := h.store.ExportAll(ctx, "")
	assert.Empty(t, mems)
	turns, _ := h.store.Recent(ctx, "s1", 5)
	assert.Len(t, turns, 1, "the turn itself is still recorded")
}

func TestProcess_CallerCancelAfterInferenceStillPersists(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &fakeCompleter{fn: func(context.Context, string, []inference.Message) (string, error) {
		cancel()
		return "I am so glad to hear that!", nil
	}}
	h := newHarness(t, c, nil)

	res, err := h.orch.Process(ctx, TurnRequest{SessionID: "s1", Input: "I love my day"})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Error(t, ctx.Err())

	bg := context.Background()
	turns, err := h.store.Recent(bg, "s1", 5)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "I am so glad to hear that!", turns[0].Assistant)

	require.NotNil(t, res.Memory)
	mems, err := h.store.ExportAll(bg, model.Episodic)
	require.NoError(t, err)
	assert.Len(t, mems, 1)

	snap, err := h.store.LoadEmotion(bg, "s1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, res.Emotion, snap.Emotion)
}

func TestProcess_InferenceFailureLeavesNoTrace(t *testing.T) {
	tests := []struct {
		name string
		fn   func(ctx context.Context, system string, msgs []inference.Message) (string, error)
	}{
		{"provider error", func(context.Context, string, []inference.Message) (string, error) {
			return "", fmt.Errorf("%w: anthropic: 529 overloaded", inference.ErrInference)
		}},
		{"foreign error", func(context.Context, string, []inference.Message) (string, error) {
			return "", errors.New("connection reset")
		}},
		{"empty response", func(context.Context, string, []inference.Message) (string, error) {
			return "   ", nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t, &fakeCompleter{fn: tt.fn}, nil)

			// Seed a prior turn so "unchanged" is meaningful.
			require.NoError(t, h.store.AppendTurn(ctx, "s1", "earlier", "reply"))

			res, err := h.orch.Process(ctx, TurnRequest{SessionID: "s1", Input: "What an amazing wonderful day!"})
			assert.Nil(t, res)
			require.Error(t, err)
			assert.ErrorIs(t, err, inference.ErrInference)

			var te *TurnError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, StageInfer, te.Stage)

			turns, _ := h.store.Recent(ctx, "s1", 10)
			require.Len(t, turns, 1)
			assert.Equal(t, "earlier", turns[0].User)

			mems, _ := h.store.ExportAll(ctx, "")
			assert.Empty(t, mems)

			snap, _ := h.store.LoadEmotion(ctx, "s1")
			assert.Nil(t, snap, "emotion must not be updated by a failed turn")
		})
	}
}

func TestProcess_InferenceTimeout(t *testing.T) {
	c := &fakeCompleter{fn: func(ctx context.Context, _ string, _ []inference.Message) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	h := newHarness(t, c, func(cfg *Config) { cfg.InferenceTimeout = 20 * time.Millisecond })

	_, err := h.orch.Process(context.Background(), TurnRequest{SessionID: "s1", Input: "are you there?"})
	require.Error(t, err)
	assert.ErrorIs(t, err, inference.ErrInference)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	turns, _ := h.store.Recent(context.Background(), "s1", 5)
	assert.Empty(t, turns)
}

func TestProcess_EmptyInput(t *testing.T) {
	c := reply("unused")
	h := newHarness(t, c, nil)

	_, err := h.orch.Process(context.Background(), TurnRequest{SessionID: "s1", Input: " \n\t"})
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Empty(t, c.calls)
}

func TestProcess_SessionTurnsStayOrdered(t *testing.T) {
	ctx := context.Background()
	c := &fakeCompleter{fn: func(_ context.Context, _ string, msgs []inference.Message) (string, error) {
		time.Sleep(time.Millisecond)
		return "re: " + msgs[0].Content, nil
	}}
	h := newHarness(t, c, nil)

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.orch.Process(ctx, TurnRequest{SessionID: "s1", Input: fmt.Sprintf("message %d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	turns, err := h.store.Recent(ctx, "s1", n)
	require.NoError(t, err)
	require.Len(t, turns, n)
	for _, turn := range turns {
		// Each turn's reply belongs to its own input: no interleaving.
		assert.Equal(t, "re: "+turn.User, turn.Assistant)
	}
	assert.Zero(t, h.orch.locks.size())
}

func TestProcess_SessionsRunInParallel(t *testing.T) {
	var arrived sync.WaitGroup
	arrived.Add(2)
	release := make(chan struct{})
	c := &fakeCompleter{fn: func(ctx context.Context, _ string, _ []inference.Message) (string, error) {
		arrived.Done()
		select {
		case <-release:
			return "ok", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}}
	h := newHarness(t, c, nil)

	errs := make(chan error, 2)
	for _, id := range []string{"a", "b"} {
		go func(id string) {
			_, err := h.orch.Process(context.Background(), TurnRequest{SessionID: id, Input: "hi"})
			errs <- err
		}(id)
	}

	done := make(chan struct{})
	go func() { arrived.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sessions did not reach inference concurrently")
	}
	close(release)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
}

func TestSessionLocks_FIFO(t *testing.T) {
	ctx := context.Background()
	l := newSessionLocks()

	unlock, err := l.lock(ctx, "s")
	require.NoError(t, err)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 1; i <= 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := l.lock(ctx, "s")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			u()
		}(i)
		// Wait for goroutine i to queue before starting the next.
		require.Eventually(t, func() bool { return waiters(l, "s") == i }, time.Second, time.Millisecond)
	}

	unlock()
	wg.Wait()
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Zero(t, l.size())
}

func TestSessionLocks_CancelWhileWaiting(t *testing.T) {
	l := newSessionLocks()
	unlock, err := l.lock(context.Background(), "s")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := l.lock(ctx, "s")
		errc <- err
	}()
	require.Eventually(t, func() bool { return waiters(l, "s") == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.Equal(t, 0, waiters(l, "s"))

	unlock()
	assert.Zero(t, l.size())

	u, err := l.lock(context.Background(), "s")
	require.NoError(t, err)
	u()
}

func waiters(l *sessionLocks, id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if q, ok := l.queues[id]; ok {
		return len(q.waiters)
	}
	return -1
}
