package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Allreality/my-twin/internal/model"
)

// DefaultConsolidationSchedule runs a pass every five minutes.
const DefaultConsolidationSchedule = "@every 5m"

// Snapshotter returns a point-in-time copy of long-term memory.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]model.Memory, error)
}

// Sweeper drops expired working-memory sessions.
type Sweeper interface {
	SweepSessions(ctx context.Context) (int, error)
}

// Consolidator is the extension point for merging, strengthening or
// decaying long-term memories. It works on a snapshot and must write any
// changes back through the store's own API.
type Consolidator interface {
	Consolidate(ctx context.Context, memories []model.Memory) error
}

// NoopConsolidator leaves the store unchanged.
type NoopConsolidator struct{}

func (NoopConsolidator) Consolidate(context.Context, []model.Memory) error { return nil }

// Pass is the outcome of one consolidation run.
type Pass struct {
	Memories int           `json:"memories"`
	Swept    int           `json:"sessions_swept"`
	Took     time.Duration `json:"took"`
}

// Scheduler runs consolidation passes on a cron schedule, off the turn path.
// Overlapping runs are skipped.
type Scheduler struct {
	source       Snapshotter
	consolidator Consolidator
	sweeper      Sweeper
	logger       *slog.Logger
	cron         *cron.Cron
	runs         atomic.Int64
}

// NewScheduler parses spec (standard five-field cron or a descriptor such
// as "@every 5m"). sweeper and logger may be nil; a nil consolidator is a
// NoopConsolidator.
func NewScheduler(spec string, source Snapshotter, c Consolidator, sweeper Sweeper, logger *slog.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultConsolidationSchedule
	}
	if c == nil {
		c = NoopConsolidator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{source: source, consolidator: c, sweeper: sweeper, logger: logger}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	cl := cronLogger{logger}
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running passes in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a running pass or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Runs reports how many passes have completed.
func (s *Scheduler) Runs() int64 { return s.runs.Load() }

func (s *Scheduler) tick() {
	if _, err := s.RunOnce(context.Background()); err != nil {
		s.logger.Warn("consolidation: pass failed", "err", err)
	}
}

// RunOnce performs a single pass: sweep expired sessions, snapshot the
// store, then consolidate the snapshot.
func (s *Scheduler) RunOnce(ctx context.Context) (*Pass, error) {
	start := time.Now()
	pass := &Pass{}

	if s.sweeper != nil {
		n, err := s.sweeper.SweepSessions(ctx)
		if err != nil {
			s.logger.Warn("consolidation: sweep failed", "err", err)
		}
		pass.Swept = n
	}

	mems, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	pass.Memories = len(mems)

	if err := s.consolidator.Consolidate(ctx, mems); err != nil {
		return nil, fmt.Errorf("consolidate: %w", err)
	}

	pass.Took = time.Since(start)
	s.runs.Add(1)
	s.logger.Debug("consolidation: pass complete",
		"memories", pass.Memories,
		"swept", pass.Swept,
		"took", pass.Took,
	)
	return pass, nil
}

// cronLogger routes cron's logging through slog.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Debug("cron: "+msg, kv...)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Error("cron: "+msg, append([]interface{}{"err", err}, kv...)...)
}
