package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// RunFunc is one scheduled workflow pass.
type RunFunc func(ctx context.Context) error

type job struct {
	name     string
	timeout  time.Duration
	run      RunFunc
	inFlight atomic.Bool
}

// Scheduler drives the registered workflows on cron schedules. A workflow
// whose previous pass is still running is skipped, not queued: the passes are
// idempotent, so the next tick picks up whatever the skipped one would have
// done.
type Scheduler struct {
	cron   *cron.Cron
	jobs   []*job
	ctx    context.Context
	logger *slog.Logger
}

func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		ctx:    context.Background(),
		logger: logger,
	}
}

// Register adds a workflow under the given standard 5-field cron spec.
func (s *Scheduler) Register(name, spec string, timeout time.Duration, run RunFunc) error {
	j := &job{name: name, timeout: timeout, run: run}

	// Cron ticks run under the Start context, so shutdown cancels an
	// in-flight pass instead of waiting out its timeout.
	_, err := s.cron.AddFunc(spec, func() {
		s.runJob(s.ctx, j)
	})
	if err != nil {
		return fmt.Errorf("register %s (%q): %w", name, spec, err)
	}

	s.jobs = append(s.jobs, j)
	s.logger.Info("workflow registered", "workflow", name, "schedule", spec)
	return nil
}

// Start runs every registered workflow once, then hands control to cron and
// blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "workflows", len(s.jobs))

	// Set before cron.Start, which launches the goroutine that reads it.
	s.ctx = ctx

	for _, j := range s.jobs {
		s.runJob(ctx, j)
	}

	s.cron.Start()

	<-ctx.Done()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()

	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) runJob(ctx context.Context, j *job) {
	if !j.inFlight.CompareAndSwap(false, true) {
		s.logger.Warn("previous pass still running, skipping", "workflow", j.name)
		return
	}
	defer j.inFlight.Store(false)

	runCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	if err := j.run(runCtx); err != nil {
		s.logger.Error("workflow pass failed", "workflow", j.name, "error", err)
	}
}
