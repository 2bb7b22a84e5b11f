// Package scheduler runs the pipeline over the source registry on a cron
// schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"trendbot/logging"
	"trendbot/orchestrator"
)

// Runner runs the pipeline over a tenant's registered sources.
type Runner interface {
	RunOnce(ctx context.Context, tenant string, progress orchestrator.Progress) (*orchestrator.RunResult, error)
}

// Scheduler triggers periodic runs. A tick that fires while a run is still
// in progress is skipped.
type Scheduler struct {
	runner  Runner
	tenants []string
	cron    *cron.Cron
	cronID  cron.EntryID
	mu      sync.Mutex
	running atomic.Bool
	ctx     context.Context
	logger  *slog.Logger
}

func New(runner Runner, tenants []string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:  runner,
		tenants: tenants,
		cron:    cron.New(),
		ctx:     context.Background(),
		logger:  logging.OrDiscard(logger),
	}
}

// Start registers the run on schedule (standard five-field cron syntax or
// descriptors such as "@hourly"). Runs use ctx.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx = ctx
	id, err := s.cron.AddFunc(schedule, func() { s.Trigger() })
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cronID = id
	s.cron.Start()
	s.logger.Info("cron job started", "schedule", schedule)
	return nil
}

// Trigger runs every tenant once unless a run is already in progress, and
// reports whether it ran.
func (s *Scheduler) Trigger() bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("cron skipped: previous run still in progress")
		return false
	}
	defer s.running.Store(false)

	for _, tenant := range s.tenants {
		if s.ctx.Err() != nil {
			return true
		}
		res, err := s.runner.RunOnce(s.ctx, tenant, nil)
		if err != nil {
			s.logger.Error("scheduled run failed", "tenant", tenant, "err", err)
			continue
		}
		s.logger.Info("scheduled run finished", "tenant", tenant, "run", res.ID, "topics", len(res.Topics), "failed", len(res.Failures))
	}
	return true
}

// Stop halts the schedule and waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
