package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"trendbot/config"
	"trendbot/fetcher"
	"trendbot/logging"
	"trendbot/newsletter"
	"trendbot/ratelimit"
	"trendbot/types"
)

// Progress observes batch progress as (completed, total).
type Progress func(completed, total int)

// Batch runs fetch+extract jobs under bounded concurrency.
type Batch struct {
	router      *Router
	limiter     *ratelimit.Limiter
	pacer       *fetcher.Pacer
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithLimiter gates every URL job on the per-host quota.
func WithLimiter(l *ratelimit.Limiter) BatchOption {
	return func(b *Batch) { b.limiter = l }
}

// WithJobPacer sets the delay taken after each job before its slot frees.
func WithJobPacer(p *fetcher.Pacer) BatchOption {
	return func(b *Batch) { b.pacer = p }
}

// WithConcurrency bounds the number of jobs in flight.
func WithConcurrency(n int) BatchOption {
	return func(b *Batch) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBatchLogger sets the logger.
func WithBatchLogger(l *slog.Logger) BatchOption {
	return func(b *Batch) { b.logger = logging.OrDiscard(l) }
}

func NewBatch(router *Router, opts ...BatchOption) *Batch {
	b := &Batch{
		router:      router,
		pacer:       fetcher.NewPacer(config.MinDelay, config.MaxDelay),
		concurrency: config.DefaultConcurrency,
		logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run executes every job and returns one outcome per job, in job order.
// A failing job never cancels or fails its siblings.
func (b *Batch) Run(ctx context.Context, jobs []types.SourceDescriptor, progress Progress) []types.Outcome {
	outcomes := make([]types.Outcome, len(jobs))
	total := len(jobs)

	var (
		mu        sync.Mutex
		completed int
	)

	var g errgroup.Group
	g.SetLimit(b.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			outcomes[i] = b.runJob(ctx, job)

			if f, ok := outcomes[i].(*types.Failure); ok {
				b.logger.Warn("job failed", "locator", f.Locator, "kind", f.Kind, "err", f.Reason)
			} else {
				b.logger.Debug("job succeeded", "locator", job.Locator)
			}

			if progress != nil {
				mu.Lock()
				completed++
				progress(completed, total)
				mu.Unlock()
			}

			b.pacer.Wait()
			return nil // never fail the group - errors are reported per job
		})
	}

	_ = g.Wait()
	return outcomes
}

func (b *Batch) runJob(ctx context.Context, job types.SourceDescriptor) (out types.Outcome) {
	locator := job.Locator
	if Classify(job) == types.KindNewsletter {
		locator = newsletter.Locator(job)
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("extractor panicked", "locator", locator, "panic", r)
			out = types.Fail(types.ParseFailure, locator, "extractor panic: %v", r)
		}
	}()

	if ctx.Err() != nil {
		return types.Fail(types.NetworkFailure, locator, "cancelled: %v", ctx.Err())
	}

	if b.limiter != nil && Classify(job) != types.KindNewsletter {
		decision, err := b.limiter.Check(ctx, job.Locator)
		if err != nil {
			return types.AsFailure(err, locator, types.InvalidLocator)
		}
		if !decision.Allowed {
			return types.Fail(types.RateLimited, locator, "rate limit exceeded, resets at %s", decision.ResetAt.Format("15:04:05"))
		}
	}

	content, err := b.router.Extract(ctx, job)
	return types.OutcomeOf(locator, content, err)
}
