package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"trendbot/deduplication"
	"trendbot/logging"
	"trendbot/newsletter"
	"trendbot/types"
)

// SourceRegistry lists the sources to crawl and tracks attempts.
type SourceRegistry interface {
	ActiveSources(ctx context.Context, tenant string) ([]types.SourceDescriptor, error)
	TouchAttempt(ctx context.Context, tenant, sourceID string, at time.Time) error
}

// TopicSink persists accepted topics.
type TopicSink interface {
	SaveTopics(ctx context.Context, tenant, sourceID string, topics []types.ExtractedTopic) error
}

// TopicExtractor produces candidate topics from one batch of content.
type TopicExtractor interface {
	Extract(ctx context.Context, contents []*types.NormalizedContent) ([]types.ExtractedTopic, error)
}

// Publisher receives accepted topics once a run finishes.
type Publisher interface {
	Publish(ctx context.Context, tenant string, topics []AcceptedTopic) error
}

// Archiver stores the report of a finished run.
type Archiver interface {
	PutRun(ctx context.Context, run *RunResult) error
}

// AcceptedTopic is a topic that passed every filter, with its origin.
type AcceptedTopic struct {
	types.ExtractedTopic
	SourceID string `json:"source_id"`
	Locator  string `json:"locator"`
}

// RunResult summarizes one pipeline run.
type RunResult struct {
	ID                string                 `json:"id"`
	Tenant            string                 `json:"tenant"`
	StartedAt         time.Time              `json:"started_at"`
	FinishedAt        time.Time              `json:"finished_at"`
	Sources           int                    `json:"sources"`
	Topics            []AcceptedTopic        `json:"topics"`
	Failures          []*types.Failure       `json:"failures"`
	Unchanged         []string               `json:"unchanged,omitempty"`
	DuplicatesSkipped []types.ExtractedTopic `json:"duplicates_skipped,omitempty"`
	Attempts          map[string]time.Time   `json:"attempts"`
}

// Pipeline wires the batch, hash gate, topic extraction and duplicate
// filter into one run. Registry, Sink, Publisher and Archive are optional.
type Pipeline struct {
	Batch      *Batch
	Gate       *deduplication.HashGate
	Topics     TopicExtractor
	Duplicates *deduplication.DuplicateFilter
	Registry   SourceRegistry
	Sink       TopicSink
	Publisher  Publisher
	Archive    Archiver

	// FollowNewsletterLinks adds up to three read-more articles of a
	// newsletter to its extraction batch.
	FollowNewsletterLinks bool

	Logger *slog.Logger
	now    func() time.Time
}

func (p *Pipeline) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

// RunOnce crawls every active source of tenant.
func (p *Pipeline) RunOnce(ctx context.Context, tenant string, progress Progress) (*RunResult, error) {
	if p.Registry == nil {
		return nil, errors.New("no source registry configured")
	}
	sources, err := p.Registry.ActiveSources(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, tenant, sources, progress), nil
}

// Run crawls sources and returns the accepted topics and per-source errors.
// Every source's last-attempt time is recorded whatever its outcome.
func (p *Pipeline) Run(ctx context.Context, tenant string, sources []types.SourceDescriptor, progress Progress) *RunResult {
	logger := logging.OrDiscard(p.Logger)
	res := &RunResult{
		ID:        uuid.NewString(),
		Tenant:    tenant,
		StartedAt: p.clock(),
		Sources:   len(sources),
		Topics:    []AcceptedTopic{},
		Failures:  []*types.Failure{},
		Attempts:  make(map[string]time.Time, len(sources)),
	}
	logger.Info("run started", "run", res.ID, "tenant", tenant, "sources", len(sources))

	outcomes := p.Batch.Run(ctx, sources, progress)

	for i, outcome := range outcomes {
		src := sources[i]
		key := src.Key()
		p.touch(ctx, logger, res, tenant, key)

		switch o := outcome.(type) {
		case *types.Failure:
			res.Failures = append(res.Failures, o)
		case *types.NormalizedContent:
			p.process(ctx, logger, res, tenant, src, o)
		}
	}

	res.FinishedAt = p.clock()
	p.finish(ctx, logger, res)
	return res
}

func (p *Pipeline) touch(ctx context.Context, logger *slog.Logger, res *RunResult, tenant, key string) {
	at := p.clock()
	res.Attempts[key] = at
	if p.Registry == nil {
		return
	}
	if err := p.Registry.TouchAttempt(ctx, tenant, key, at); err != nil {
		logger.Warn("failed to record attempt", "tenant", tenant, "source", key, "err", err)
	}
}

func (p *Pipeline) process(ctx context.Context, logger *slog.Logger, res *RunResult, tenant string, src types.SourceDescriptor, content *types.NormalizedContent) {
	key := src.Key()

	var hash string
	if p.Gate != nil {
		var err error
		hash, err = p.Gate.Check(ctx, tenant, key, content)
		if errors.Is(err, types.ErrUnchanged) {
			res.Unchanged = append(res.Unchanged, key)
			return
		}
	}

	contents := []*types.NormalizedContent{content}
	if p.FollowNewsletterLinks && Classify(src) == types.KindNewsletter {
		contents = append(contents, p.followLinks(ctx, res, content)...)
	}

	topics, err := p.Topics.Extract(ctx, contents)
	if err != nil {
		res.Failures = append(res.Failures, types.Relabel(err, content.Locator, types.GenerationFailure))
		return
	}

	accepted := topics
	if p.Duplicates != nil {
		var skipped []types.ExtractedTopic
		accepted, skipped = p.Duplicates.Filter(ctx, tenant, topics)
		res.DuplicatesSkipped = append(res.DuplicatesSkipped, skipped...)
	}

	if p.Sink != nil && len(accepted) > 0 {
		if err := p.Sink.SaveTopics(ctx, tenant, key, accepted); err != nil {
			logger.Error("failed to save topics", "tenant", tenant, "source", key, "err", err)
		}
	}
	if p.Gate != nil {
		if err := p.Gate.Record(ctx, tenant, key, hash); err != nil {
			logger.Warn("failed to record content hash", "tenant", tenant, "source", key, "err", err)
		}
	}

	for _, t := range accepted {
		res.Topics = append(res.Topics, AcceptedTopic{ExtractedTopic: t, SourceID: key, Locator: content.Locator})
	}
	logger.Info("source processed", "source", key, "topics", len(topics), "accepted", len(accepted))
}

// followLinks fetches a newsletter's read-more articles through the batch.
func (p *Pipeline) followLinks(ctx context.Context, res *RunResult, content *types.NormalizedContent) []*types.NormalizedContent {
	seen := make(map[string]bool)
	var jobs []types.SourceDescriptor
	for _, link := range newsletter.ReadMoreLinks(content) {
		canon := deduplication.CanonicalURL(link)
		if seen[canon] {
			continue
		}
		seen[canon] = true
		jobs = append(jobs, types.SourceDescriptor{Locator: link, Kind: types.KindHTML})
	}
	if len(jobs) == 0 {
		return nil
	}

	var out []*types.NormalizedContent
	for _, o := range p.Batch.Run(ctx, jobs, nil) {
		switch v := o.(type) {
		case *types.NormalizedContent:
			out = append(out, v)
		case *types.Failure:
			res.Failures = append(res.Failures, v)
		}
	}
	return out
}

func (p *Pipeline) finish(ctx context.Context, logger *slog.Logger, res *RunResult) {
	if p.Publisher != nil && len(res.Topics) > 0 {
		if err := p.Publisher.Publish(ctx, res.Tenant, res.Topics); err != nil {
			logger.Error("failed to publish topics", "run", res.ID, "err", err)
		}
	}

	if p.Archive != nil {
		actx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := p.Archive.PutRun(actx, res); err != nil {
			logger.Error("failed to archive run", "run", res.ID, "err", err)
		}
		cancel()
	}

	logger.Info("run complete",
		"run", res.ID,
		"sources", res.Sources,
		"topics", len(res.Topics),
		"failed", len(res.Failures),
		"unchanged", len(res.Unchanged),
		"duplicates", len(res.DuplicatesSkipped),
		"took", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond),
	)
}
