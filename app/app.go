// Package app assembles the pipeline and its stores from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"trendbot/common"
	"trendbot/config"
	"trendbot/deduplication"
	"trendbot/fetcher"
	"trendbot/generation"
	"trendbot/kafka"
	"trendbot/logging"
	"trendbot/newsletter"
	"trendbot/orchestrator"
	"trendbot/ratelimit"
	"trendbot/reddit"
	"trendbot/rssfeeds"
	"trendbot/store"
	"trendbot/topics"
	"trendbot/webpage"
)

// App holds every long-lived component of the service.
type App struct {
	Config     config.Config
	Logger     *slog.Logger
	Store      *store.Store
	Pipeline   *orchestrator.Pipeline
	Duplicates *deduplication.DuplicateFilter

	redis    *redis.Client
	producer *kafka.Producer
}

// New builds the application. gen overrides the Cohere client built from
// cfg.Generation when non-nil. Redis, Kafka and S3 are optional: a Redis
// server that cannot be reached falls back to in-process stores.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, gen generation.Service) (*App, error) {
	logger = logging.OrDiscard(logger)
	p := cfg.Pipeline

	if gen == nil {
		cohere, err := generation.NewCohere(cfg.Generation)
		if err != nil {
			return nil, fmt.Errorf("init generation: %w", err)
		}
		gen = cohere
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger, Store: db}

	var (
		quota  ratelimit.Store         = ratelimit.NewMemoryStore()
		hashes deduplication.HashStore = db
	)
	if cfg.Redis.Addr != "" {
		client, err := deduplication.NewRedisClient(ctx, deduplication.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.KeyPrefix,
		})
		if err != nil {
			logger.Warn("redis unavailable, using local stores", "addr", cfg.Redis.Addr, "err", err)
		} else {
			a.redis = client
			quota = ratelimit.NewRedisStore(client, cfg.Redis.KeyPrefix)
			hashes = deduplication.NewRedisHashStore(client, cfg.Redis.KeyPrefix)
		}
	}

	minDelay, maxDelay := p.Delays()
	fetchOpts := []fetcher.Option{
		fetcher.WithTimeout(p.FetchTimeout()),
		fetcher.WithPacer(fetcher.NewPacer(minDelay, maxDelay)),
		fetcher.WithLogger(logger),
	}
	if p.RespectRobots {
		fetchOpts = append(fetchOpts, fetcher.WithRobots(fetcher.NewRobotsPolicy(nil, logger)))
	}
	f := fetcher.New(fetchOpts...)
	limiter := ratelimit.New(quota, p.RateLimitPerHostPerMinute, config.RateLimitWindow, logger)

	router := &orchestrator.Router{
		HTML: webpage.New(f, logger),
		Feed: rssfeeds.New(f, logger),
		Reddit: reddit.New(f, reddit.Config{
			Listing:  p.RedditListing,
			Limit:    p.RedditLimit,
			TopPosts: p.RedditTopPosts,
			Spacing:  config.RedditPostSpacing,
			Quota:    limiter,
		}, logger),
		Newsletter: newsletter.New(logger),
	}

	batch := orchestrator.NewBatch(router,
		orchestrator.WithLimiter(limiter),
		orchestrator.WithJobPacer(fetcher.NewPacer(minDelay, maxDelay)),
		orchestrator.WithConcurrency(p.Concurrency),
		orchestrator.WithBatchLogger(logger),
	)

	a.Duplicates, err = deduplication.NewDuplicateFilter(db, deduplication.FilterConfig{
		SimilarityThreshold: p.DuplicateSimilarityThreshold,
		Lookback:            p.DuplicateLookback(),
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Pipeline = &orchestrator.Pipeline{
		Batch:                 batch,
		Gate:                  deduplication.NewHashGate(hashes, p.HashCacheWindow(), logger),
		Topics:                topics.New(gen, p.MaxPromptChars, logger),
		Duplicates:            a.Duplicates,
		Registry:              db,
		Sink:                  db,
		FollowNewsletterLinks: p.FollowNewsletterLinks,
		Logger:                logger,
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicsTopic, logger)
		if err != nil {
			logger.Warn("kafka producer unavailable, topics will not be published", "err", err)
		} else {
			a.producer = producer
			a.Pipeline.Publisher = producer
		}
	}

	if cfg.S3.Bucket != "" {
		archive, err := common.NewRunArchive(ctx, cfg.S3)
		if err != nil {
			logger.Warn("s3 unavailable, runs will not be archived", "err", err)
		} else {
			a.Pipeline.Archive = archive
		}
	}

	logger.Info("pipeline ready",
		"redis", a.redis != nil,
		"kafka", a.producer != nil,
		"s3", a.Pipeline.Archive != nil,
		"concurrency", p.Concurrency,
	)
	return a, nil
}

// Close releases every connection the App opened.
func (a *App) Close() error {
	var errs []error
	if a.producer != nil {
		errs = append(errs, a.producer.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}
