package config

import "time"

// Pipeline defaults
const (
	// DefaultConcurrency is the width of the batch worker pool
	DefaultConcurrency = 3

	// DefaultRateLimitPerHost is the number of requests allowed per host per window
	DefaultRateLimitPerHost = 10

	// RateLimitWindow is the sliding window length for per-host quotas
	RateLimitWindow = 60 * time.Second

	// DefaultFetchTimeout bounds a single network fetch
	DefaultFetchTimeout = 30 * time.Second

	// DefaultMaxPromptChars bounds the combined content sent in one generation call
	DefaultMaxPromptChars = 15000

	// DefaultDuplicateThreshold is the Jaccard similarity at which topics are duplicates
	DefaultDuplicateThreshold = 0.8

	// DefaultHashCacheWindowDays is how long an unchanged content hash suppresses reprocessing
	DefaultHashCacheWindowDays = 7

	// DefaultDuplicateLookbackDays is how far back stored topics are compared
	DefaultDuplicateLookbackDays = 30
)

// Pacing defaults
const (
	// MinDelay and MaxDelay bound the randomized pause before fetches and after jobs
	MinDelay = 2 * time.Second
	MaxDelay = 5 * time.Second

	// RedditPostSpacing separates consecutive post scrapes during subreddit discovery
	RedditPostSpacing = 2 * time.Second
)

// Reddit discovery defaults
const (
	DefaultRedditListing  = "hot"
	DefaultRedditLimit    = 25
	DefaultRedditTopPosts = 7
)

// Service defaults
const (
	DefaultPort          = "8080"
	DefaultDBPath        = "trendbot.db"
	DefaultCronSchedule  = "0 */6 * * *"
	DefaultRequestTopic  = "scrape-requests"
	DefaultTopicsTopic   = "topics-extracted"
	DefaultConsumerGroup = "trendbot-scrapers"
	DefaultGenerateModel = "command-r"
)
