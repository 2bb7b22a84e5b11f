package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const configPathEnv = "TRENDBOT_CONFIG"

// Config holds every setting the service reads at start-up.
type Config struct {
	Pipeline   Pipeline         `yaml:"pipeline"`
	Redis      RedisConfig      `yaml:"redis"`
	Generation GenerationConfig `yaml:"generation"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	S3         S3Config         `yaml:"s3"`
	Log        LogConfig        `yaml:"log"`

	Port         string `yaml:"port"`
	DBPath       string `yaml:"dbPath"`
	CronSchedule string `yaml:"cronSchedule"`
	Tenant       string `yaml:"tenant"`
}

// Pipeline carries the recognized pipeline options.
type Pipeline struct {
	Concurrency                  int     `yaml:"concurrency"`
	RateLimitPerHostPerMinute    int     `yaml:"rateLimitPerHostPerMinute"`
	FetchTimeoutMs               int     `yaml:"fetchTimeoutMs"`
	MaxPromptChars               int     `yaml:"maxPromptChars"`
	DuplicateSimilarityThreshold float64 `yaml:"duplicateSimilarityThreshold"`
	HashCacheWindowDays          int     `yaml:"hashCacheWindowDays"`
	DuplicateLookbackDays        int     `yaml:"duplicateLookbackDays"`

	MinDelayMs            int    `yaml:"minDelayMs"`
	MaxDelayMs            int    `yaml:"maxDelayMs"`
	RedditListing         string `yaml:"redditListing"`
	RedditLimit           int    `yaml:"redditLimit"`
	RedditTopPosts        int    `yaml:"redditTopPosts"`
	RespectRobots         bool   `yaml:"respectRobots"`
	FollowNewsletterLinks bool   `yaml:"followNewsletterLinks"`
}

// FetchTimeout returns the fetch timeout as a duration.
func (p Pipeline) FetchTimeout() time.Duration {
	return time.Duration(p.FetchTimeoutMs) * time.Millisecond
}

// HashCacheWindow returns the content hash validity window.
func (p Pipeline) HashCacheWindow() time.Duration {
	return time.Duration(p.HashCacheWindowDays) * 24 * time.Hour
}

// DuplicateLookback returns how far back stored topics are compared.
func (p Pipeline) DuplicateLookback() time.Duration {
	return time.Duration(p.DuplicateLookbackDays) * 24 * time.Hour
}

// Delays returns the jitter bounds used for pacing.
func (p Pipeline) Delays() (time.Duration, time.Duration) {
	return time.Duration(p.MinDelayMs) * time.Millisecond, time.Duration(p.MaxDelayMs) * time.Millisecond
}

// RedisConfig describes the quota/hash store connection. An empty Addr
// disables Redis and the in-process stores are used instead.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// GenerationConfig selects the text-generation backend.
type GenerationConfig struct {
	APIKey    string  `yaml:"apiKey"`
	Model     string  `yaml:"model"`
	MaxTokens int     `yaml:"maxTokens"`
	Temp      float64 `yaml:"temperature"`
}

// KafkaConfig enables job intake and topic publishing when Brokers is set.
type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	RequestTopic string   `yaml:"requestTopic"`
	TopicsTopic  string   `yaml:"topicsTopic"`
	GroupID      string   `yaml:"groupId"`
}

// S3Config enables run archiving when Bucket is set.
type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Profile      string `yaml:"profile"`
	Prefix       string `yaml:"prefix"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"usePathStyle"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads .env (if present), the optional YAML file named by
// TRENDBOT_CONFIG, then environment overrides, and validates the result.
func Load() (Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := cfg.MergeYAML(raw); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// MergeYAML overlays the non-zero values of a YAML document onto c.
func (c *Config) MergeYAML(raw []byte) error {
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return err
	}
	*c = merge(*c, fileCfg)
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Pipeline: Pipeline{
			Concurrency:                  DefaultConcurrency,
			RateLimitPerHostPerMinute:    DefaultRateLimitPerHost,
			FetchTimeoutMs:               int(DefaultFetchTimeout / time.Millisecond),
			MaxPromptChars:               DefaultMaxPromptChars,
			DuplicateSimilarityThreshold: DefaultDuplicateThreshold,
			HashCacheWindowDays:          DefaultHashCacheWindowDays,
			DuplicateLookbackDays:        DefaultDuplicateLookbackDays,
			MinDelayMs:                   int(MinDelay / time.Millisecond),
			MaxDelayMs:                   int(MaxDelay / time.Millisecond),
			RedditListing:                DefaultRedditListing,
			RedditLimit:                  DefaultRedditLimit,
			RedditTopPosts:               DefaultRedditTopPosts,
		},
		Redis: RedisConfig{KeyPrefix: "trendbot"},
		Generation: GenerationConfig{
			Model:     DefaultGenerateModel,
			MaxTokens: 2048,
			Temp:      0.4,
		},
		Kafka: KafkaConfig{
			RequestTopic: DefaultRequestTopic,
			TopicsTopic:  DefaultTopicsTopic,
			GroupID:      DefaultConsumerGroup,
		},
		Log:          LogConfig{Level: "info", Format: "text"},
		Port:         DefaultPort,
		DBPath:       DefaultDBPath,
		CronSchedule: DefaultCronSchedule,
		Tenant:       "default",
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	p := c.Pipeline
	switch {
	case p.Concurrency <= 0:
		return fmt.Errorf("concurrency must be positive")
	case p.RateLimitPerHostPerMinute <= 0:
		return fmt.Errorf("rateLimitPerHostPerMinute must be positive")
	case p.FetchTimeoutMs <= 0:
		return fmt.Errorf("fetchTimeoutMs must be positive")
	case p.MaxPromptChars <= 0:
		return fmt.Errorf("maxPromptChars must be positive")
	case p.DuplicateSimilarityThreshold <= 0 || p.DuplicateSimilarityThreshold > 1:
		return fmt.Errorf("duplicateSimilarityThreshold must be in (0,1]")
	case p.HashCacheWindowDays <= 0:
		return fmt.Errorf("hashCacheWindowDays must be positive")
	case p.DuplicateLookbackDays <= 0:
		return fmt.Errorf("duplicateLookbackDays must be positive")
	case p.MinDelayMs < 0 || p.MaxDelayMs < p.MinDelayMs:
		return fmt.Errorf("delay bounds invalid: min=%d max=%d", p.MinDelayMs, p.MaxDelayMs)
	}
	return nil
}

// LogValue keeps secrets out of structured logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("concurrency", c.Pipeline.Concurrency),
		slog.Int("rate_limit", c.Pipeline.RateLimitPerHostPerMinute),
		slog.Bool("redis", c.Redis.Addr != ""),
		slog.Bool("kafka", len(c.Kafka.Brokers) > 0),
		slog.Bool("s3", c.S3.Bucket != ""),
		slog.String("model", c.Generation.Model),
		slog.String("db", c.DBPath),
	)
}

func (c *Config) applyEnvOverrides() {
	c.Port = getEnv("PORT", c.Port)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.CronSchedule = getEnv("CRON_SCHEDULE", c.CronSchedule)
	c.Tenant = getEnv("TENANT", c.Tenant)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASS", c.Redis.Password)
	c.Redis.DB = getInt("REDIS_DB", c.Redis.DB)

	c.Generation.APIKey = getEnv("COHERE_API_KEY", c.Generation.APIKey)
	c.Generation.Model = getEnv("COHERE_MODEL", c.Generation.Model)

	if brokers := splitAndTrim(os.Getenv("KAFKA_BROKERS")); len(brokers) > 0 {
		c.Kafka.Brokers = brokers
	}
	c.Kafka.RequestTopic = getEnv("KAFKA_REQUEST_TOPIC", c.Kafka.RequestTopic)
	c.Kafka.TopicsTopic = getEnv("KAFKA_TOPICS_TOPIC", c.Kafka.TopicsTopic)

	c.S3.Bucket = getEnv("S3_BUCKET", c.S3.Bucket)
	c.S3.Region = getEnv("S3_REGION", c.S3.Region)
	c.S3.Profile = getEnv("S3_PROFILE", c.S3.Profile)
	c.S3.Prefix = getEnv("S3_PREFIX", c.S3.Prefix)
	c.S3.Endpoint = getEnv("S3_ENDPOINT", c.S3.Endpoint)
	if v := os.Getenv("S3_USE_PATH_STYLE"); v != "" {
		c.S3.UsePathStyle = strings.EqualFold(strings.TrimSpace(v), "true")
	}

	c.Pipeline.Concurrency = getInt("PIPELINE_CONCURRENCY", c.Pipeline.Concurrency)
	c.Pipeline.RateLimitPerHostPerMinute = getInt("RATE_LIMIT_PER_HOST", c.Pipeline.RateLimitPerHostPerMinute)
	c.Pipeline.FetchTimeoutMs = getInt("FETCH_TIMEOUT_MS", c.Pipeline.FetchTimeoutMs)
	c.Pipeline.MaxPromptChars = getInt("MAX_PROMPT_CHARS", c.Pipeline.MaxPromptChars)
}

func merge(base, override Config) Config {
	p, o := &base.Pipeline, override.Pipeline
	if o.Concurrency != 0 {
		p.Concurrency = o.Concurrency
	}
	if o.RateLimitPerHostPerMinute != 0 {
		p.RateLimitPerHostPerMinute = o.RateLimitPerHostPerMinute
	}
	if o.FetchTimeoutMs != 0 {
		p.FetchTimeoutMs = o.FetchTimeoutMs
	}
	if o.MaxPromptChars != 0 {
		p.MaxPromptChars = o.MaxPromptChars
	}
	if o.DuplicateSimilarityThreshold != 0 {
		p.DuplicateSimilarityThreshold = o.DuplicateSimilarityThreshold
	}
	if o.HashCacheWindowDays != 0 {
		p.HashCacheWindowDays = o.HashCacheWindowDays
	}
	if o.DuplicateLookbackDays != 0 {
		p.DuplicateLookbackDays = o.DuplicateLookbackDays
	}
	if o.MinDelayMs != 0 {
		p.MinDelayMs = o.MinDelayMs
	}
	if o.MaxDelayMs != 0 {
		p.MaxDelayMs = o.MaxDelayMs
	}
	if o.RedditListing != "" {
		p.RedditListing = o.RedditListing
	}
	if o.RedditLimit != 0 {
		p.RedditLimit = o.RedditLimit
	}
	if o.RedditTopPosts != 0 {
		p.RedditTopPosts = o.RedditTopPosts
	}
	p.RespectRobots = p.RespectRobots || o.RespectRobots
	p.FollowNewsletterLinks = p.FollowNewsletterLinks || o.FollowNewsletterLinks

	if override.Redis.Addr != "" {
		base.Redis = override.Redis
		if base.Redis.KeyPrefix == "" {
			base.Redis.KeyPrefix = "trendbot"
		}
	}
	if override.Generation.APIKey != "" {
		base.Generation.APIKey = override.Generation.APIKey
	}
	if override.Generation.Model != "" {
		base.Generation.Model = override.Generation.Model
	}
	if override.Generation.MaxTokens != 0 {
		base.Generation.MaxTokens = override.Generation.MaxTokens
	}
	if override.Generation.Temp != 0 {
		base.Generation.Temp = override.Generation.Temp
	}
	if len(override.Kafka.Brokers) > 0 {
		base.Kafka.Brokers = override.Kafka.Brokers
	}
	if override.Kafka.RequestTopic != "" {
		base.Kafka.RequestTopic = override.Kafka.RequestTopic
	}
	if override.Kafka.TopicsTopic != "" {
		base.Kafka.TopicsTopic = override.Kafka.TopicsTopic
	}
	if override.Kafka.GroupID != "" {
		base.Kafka.GroupID = override.Kafka.GroupID
	}
	if override.S3.Bucket != "" {
		base.S3 = override.S3
	}
	if override.Log.Level != "" {
		base.Log.Level = override.Log.Level
	}
	if override.Log.Format != "" {
		base.Log.Format = override.Log.Format
	}
	if override.Port != "" {
		base.Port = override.Port
	}
	if override.DBPath != "" {
		base.DBPath = override.DBPath
	}
	if override.CronSchedule != "" {
		base.CronSchedule = override.CronSchedule
	}
	if override.Tenant != "" {
		base.Tenant = override.Tenant
	}
	return base
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
