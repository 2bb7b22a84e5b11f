package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Pipeline.Concurrency != 3 {
		t.Errorf("concurrency = %d, want 3", cfg.Pipeline.Concurrency)
	}
	if cfg.Pipeline.FetchTimeout() != 30*time.Second {
		t.Errorf("fetch timeout = %v", cfg.Pipeline.FetchTimeout())
	}
	if cfg.Pipeline.HashCacheWindow() != 7*24*time.Hour {
		t.Errorf("hash window = %v", cfg.Pipeline.HashCacheWindow())
	}
	minD, maxD := cfg.Pipeline.Delays()
	if minD != 2*time.Second || maxD != 5*time.Second {
		t.Errorf("delays = %v..%v", minD, maxD)
	}
}

func TestMergeYAML(t *testing.T) {
	cfg := Default()
	raw := []byte(`
pipeline:
  concurrency: 5
  maxPromptChars: 8000
  respectRobots: true
redis:
  addr: localhost:6379
kafka:
  brokers: [k1:9092, k2:9092]
`)
	if err := cfg.MergeYAML(raw); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if cfg.Pipeline.Concurrency != 5 || cfg.Pipeline.MaxPromptChars != 8000 {
		t.Errorf("pipeline not merged: %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.RateLimitPerHostPerMinute != DefaultRateLimitPerHost {
		t.Errorf("unset field lost its default: %d", cfg.Pipeline.RateLimitPerHostPerMinute)
	}
	if !cfg.Pipeline.RespectRobots {
		t.Error("respectRobots not merged")
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.KeyPrefix != "trendbot" {
		t.Errorf("redis = %+v", cfg.Redis)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.RequestTopic != DefaultRequestTopic {
		t.Errorf("kafka = %+v", cfg.Kafka)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trendbot.yaml")
	if err := os.WriteFile(path, []byte("pipeline:\n  concurrency: 4\nport: \"9000\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv("PORT", "9100")
	t.Setenv("KAFKA_BROKERS", " a:1 , b:2 ,")
	t.Setenv("RATE_LIMIT_PER_HOST", "20")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pipeline.Concurrency != 4 {
		t.Errorf("concurrency = %d, want 4", cfg.Pipeline.Concurrency)
	}
	if cfg.Port != "9100" {
		t.Errorf("env should override file, port = %s", cfg.Port)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "b:2" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Pipeline.RateLimitPerHostPerMinute != 20 {
		t.Errorf("rate limit = %d", cfg.Pipeline.RateLimitPerHostPerMinute)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.Pipeline.Concurrency = 0 }},
		{"threshold above one", func(c *Config) { c.Pipeline.DuplicateSimilarityThreshold = 1.5 }},
		{"inverted delays", func(c *Config) { c.Pipeline.MinDelayMs, c.Pipeline.MaxDelayMs = 5000, 1000 }},
		{"zero prompt budget", func(c *Config) { c.Pipeline.MaxPromptChars = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestResolveSource(t *testing.T) {
	if got := ResolveSource("hn"); got != SourcePresets["hn"] {
		t.Errorf("preset not resolved: %s", got)
	}
	if got := ResolveSource("https://example.com/feed"); got != "https://example.com/feed" {
		t.Errorf("direct url changed: %s", got)
	}
}
