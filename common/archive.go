package common

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	appconfig "trendbot/config"
	"trendbot/orchestrator"
)

// RunArchive writes each run report to S3 as JSON.
type RunArchive struct {
	s3     *S3
	bucket string
	prefix string
}

// NewRunArchive connects to the bucket named in cfg.
func NewRunArchive(ctx context.Context, cfg appconfig.S3Config) (*RunArchive, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is not configured")
	}
	client, err := NewS3(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix != "" {
		prefix = strings.Trim(prefix, "/") + "/"
	}
	return &RunArchive{s3: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

// RunKey is the object key of a run report.
func (a *RunArchive) RunKey(run *orchestrator.RunResult) string {
	return fmt.Sprintf("%sruns/%s/%s/%s.json", a.prefix, run.Tenant, run.StartedAt.UTC().Format("2006/01/02"), run.ID)
}

// PutRun uploads the report of a finished run.
func (a *RunArchive) PutRun(ctx context.Context, run *orchestrator.RunResult) error {
	b, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return err
	}
	return a.s3.Put(ctx, a.bucket, a.RunKey(run), bytes.NewReader(b), "application/json", "no-cache")
}

// GetRun reads back an archived run report.
func (a *RunArchive) GetRun(ctx context.Context, key string) (*orchestrator.RunResult, error) {
	body, err := a.s3.Get(ctx, a.bucket, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var run orchestrator.RunResult
	if err := json.NewDecoder(body).Decode(&run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", key, err)
	}
	return &run, nil
}

// Archived reports whether a run report is present.
func (a *RunArchive) Archived(ctx context.Context, run *orchestrator.RunResult) (bool, error) {
	return a.s3.Exists(ctx, a.bucket, a.RunKey(run))
}
