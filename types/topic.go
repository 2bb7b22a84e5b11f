package types

import "time"

// Topic score bounds.
const (
	MinTrendingScore = 40
	MaxTrendingScore = 100
)

// ExtractedTopic is a candidate trending topic returned by the generation step.
type ExtractedTopic struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	TrendingScore int    `json:"trendingScore"`
	Relevance     string `json:"relevance"`
}

// StoredTopic is a topic previously accepted for a tenant.
type StoredTopic struct {
	ID        int64     `json:"id"`
	Tenant    string    `json:"tenant"`
	SourceID  string    `json:"source_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}
