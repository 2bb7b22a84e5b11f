package topics

import (
	"context"
	"log/slog"
	"strings"

	"trendbot/config"
	"trendbot/deduplication"
	"trendbot/generation"
	"trendbot/logging"
	"trendbot/types"
)

// BatchLocator labels failures that belong to a whole extraction batch.
const BatchLocator = "extraction-batch"

// Extractor runs one generation call over a batch of contents.
type Extractor struct {
	gen    generation.Service
	budget int
	logger *slog.Logger
}

func New(gen generation.Service, maxPromptChars int, logger *slog.Logger) *Extractor {
	if maxPromptChars <= 0 {
		maxPromptChars = config.DefaultMaxPromptChars
	}
	return &Extractor{gen: gen, budget: maxPromptChars, logger: logging.OrDiscard(logger)}
}

// Extract returns the candidate topics of contents. A failed or empty
// generation call yields a GenerationFailure and no topics.
func (e *Extractor) Extract(ctx context.Context, contents []*types.NormalizedContent) ([]types.ExtractedTopic, error) {
	if len(contents) == 0 {
		return nil, nil
	}

	prompt, included := BuildPrompt(contents, e.budget)
	if excluded := len(contents) - included; excluded > 0 {
		e.logger.Warn("prompt budget reached, sources excluded", "included", included, "excluded", excluded, "budget", e.budget)
	}

	text, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, types.Fail(types.GenerationFailure, BatchLocator, "generation failed: %v", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, types.Fail(types.GenerationFailure, BatchLocator, "generation returned empty response")
	}

	topics, lossy := Parse(text)
	if lossy {
		e.logger.Warn("generation reply was not JSON, used line fallback", "recovered", len(topics))
	}

	merged := Dedupe(topics)
	e.logger.Info("topics extracted", "sources", included, "raw", len(topics), "kept", len(merged))
	return merged, nil
}

// Dedupe drops repeated titles within one batch. Exact case-insensitive
// repeats are dropped; titles with Jaccard similarity above 0.8 are merged
// into whichever has the higher trending score.
func Dedupe(topics []types.ExtractedTopic) []types.ExtractedTopic {
	out := make([]types.ExtractedTopic, 0, len(topics))
	for _, t := range topics {
		merged := false
		for i := range out {
			if deduplication.SameTitle(t.Title, out[i].Title) {
				merged = true
				break
			}
			if deduplication.Jaccard(t.Title, out[i].Title) > config.DefaultDuplicateThreshold {
				if t.TrendingScore > out[i].TrendingScore {
					out[i] = t
				}
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, t)
		}
	}
	return out
}
