package types

import "errors"

// ScrapeRequest asks for one pipeline run over a set of sources. It is the
// body of POST /api/scrape and of scrape-request Kafka messages.
type ScrapeRequest struct {
	Tenant  string             `json:"tenant"`
	Sources []SourceDescriptor `json:"sources"`
}

// Validate rejects requests the pipeline cannot run.
func (r ScrapeRequest) Validate() error {
	if len(r.Sources) == 0 {
		return errors.New("at least one source is required")
	}
	for _, s := range r.Sources {
		if s.Locator == "" && s.Email == nil {
			return errors.New("every source needs a locator or an email")
		}
	}
	return nil
}
