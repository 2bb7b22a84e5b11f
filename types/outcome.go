package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies why a job produced no content.
type ErrorKind string

const (
	InvalidLocator    ErrorKind = "invalid_locator"
	RateLimited       ErrorKind = "rate_limited"
	NetworkFailure    ErrorKind = "network_failure"
	ParseFailure      ErrorKind = "parse_failure"
	QualityRejected   ErrorKind = "quality_rejected"
	GenerationFailure ErrorKind = "generation_failure"
)

// ErrUnchanged is reported when the content hash gate short-circuits a source.
var ErrUnchanged = errors.New("no new topics, content unchanged")

// Outcome is the result of a single fetch job. It is implemented only by
// *NormalizedContent and *Failure; consumers switch on the concrete type.
type Outcome interface {
	outcome()
	Source() string
}

func (*NormalizedContent) outcome() {}

// Source returns the locator the content was fetched from.
func (c *NormalizedContent) Source() string { return c.Locator }

// Failure is a job-level failure captured as data.
type Failure struct {
	Locator string    `json:"locator"`
	Kind    ErrorKind `json:"kind"`
	Reason  string    `json:"error"`
	Status  int       `json:"status,omitempty"`
	At      time.Time `json:"timestamp"`
}

func (*Failure) outcome() {}

// Source returns the locator of the failed job.
func (f *Failure) Source() string { return f.Locator }

func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", f.Kind, f.Reason, f.Status)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Reason)
}

// Fail builds a Failure stamped with the current time.
func Fail(kind ErrorKind, locator, format string, args ...any) *Failure {
	return &Failure{
		Locator: locator,
		Kind:    kind,
		Reason:  fmt.Sprintf(format, args...),
		At:      time.Now(),
	}
}

// AsFailure converts any error into a Failure for locator. Errors that are
// not already failures are classified with fallback.
func AsFailure(err error, locator string, fallback ErrorKind) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		if f.Locator == "" {
			cp := *f
			cp.Locator = locator
			return &cp
		}
		return f
	}
	return Fail(fallback, locator, "%v", err)
}

// OutcomeOf folds an extractor result into an Outcome. Exactly one of the
// two returned values of an extractor is expected to be set; a nil content
// with a nil error is reported as a parse failure.
func OutcomeOf(locator string, content *NormalizedContent, err error) Outcome {
	if err != nil {
		return AsFailure(err, locator, NetworkFailure)
	}
	if content == nil {
		return Fail(ParseFailure, locator, "extractor returned no content")
	}
	return content
}

// Relabel is AsFailure that always reports locator, even when err was
// raised for a derived URL such as a JSON endpoint.
func Relabel(err error, locator string, fallback ErrorKind) *Failure {
	f := AsFailure(err, locator, fallback)
	if f == nil || f.Locator == locator {
		return f
	}
	cp := *f
	cp.Locator = locator
	return &cp
}
