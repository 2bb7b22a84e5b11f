package deduplication

import (
	"context"
	"errors"
	"testing"
	"time"

	"trendbot/types"
)

type fakeTopicStore struct {
	titles []string
	err    error
	since  time.Time
}

func (f *fakeTopicStore) RecentTopicTitles(_ context.Context, _ string, since time.Time) ([]string, error) {
	f.since = since
	return f.titles, f.err
}

func TestJaccardProperties(t *testing.T) {
	pairs := [][2]string{
		{"AI coding assistants", "AI coding assistants adoption"},
		{"Quarterly earnings", "Rust in the kernel"},
		{"a b c", "c b a"},
	}
	for _, p := range pairs {
		if Jaccard(p[0], p[1]) != Jaccard(p[1], p[0]) {
			t.Fatalf("jaccard not symmetric for %q / %q", p[0], p[1])
		}
		if Jaccard(p[0], p[0]) != 1 {
			t.Fatalf("jaccard(x,x) != 1 for %q", p[0])
		}
	}
	if got := Jaccard("", ""); got != 0 {
		t.Fatalf("jaccard of empty strings = %v; want 0", got)
	}
	if got := Jaccard("Hello World", "hello   world"); got != 1 {
		t.Fatalf("tokens should be lowercased, got %v", got)
	}
	if got := Jaccard("a b", "b c"); got != 1.0/3.0 {
		t.Fatalf("jaccard(a b, b c) = %v; want 1/3", got)
	}
}

func TestDuplicateFilterExamples(t *testing.T) {
	store := &fakeTopicStore{titles: []string{"AI coding assistants are booming", "Open source funding"}}
	f, err := NewDuplicateFilter(store, FilterConfig{}, nil)
	if err != nil {
		t.Fatalf("new filter: %v", err)
	}
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return now }

	cases := []struct {
		title string
		want  bool
	}{
		{"AI coding assistants booming right now", true},
		{"  ai CODING assistants ARE booming ", true},
		{"AI coding assistants", true},
		{"Quarterly earnings beat expectations", false},
		{"Open source", false},
		{"AI regulation is booming", false},
	}
	for _, c := range cases {
		if got := f.IsDuplicate(context.Background(), "acme", c.title); got != c.want {
			t.Errorf("IsDuplicate(%q) = %v; want %v", c.title, got, c.want)
		}
	}

	if want := now.Add(-30 * 24 * time.Hour); !store.since.Equal(want) {
		t.Fatalf("lookback since = %v; want %v", store.since, want)
	}
}

func TestSimilarity(t *testing.T) {
	if got := Overlap("ai coding", "ai coding tools"); got != 0 {
		t.Fatalf("short titles must not use containment, got %v", got)
	}
	if got := Similarity("AI coding assistants are booming", "AI coding assistants booming right now"); got < 0.8 {
		t.Fatalf("similarity = %v; want >= 0.8", got)
	}
	if got := Similarity("", ""); got != 0 {
		t.Fatalf("similarity of empty strings = %v", got)
	}
	if Similarity("x y z w", "z w q") != Similarity("z w q", "x y z w") {
		t.Fatal("similarity not symmetric")
	}
}

func TestDuplicateFilterFailsOpen(t *testing.T) {
	store := &fakeTopicStore{err: errors.New("db down")}
	f, err := NewDuplicateFilter(store, FilterConfig{}, nil)
	if err != nil {
		t.Fatalf("new filter: %v", err)
	}

	if f.IsDuplicate(context.Background(), "acme", "anything") {
		t.Fatal("store errors must keep the topic")
	}

	topics := []types.ExtractedTopic{{Title: "one"}, {Title: "two"}}
	accepted, skipped := f.Filter(context.Background(), "acme", topics)
	if len(accepted) != 2 || len(skipped) != 0 {
		t.Fatalf("accepted=%d skipped=%d; want 2/0", len(accepted), len(skipped))
	}
}

func TestDuplicateFilterSplitsBatch(t *testing.T) {
	store := &fakeTopicStore{titles: []string{"AI coding assistants"}}
	f, _ := NewDuplicateFilter(store, FilterConfig{SimilarityThreshold: 0.8}, nil)

	topics := []types.ExtractedTopic{
		{Title: "ai coding assistants", TrendingScore: 80},
		{Title: "Quarterly earnings", TrendingScore: 70},
	}
	accepted, skipped := f.Filter(context.Background(), "acme", topics)
	if len(accepted) != 1 || accepted[0].Title != "Quarterly earnings" {
		t.Fatalf("unexpected accepted: %+v", accepted)
	}
	if len(skipped) != 1 || skipped[0].Title != "ai coding assistants" {
		t.Fatalf("unexpected skipped: %+v", skipped)
	}
}

func TestNewDuplicateFilterRequiresStore(t *testing.T) {
	if _, err := NewDuplicateFilter(nil, FilterConfig{}, nil); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestCanonicalURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "https://example.com/path", "https://example.com/path"},
		{"utm and fragment", "https://example.com/path?utm_source=feed#section", "https://example.com/path"},
		{"uppercase host", "HTTP://Example.COM/", "http://example.com"},
		{"tracking params", "https://example.com/?fbclid=XYZ&gclid=ABC&utm_medium=1", "https://example.com"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := CanonicalURL(c.in); got != c.want {
				t.Fatalf("CanonicalURL(%q) = %q; want %q", c.in, got, c.want)
			}
		})
	}
}
