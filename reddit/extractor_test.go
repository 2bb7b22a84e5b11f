package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trendbot/fetcher"
	"trendbot/ratelimit"
	"trendbot/types"
)

var now = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func TestTrendingScoreMonotonic(t *testing.T) {
	base := Post{Score: 500, UpvoteRatio: 0.8, NumComments: 120, CreatedUTC: float64(now.Add(-10 * time.Hour).Unix())}
	s := TrendingScore(base, now)

	more := base
	more.Score = 5000
	require.Greater(t, TrendingScore(more, now), s, "score")

	more = base
	more.UpvoteRatio = 0.95
	require.Greater(t, TrendingScore(more, now), s, "ratio")

	more = base
	more.NumComments = 1200
	require.Greater(t, TrendingScore(more, now), s, "comments")

	older := base
	older.CreatedUTC = float64(now.Add(-30 * time.Hour).Unix())
	require.Less(t, TrendingScore(older, now), s, "age")

	ancient := base
	ancient.CreatedUTC = float64(now.Add(-100 * time.Hour).Unix())
	cutoff := base
	cutoff.CreatedUTC = float64(now.Add(-48 * time.Hour).Unix())
	require.InDelta(t, TrendingScore(cutoff, now), TrendingScore(ancient, now), 1e-9, "no freshness after 48h")
}

func TestTrendingScoreFloorsAtOne(t *testing.T) {
	p := Post{Score: -20, NumComments: 0, UpvoteRatio: 0, CreatedUTC: float64(now.Add(-72 * time.Hour).Unix())}
	require.Zero(t, TrendingScore(p, now))
}

func TestRankPostsSkipsStickied(t *testing.T) {
	posts := []Post{
		{ID: "a", Score: 10, CreatedUTC: float64(now.Unix())},
		{ID: "b", Score: 100000, Stickied: true, CreatedUTC: float64(now.Unix())},
		{ID: "c", Score: 1000, CreatedUTC: float64(now.Unix())},
	}
	ranked := RankPosts(posts, 7, now)
	require.Len(t, ranked, 2)
	require.Equal(t, "c", ranked[0].ID)
}

func TestSubredditName(t *testing.T) {
	tests := []struct {
		in   string
		name string
		ok   bool
	}{
		{"https://www.reddit.com/r/golang/", "golang", true},
		{"https://reddit.com/r/golang/top", "golang", true},
		{"https://www.reddit.com/r/golang/comments/abc/some_title/", "", false},
		{"https://www.reddit.com/user/someone", "", false},
	}
	for _, tt := range tests {
		u, _ := url.Parse(tt.in)
		name, ok := SubredditName(u)
		require.Equal(t, tt.ok, ok, tt.in)
		require.Equal(t, tt.name, name, tt.in)
	}
	require.True(t, IsRedditHost("old.reddit.com"))
	require.False(t, IsRedditHost("notreddit.com"))
}

func comment(author, body string, score int, replies ...map[string]any) map[string]any {
	data := map[string]any{"author": author, "body": body, "score": score, "replies": ""}
	if len(replies) > 0 {
		children := make([]any, len(replies))
		for i, r := range replies {
			children[i] = r
		}
		data["replies"] = map[string]any{"kind": "Listing", "data": map[string]any{"children": children}}
	}
	return map[string]any{"kind": "t1", "data": data}
}

func postJSON(t *testing.T, title string, comments ...map[string]any) []byte {
	t.Helper()
	children := make([]any, 0, len(comments)+1)
	for _, c := range comments {
		children = append(children, c)
	}
	children = append(children, map[string]any{"kind": "more", "data": map[string]any{"count": 10}})

	doc := []any{
		map[string]any{"kind": "Listing", "data": map[string]any{"children": []any{
			map[string]any{"kind": "t3", "data": map[string]any{
				"title": title, "selftext": "Body text of the post discussing the Go release and new features in detail.",
				"author": "poster", "subreddit": "golang", "score": 420, "num_comments": 3,
				"upvote_ratio": 0.97, "created_utc": float64(now.Add(-2 * time.Hour).Unix()),
			}},
		}}},
		map[string]any{"kind": "Listing", "data": map[string]any{"children": children}},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

func TestWalkCommentsDepthBound(t *testing.T) {
	deep := comment("d3", "depth three", 1)
	root := comment("root", "top level", 50,
		comment("d1", "depth one", 10,
			comment("d2", "depth two", 5, deep)))

	raw, _ := json.Marshal(root["data"])
	var c Comment
	require.NoError(t, json.Unmarshal(raw, &c))

	lines := WalkComments([]Comment{c}, MaxCommentDepth)
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "[Comment by u/root (50 points)]")
	require.Contains(t, lines[2], "depth two")
	require.NotContains(t, strings.Join(lines, "\n"), "depth three")
}

func TestTopCommentsOrder(t *testing.T) {
	in := []Comment{{Author: "a", Score: 1}, {Author: "b", Score: 30}, {Author: "c", Score: 7}}
	top := TopComments(in, 2)
	require.Len(t, top, 2)
	require.Equal(t, "b", top[0].Author)
	require.Equal(t, "c", top[1].Author)
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/r/golang/comments/p1/first_post.json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "raw_json=1" {
			http.Error(w, "missing raw_json", http.StatusBadRequest)
			return
		}
		_, _ = w.Write(postJSON(t, "Go 1.24 released",
			comment("alice", "Generic type aliases are great for refactoring large codebases.", 12),
			comment("bob", "The new map implementation is noticeably faster in our services.", 40,
				comment("carol", "Agreed, we saw lower memory use too.", 8)),
		))
	})
	mux.HandleFunc("/r/golang/comments/p2/second_post.json", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/r/golang/hot.json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "25" {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		created := float64(now.Add(-3 * time.Hour).Unix())
		listing := map[string]any{"kind": "Listing", "data": map[string]any{"children": []any{
			map[string]any{"kind": "t3", "data": map[string]any{"title": "Rules", "stickied": true, "score": 99999, "permalink": "/r/golang/comments/sticky/rules/", "created_utc": created}},
			map[string]any{"kind": "t3", "data": map[string]any{"title": "First", "score": 800, "num_comments": 90, "upvote_ratio": 0.9, "permalink": "/r/golang/comments/p1/first_post/", "created_utc": created}},
			map[string]any{"kind": "t3", "data": map[string]any{"title": "Second", "score": 300, "num_comments": 10, "upvote_ratio": 0.8, "permalink": "/r/golang/comments/p2/second_post/", "created_utc": created}},
		}}}
		_ = json.NewEncoder(w).Encode(listing)
	})
	mux.HandleFunc("/r/empty/hot.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"kind":"Listing","data":{"children":[]}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newExtractor() *Extractor {
	e := New(fetcher.New(fetcher.WithPacer(fetcher.NoPacing())), Config{}, nil)
	e.now = func() time.Time { return now }
	return e
}

func TestExtractPost(t *testing.T) {
	srv := newServer(t)
	locator := srv.URL + "/r/golang/comments/p1/first_post/"

	c, err := newExtractor().Extract(context.Background(), locator)
	require.NoError(t, err)
	require.Equal(t, "Go 1.24 released", c.Title)
	require.Equal(t, "golang", c.Metadata.Subreddit)
	require.Equal(t, "poster", c.Author)
	require.Contains(t, c.Body, "Subreddit: r/golang")
	require.Contains(t, c.Body, "[Comment by u/bob (40 points)]")
	require.Contains(t, c.Body, "[Comment by u/carol (8 points)]")
	require.Less(t, strings.Index(c.Body, "u/bob"), strings.Index(c.Body, "u/alice"), "comments ordered by score")
}

func TestExtractPostFailureKeepsLocator(t *testing.T) {
	srv := newServer(t)
	locator := srv.URL + "/r/golang/comments/p2/second_post/"

	_, err := newExtractor().Extract(context.Background(), locator)
	var f *types.Failure
	require.ErrorAs(t, err, &f)
	require.Equal(t, types.NetworkFailure, f.Kind)
	require.Equal(t, locator, f.Locator)
	require.Equal(t, http.StatusInternalServerError, f.Status)
}

func TestExtractSubreddit(t *testing.T) {
	srv := newServer(t)

	c, err := newExtractor().Extract(context.Background(), srv.URL+"/r/golang/")
	require.NoError(t, err)
	require.Equal(t, "r/golang", c.Title)
	require.Equal(t, "golang", c.Metadata.Subreddit)
	require.Contains(t, c.Body, "Go 1.24 released")
	require.NotContains(t, c.Body, "Rules")
}

func TestExtractSubredditNothingScraped(t *testing.T) {
	srv := newServer(t)

	_, err := newExtractor().Extract(context.Background(), srv.URL+"/r/empty")
	var f *types.Failure
	require.ErrorAs(t, err, &f)
	require.Contains(t, f.Reason, "no posts scraped from r/empty")
}

func TestExtractSubredditChargesQuotaPerPost(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t)
	counted := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		srv.Config.Handler.ServeHTTP(w, r)
	}))
	t.Cleanup(counted.Close)

	limiter := ratelimit.New(ratelimit.NewMemoryStore(), 2, time.Minute, nil)
	e := New(fetcher.New(fetcher.WithPacer(fetcher.NoPacing())), Config{Quota: limiter}, nil)
	e.now = func() time.Time { return now }

	locator := counted.URL + "/r/golang/"
	// the job itself is admitted by the batch before extraction
	d, err := limiter.Check(context.Background(), locator)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	c, err := e.Extract(context.Background(), locator)
	require.NoError(t, err)
	require.Contains(t, c.Body, "Go 1.24 released")
	require.EqualValues(t, 2, hits.Load(), "listing plus one admitted post")
}

func TestExtractSubredditAllPostsDenied(t *testing.T) {
	srv := newServer(t)
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), 1, time.Minute, nil)
	e := New(fetcher.New(fetcher.WithPacer(fetcher.NoPacing())), Config{Quota: limiter}, nil)
	e.now = func() time.Time { return now }

	locator := srv.URL + "/r/golang/"
	_, err := limiter.Check(context.Background(), locator)
	require.NoError(t, err)

	_, err = e.Extract(context.Background(), locator)
	var f *types.Failure
	require.ErrorAs(t, err, &f)
	require.Equal(t, types.RateLimited, f.Kind)
	require.Equal(t, locator, f.Locator)
}
