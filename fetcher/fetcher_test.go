package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trendbot/types"
)

func requireFailure(t *testing.T, err error, kind types.ErrorKind) *types.Failure {
	t.Helper()
	var f *types.Failure
	require.ErrorAs(t, err, &f)
	require.Equal(t, kind, f.Kind)
	return f
}

func TestFetchSendsBrowserHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	f := New(WithPacer(NoPacing()))
	resp, err := f.Fetch(context.Background(), srv.URL+"/page", Options{})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	require.Contains(t, string(resp.Body), "hello")
	require.Contains(t, resp.ContentType, "text/html")

	require.True(t, strings.HasPrefix(got.Get("User-Agent"), "Mozilla/5.0"))
	require.Equal(t, AcceptHTML, got.Get("Accept"))
	require.Equal(t, AcceptLanguage, got.Get("Accept-Language"))
}

func TestFetchInvalidLocatorNoNetwork(t *testing.T) {
	calls := 0
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		calls++
		return nil, nil
	})}
	f := New(WithHTTPClient(client), WithPacer(NoPacing()))

	for _, loc := range []string{"", "::bad", "mailto:someone@example.com", "https://"} {
		_, err := f.Fetch(context.Background(), loc, Options{})
		requireFailure(t, err, types.InvalidLocator)
	}
	require.Zero(t, calls)
}

func TestFetchNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(WithPacer(NoPacing())).Fetch(context.Background(), srv.URL, Options{})
	f := requireFailure(t, err, types.NetworkFailure)
	require.Equal(t, http.StatusNotFound, f.Status)
	require.Contains(t, f.Reason, "404")
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := New(WithPacer(NoPacing()), WithTimeout(50*time.Millisecond))
	_, err := f.Fetch(context.Background(), srv.URL, Options{})
	fail := requireFailure(t, err, types.NetworkFailure)
	require.Equal(t, "timeout", fail.Reason)
}

func TestFetchBodyCapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", MaxBodyBytes+1024)))
	}))
	defer srv.Close()

	resp, err := New(WithPacer(NoPacing())).Fetch(context.Background(), srv.URL, Options{})
	require.NoError(t, err)
	require.Len(t, resp.Body, MaxBodyBytes)
}

func TestFetchSkipDelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<rss></rss>"))
	}))
	defer srv.Close()

	var slept []time.Duration
	pacer := NewPacer(2*time.Second, 5*time.Second)
	pacer.sleep = func(d time.Duration) { slept = append(slept, d) }
	f := New(WithPacer(pacer))

	_, err := f.Fetch(context.Background(), srv.URL, Options{SkipDelay: true, Accept: AcceptFeed})
	require.NoError(t, err)
	require.Empty(t, slept)

	_, err = f.Fetch(context.Background(), srv.URL, Options{})
	require.NoError(t, err)
	require.Len(t, slept, 1)
	require.GreaterOrEqual(t, slept[0], 2*time.Second)
	require.LessOrEqual(t, slept[0], 5*time.Second)
}

func TestRobotsPolicy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(WithPacer(NoPacing()), WithRobots(NewRobotsPolicy(srv.Client(), nil)))

	_, err := f.Fetch(context.Background(), srv.URL+"/public", Options{})
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), srv.URL+"/private/page", Options{})
	fail := requireFailure(t, err, types.NetworkFailure)
	require.Equal(t, "blocked by robots.txt", fail.Reason)
}

func TestRobotsMissingAllowsAll(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p := NewRobotsPolicy(srv.Client(), nil)
	u, _ := url.Parse(srv.URL + "/anything")
	require.True(t, p.Allowed(context.Background(), u))
}

func TestJitterBounds(t *testing.T) {
	for i := 0; i < 200; i++ {
		d := Jitter(2*time.Second, 5*time.Second)
		require.GreaterOrEqual(t, d, 2*time.Second)
		require.LessOrEqual(t, d, 5*time.Second)
	}
	require.Equal(t, time.Second, Jitter(time.Second, time.Second))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
