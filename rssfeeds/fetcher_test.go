package rssfeeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trendbot/fetcher"
	"trendbot/types"
)

const rssDoc = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
  <title>Tech Daily</title>
  <link>https://tech.example.com</link>
  <description>Daily technology news</description>
  <item>
    <title>Chips get faster</title>
    <link>https://tech.example.com/chips</link>
    <description>Short summary only</description>
    <content:encoded><![CDATA[<p>Full story about <b>chip</b> makers shipping faster processors&nbsp;this year with better efficiency.</p>]]></content:encoded>
    <pubDate>Mon, 06 Jan 2025 09:00:00 GMT</pubDate>
  </item>
  <item>
    <title>No link here</title>
    <description>This item has no link and must be dropped from the output entirely.</description>
  </item>
  <item>
    <title>Cloud costs rise</title>
    <link>https://tech.example.com/cloud</link>
    <description>&lt;p&gt;Companies report higher cloud bills as workloads for AI training grow across regions.&lt;/p&gt;</description>
  </item>
</channel>
</rss>`

const atomDoc = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Weekly</title>
  <entry>
    <title>Open models spread</title>
    <link href="https://atom.example.com/open-models"/>
    <summary>Summary text</summary>
    <content type="html">&lt;p&gt;Open weight models are being adopted by many teams building internal assistants and tools.&lt;/p&gt;</content>
    <updated>2025-01-02T00:00:00Z</updated>
    <published>2025-01-01T00:00:00Z</published>
  </entry>
  <entry>
    <title>Second entry on robotics</title>
    <link href="https://atom.example.com/robots"/>
    <summary>Warehouse robotics companies raised new funding rounds to expand their fleets quickly.</summary>
  </entry>
</feed>`

func TestDetectFormat(t *testing.T) {
	require.Equal(t, FormatRSS, DetectFormat([]byte(rssDoc)))
	require.Equal(t, FormatAtom, DetectFormat([]byte(atomDoc)))
	require.Equal(t, FormatUnknown, DetectFormat([]byte("<html><body>nope</body></html>")))
}

func TestParseRSS(t *testing.T) {
	c, err := Parse("https://tech.example.com/feed", []byte(rssDoc), time.Now())
	require.NoError(t, err)

	require.Equal(t, "Tech Daily", c.Title)
	require.Equal(t, "Tech Daily", c.Metadata.FeedTitle)
	require.Equal(t, "Daily technology news", c.Excerpt)

	require.Len(t, c.Items, 2, "item without link must be excluded")
	require.Equal(t, "https://tech.example.com/chips", c.Items[0].Link)
	require.Contains(t, c.Items[0].Content, "Full story about chip makers", "content:encoded preferred over description")
	require.NotContains(t, c.Items[0].Content, "<p>")
	require.NotContains(t, c.Items[0].Content, "&nbsp;")
	require.Equal(t, 2025, c.Items[0].PublishedAt.Year())
	require.Contains(t, c.Items[1].Content, "higher cloud bills")

	require.NotContains(t, c.Body, "No link here")
	require.Contains(t, c.Body, "Cloud costs rise")
}

func TestParseAtom(t *testing.T) {
	c, err := Parse("https://atom.example.com/atom.xml", []byte(atomDoc), time.Now())
	require.NoError(t, err)

	require.Len(t, c.Items, 2)
	first := c.Items[0]
	require.Equal(t, "https://atom.example.com/open-models", first.Link)
	require.Contains(t, first.Content, "Open weight models", "content preferred over summary")
	require.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), first.PublishedAt.UTC(), "published preferred over updated")
	require.Contains(t, c.Items[1].Content, "Warehouse robotics")
}

func TestParseRejects(t *testing.T) {
	_, err := Parse("https://x.example.com/feed", []byte("not xml at all"), time.Now())
	var f *types.Failure
	require.ErrorAs(t, err, &f)
	require.Equal(t, types.ParseFailure, f.Kind)

	empty := `<rss version="2.0"><channel><title>Empty</title><item><title>only title</title></item></channel></rss>`
	_, err = Parse("https://x.example.com/feed", []byte(empty), time.Now())
	require.ErrorAs(t, err, &f)
	require.Equal(t, types.ParseFailure, f.Kind)
}

func TestParseCapsItems(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<rss version="2.0"><channel><title>Many</title>`)
	for i := 0; i < 30; i++ {
		b.WriteString(`<item><title>Story number about things</title><link>https://many.example.com/`)
		b.WriteString(strings.Repeat("a", i+1))
		b.WriteString(`</link><description>Some words describing the story in enough detail to count.</description></item>`)
	}
	b.WriteString(`</channel></rss>`)

	c, err := Parse("https://many.example.com/rss", []byte(b.String()), time.Now())
	require.NoError(t, err)
	require.Len(t, c.Items, MaxItems)
}

func TestExtractSkipsDelay(t *testing.T) {
	var accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssDoc))
	}))
	defer srv.Close()

	// a pacer with a huge delay would hang the test if it were applied
	f := fetcher.New(fetcher.WithPacer(fetcher.NewPacer(time.Hour, time.Hour)))
	c, err := New(f, nil).Extract(context.Background(), srv.URL+"/feed")
	require.NoError(t, err)
	require.Equal(t, fetcher.AcceptFeed, accept)
	require.Len(t, c.Items, 2)
}
