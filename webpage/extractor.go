package webpage

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"trendbot/fetcher"
	"trendbot/logging"
	"trendbot/normalize"
	"trendbot/types"
)

// Fetcher is the subset of fetcher.Fetcher the extractor needs.
type Fetcher interface {
	Fetch(ctx context.Context, locator string, opts fetcher.Options) (*fetcher.Response, error)
}

// Extractor turns arbitrary web pages into normalized content.
type Extractor struct {
	fetcher Fetcher
	logger  *slog.Logger
}

func New(f Fetcher, logger *slog.Logger) *Extractor {
	return &Extractor{fetcher: f, logger: logging.OrDiscard(logger)}
}

// Extract fetches locator and parses it as an HTML page.
func (e *Extractor) Extract(ctx context.Context, locator string) (*types.NormalizedContent, error) {
	resp, err := e.fetcher.Fetch(ctx, locator, fetcher.Options{})
	if err != nil {
		return nil, err
	}
	content, err := Parse(locator, resp.Body, resp.FetchedAt)
	if err != nil {
		e.logger.Debug("html extraction rejected", "locator", locator, "err", err)
		return nil, err
	}
	return content, nil
}

var (
	noiseSelector = "script, style, nav, header, footer, noscript, iframe, form, aside"
	noisePattern  = regexp.MustCompile(`(?i)ad|advertisement|banner|sidebar|promo`)
)

// Parse extracts a page already in memory. When the heuristic body does not
// pass the quality gate, readability's article text is tried before
// rejecting the page.
func Parse(locator string, raw []byte, fetchedAt time.Time) (*types.NormalizedContent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, types.Fail(types.ParseFailure, locator, "parse html: %v", err)
	}

	meta := readMeta(doc)
	ld := readJSONLD(doc)

	draft := types.Draft{
		Title:       pickTitle(doc, meta),
		Author:      pickAuthor(doc, meta, ld),
		PublishedAt: pickPublished(doc, meta, ld),
		Metadata: types.Metadata{
			OGTitle:       meta.ogTitle,
			OGDescription: meta.ogDescription,
			OGImage:       meta.ogImage,
		},
		Excerpt: meta.description(),
	}

	stripNoise(doc)
	draft.Body = normalize.Text(primaryContent(doc))

	content, err := normalize.Finalize(locator, draft, fetchedAt)
	if err == nil {
		return content, nil
	}

	if fallback, ok := readabilityDraft(locator, raw, draft); ok {
		if content, ferr := normalize.Finalize(locator, fallback, fetchedAt); ferr == nil {
			return content, nil
		}
	}
	return nil, err
}

func stripNoise(doc *goquery.Document) {
	doc.Find(noiseSelector).Remove()
	doc.Find("[class], [id]").Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "html", "body", "article", "main":
			return
		}
		class, _ := s.Attr("class")
		id, _ := s.Attr("id")
		if noisePattern.MatchString(class) || noisePattern.MatchString(id) {
			s.Remove()
		}
	})
}

// primaryContent picks article, then main, then the div holding the most
// paragraphs, then body.
func primaryContent(doc *goquery.Document) *goquery.Selection {
	if s := doc.Find("article").First(); s.Length() > 0 {
		return s
	}
	if s := doc.Find("main").First(); s.Length() > 0 {
		return s
	}

	var (
		best      *goquery.Selection
		bestCount int
	)
	doc.Find("div").Each(func(_ int, s *goquery.Selection) {
		if n := s.Find("p").Length(); n > bestCount {
			best, bestCount = s, n
		}
	})
	if best != nil {
		return best
	}

	if s := doc.Find("body"); s.Length() > 0 {
		return s
	}
	return doc.Selection
}

func readabilityDraft(locator string, raw []byte, base types.Draft) (types.Draft, bool) {
	u, err := url.Parse(locator)
	if err != nil {
		return base, false
	}
	article, err := readability.FromReader(bytes.NewReader(raw), u)
	if err != nil || article.TextContent == "" {
		return base, false
	}

	d := base
	d.Body = article.TextContent
	if d.Title == "" {
		d.Title = article.Title
	}
	if d.Author == "" {
		d.Author = article.Byline
	}
	if d.Excerpt == "" {
		d.Excerpt = article.Excerpt
	}
	return d, true
}
