package newsletter

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"trendbot/logging"
	"trendbot/normalize"
	"trendbot/types"
)

// MaxReadMoreLinks caps follow-up links taken from one email.
const MaxReadMoreLinks = 3

var (
	excludedLink = regexp.MustCompile(`(?i)unsubscribe|preferences|view-in-browser|mailto:`)
	unsubscribe  = regexp.MustCompile(`(?i)unsubscribe`)
	chromeBlock  = regexp.MustCompile(`(?i)unsubscribe|footer|header|preheader`)
	hiddenStyle  = regexp.MustCompile(`(?i)display\s*:\s*none|visibility\s*:\s*hidden`)

	bodySelectors = []string{"article", ".content", ".post-content", ".email-content", ".newsletter-content", "#content", "main"}
)

// Extractor reads newsletters that were already received upstream.
type Extractor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logging.OrDiscard(logger)}
}

// Extract parses the email of d. It never touches the network.
func (e *Extractor) Extract(_ context.Context, d types.SourceDescriptor) (*types.NormalizedContent, error) {
	locator := Locator(d)
	if d.Email == nil {
		return nil, types.Fail(types.InvalidLocator, locator, "newsletter job without email")
	}
	content, err := Parse(locator, *d.Email, time.Now())
	if err != nil {
		return nil, err
	}
	e.logger.Debug("newsletter parsed", "locator", locator, "links", len(content.Metadata.EmailLinks))
	return content, nil
}

// Locator names a newsletter job; emails have no URL of their own.
func Locator(d types.SourceDescriptor) string {
	if d.Locator != "" {
		return d.Locator
	}
	return "newsletter:" + d.Key()
}

// Parse extracts the readable body and outbound links of an email.
func Parse(locator string, email types.Email, fetchedAt time.Time) (*types.NormalizedContent, error) {
	if strings.TrimSpace(email.HTMLBody) == "" {
		return nil, types.Fail(types.ParseFailure, locator, "email has no html body")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(email.HTMLBody))
	if err != nil {
		return nil, types.Fail(types.ParseFailure, locator, "parse email html: %v", err)
	}

	links := Links(doc)

	stripTracking(doc)
	stripChrome(doc)

	draft := types.Draft{
		Title:       strings.TrimSpace(email.Subject),
		Body:        normalize.Text(bodySelection(doc)),
		Author:      email.From,
		PublishedAt: email.Date,
		Metadata:    types.Metadata{EmailLinks: links},
	}
	return normalize.Finalize(locator, draft, fetchedAt)
}

// Links returns the distinct outbound http(s) links in document order,
// without unsubscribe, preference and view-in-browser links.
func Links(doc *goquery.Document) []string {
	var (
		out  []string
		seen = map[string]bool{}
	)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if excludedLink.MatchString(href) || excludedLink.MatchString(s.Text()) {
			return
		}
		u, err := url.Parse(href)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return
		}
		if !seen[href] {
			seen[href] = true
			out = append(out, href)
		}
	})
	return out
}

// ReadMoreLinks returns the follow-up targets of a parsed newsletter.
func ReadMoreLinks(c *types.NormalizedContent) []string {
	links := c.Metadata.EmailLinks
	if len(links) > MaxReadMoreLinks {
		links = links[:MaxReadMoreLinks]
	}
	return links
}

// stripTracking removes 1x1 and hidden images.
func stripTracking(doc *goquery.Document) {
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		w, h := s.AttrOr("width", ""), s.AttrOr("height", "")
		if w == "1" || h == "1" || w == "0" || h == "0" || hiddenStyle.MatchString(s.AttrOr("style", "")) {
			s.Remove()
		}
	})
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		if hiddenStyle.MatchString(s.AttrOr("style", "")) {
			s.Remove()
		}
	})
}

// stripChrome removes header, footer and unsubscribe blocks, including
// full-width layout tables that carry an unsubscribe link.
func stripChrome(doc *goquery.Document) {
	doc.Find("script, style, head, header, footer").Remove()

	doc.Find("[class], [id]").Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "body" {
			return
		}
		if chromeBlock.MatchString(s.AttrOr("class", "")) || chromeBlock.MatchString(s.AttrOr("id", "")) {
			s.Remove()
		}
	})

	doc.Find("table").Each(func(_ int, s *goquery.Selection) {
		if s.AttrOr("width", "") != "100%" && !strings.Contains(strings.ReplaceAll(s.AttrOr("style", ""), " ", ""), "width:100%") {
			return
		}
		// only the innermost table holding the link, so the whole layout is not dropped
		if s.Find("table").Length() > 0 {
			return
		}
		hasUnsub := false
		s.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			if unsubscribe.MatchString(a.AttrOr("href", "")) || unsubscribe.MatchString(a.Text()) {
				hasUnsub = true
				return false
			}
			return true
		})
		if hasUnsub {
			s.Remove()
		}
	})
}

func bodySelection(doc *goquery.Document) *goquery.Selection {
	for _, sel := range bodySelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 && strings.TrimSpace(s.Text()) != "" {
			return s
		}
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

	body := doc.Find("body")
	body.Find("table").Each(func(_ int, s *goquery.Selection) {
		if s.Find("td").Length() <= 1 && len(strings.Fields(s.Text())) < 5 {
			s.Remove()
		}
	})
	return body
}
