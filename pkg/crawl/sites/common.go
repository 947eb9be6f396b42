// Package sites contains the site-specific crawlers. Each crawler drives a
// browser session through the runtime's command contract and parses the
// returned HTML with goquery, so list markup changes stay local to one file.
package sites

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/entrhq/skiff/pkg/browser"
	"github.com/entrhq/skiff/pkg/crawl"
)

// userAgent mirrors a desktop Chrome so list pages render their full markup.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// All returns every shipped crawler.
func All() []crawl.Crawler {
	return []crawl.Crawler{
		NewToss(),
		NewKakao(),
		NewNaver(),
	}
}

// withSession opens one session for the whole crawl and guarantees it is
// released when the work function returns.
func withSession(ctx context.Context, env *crawl.Env, fn func(sessionID string) ([]crawl.Record, error)) ([]crawl.Record, error) {
	session, err := env.Runtime.Open(ctx, browser.SessionOptions{
		Headless:  true,
		UserAgent: userAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}
	defer env.Runtime.Close(context.WithoutCancel(ctx), session.ID)

	return fn(session.ID)
}

// fetchDoc navigates the session to pageURL and parses the rendered HTML.
// When waitSelector is set the crawler waits for it first; a timeout there
// is tolerated since partial markup often still carries the list.
func fetchDoc(ctx context.Context, env *crawl.Env, sessionID, pageURL, waitSelector string) (*goquery.Document, error) {
	_, err := env.Runtime.Execute(ctx, sessionID, browser.Command{
		Kind:      browser.KindNavigate,
		URL:       pageURL,
		WaitUntil: "domcontentloaded",
	})
	if err != nil {
		return nil, err
	}

	if waitSelector != "" {
		_, err := env.Runtime.Execute(ctx, sessionID, browser.Command{
			Kind:     browser.KindWaitFor,
			Selector: waitSelector,
			Timeout:  15000,
		})
		if err != nil {
			var timeoutErr *browser.TimeoutError
			if !errors.As(err, &timeoutErr) {
				return nil, err
			}
			env.Log.Warn().Str("url", pageURL).Str("selector", waitSelector).Msg("wait timed out, parsing anyway")
		}
	}

	result, err := env.Runtime.Execute(ctx, sessionID, browser.Command{Kind: browser.KindContent})
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.Text))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pageURL, err)
	}
	return doc, nil
}

// cleanText collapses whitespace and strips non-breaking spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, " ", " ")), " ")
}

// absURL resolves a scraped href against the page it came from.
func absURL(href, pageURL string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// dedupeByURL drops records whose URL has been seen already, keeping order.
func dedupeByURL(records []crawl.Record) []crawl.Record {
	seen := make(map[string]struct{}, len(records))
	out := records[:0]
	for _, record := range records {
		if record.URL == "" {
			continue
		}
		if _, dup := seen[record.URL]; dup {
			continue
		}
		seen[record.URL] = struct{}{}
		out = append(out, record)
	}
	return out
}
