package sites

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/entrhq/skiff/pkg/crawl"
)

const tossListBase = "https://toss.im/tossfeed/category/allabouttoss/allabouttoss"

// Toss crawls the Tossfeed article list. Articles missing a date or image
// get a detail visit for article:published_time and og:image.
type Toss struct{}

// NewToss creates the toss crawler.
func NewToss() *Toss { return &Toss{} }

func (t *Toss) Name() string { return "toss" }

func (t *Toss) Crawl(ctx context.Context, env *crawl.Env) ([]crawl.Record, error) {
	return withSession(ctx, env, func(sessionID string) ([]crawl.Record, error) {
		var records []crawl.Record

		for _, page := range env.Pages {
			pageURL := tossListURL(page)
			doc, err := fetchDoc(ctx, env, sessionID, pageURL, `a[href^="/tossfeed/article/"]`)
			if err != nil {
				return nil, fmt.Errorf("page %d: %w", page, err)
			}

			pageRecords := parseTossList(doc, pageURL)
			env.Log.Debug().Int("page", page).Int("items", len(pageRecords)).Msg("list parsed")
			records = append(records, pageRecords...)
		}

		records = dedupeByURL(records)

		// The list never carries og:image and often omits the date, so any
		// record missing either gets a detail visit.
		for i := range records {
			if !needsDetail(records[i]) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			doc, err := fetchDoc(ctx, env, sessionID, records[i].URL, "")
			if err != nil {
				env.Log.Warn().Str("url", records[i].URL).Err(err).Msg("detail fetch failed")
				continue
			}
			enrichTossDetail(&records[i], doc)
		}

		return records, nil
	})
}

// needsDetail reports whether a detail visit can still add anything to the
// record.
func needsDetail(record crawl.Record) bool {
	return record.PublishedAt.IsZero() || record.ImageURL == ""
}

func tossListURL(page int) string {
	if page <= 1 {
		return tossListBase
	}
	return fmt.Sprintf("%s?page=%d", tossListBase, page)
}

// parseTossList extracts article anchors from one Tossfeed list page.
func parseTossList(doc *goquery.Document, pageURL string) []crawl.Record {
	now := time.Now()
	var records []crawl.Record

	doc.Find(`a[href^="/tossfeed/article/"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		articleURL := absURL(href, pageURL)
		if articleURL == "" {
			return
		}

		title := cleanText(a.Find("h4").First().Text())
		if title == "" {
			return
		}

		record := crawl.Record{
			Source:    "toss",
			Title:     title,
			Excerpt:   cleanText(a.Find("p").First().Text()),
			Category:  cleanText(a.Find("span").First().Text()),
			URL:       articleURL,
			FetchedAt: now,
		}
		if dateText := cleanText(a.Find("time").First().Text()); dateText != "" {
			if published, ok := crawl.NormalizeDate(dateText); ok {
				record.PublishedAt = published
			}
		}
		records = append(records, record)
	})

	return records
}

// enrichTossDetail pulls the publication time and og:image from an article
// page into the record.
func enrichTossDetail(record *crawl.Record, doc *goquery.Document) {
	if content, ok := doc.Find(`meta[property="article:published_time"]`).Attr("content"); ok {
		if published, parsed := crawl.NormalizeDate(content); parsed {
			record.PublishedAt = published
		}
	}
	if record.PublishedAt.IsZero() {
		if dateText := cleanText(doc.Find("time").First().Text()); dateText != "" {
			if published, parsed := crawl.NormalizeDate(dateText); parsed {
				record.PublishedAt = published
			}
		}
	}
	if record.ImageURL == "" {
		if image, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
			record.ImageURL = absURL(image, record.URL)
		}
	}
}
