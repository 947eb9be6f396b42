package sites

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/entrhq/skiff/pkg/crawl"
)

const (
	kakaoBase    = "https://www.kakaocorp.com"
	kakaoListURL = kakaoBase + "/page/presskit/press-release"
)

// Kakao crawls the Kakao press-release list. Titles, dates, and hashtags
// all live on the list page, so no detail visits are needed.
type Kakao struct{}

// NewKakao creates the kakao crawler.
func NewKakao() *Kakao { return &Kakao{} }

func (k *Kakao) Name() string { return "kakao" }

func (k *Kakao) Crawl(ctx context.Context, env *crawl.Env) ([]crawl.Record, error) {
	return withSession(ctx, env, func(sessionID string) ([]crawl.Record, error) {
		var records []crawl.Record

		for _, page := range env.Pages {
			pageURL := kakaoListURL
			if page > 1 {
				pageURL = fmt.Sprintf("%s?page=%d", kakaoListURL, page)
			}

			doc, err := fetchDoc(ctx, env, sessionID, pageURL, "div.cont_news ul.list_news > li.item_news")
			if err != nil {
				return nil, fmt.Errorf("page %d: %w", page, err)
			}

			pageRecords := parseKakaoList(doc)
			env.Log.Debug().Int("page", page).Int("items", len(pageRecords)).Msg("list parsed")
			records = append(records, pageRecords...)
		}

		return dedupeByURL(records), nil
	})
}

// parseKakaoList extracts press releases from one list page.
func parseKakaoList(doc *goquery.Document) []crawl.Record {
	now := time.Now()
	var records []crawl.Record

	doc.Find("div.cont_news ul.list_news > li.item_news").Each(func(_ int, li *goquery.Selection) {
		link := li.Find("a.link_news").First()
		href, _ := link.Attr("href")
		articleURL := absURL(href, kakaoBase)
		if articleURL == "" {
			return
		}

		title := cleanText(li.Find(".title_news").First().Text())
		if title == "" {
			return
		}

		record := crawl.Record{
			Source:    "kakao",
			Title:     title,
			URL:       articleURL,
			FetchedAt: now,
		}

		if dateText := cleanText(li.Find(".txt_date").First().Text()); dateText != "" {
			if published, ok := crawl.NormalizeDate(dateText); ok {
				record.PublishedAt = published
			}
		}

		// Hashtags stand in for a category label.
		var tags []string
		li.Find(".wrap_hash a, .wrap_hash span").Each(func(_ int, tag *goquery.Selection) {
			if text := cleanText(tag.Text()); text != "" {
				tags = append(tags, text)
			}
		})
		record.Category = strings.Join(tags, " ")

		records = append(records, record)
	})

	return records
}
