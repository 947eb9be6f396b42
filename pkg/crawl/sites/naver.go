package sites

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/entrhq/skiff/pkg/crawl"
)

const (
	naverBase     = "https://fficial.naver.com"
	naverListPath = "/contentsAll"
)

// naverURLDateRe recovers a publication date embedded in an article path,
// e.g. /content/2024/06/12/slug.
var naverURLDateRe = regexp.MustCompile(`/(20\d{2})[./-]?(\d{2})[./-]?(\d{2})(?:/|$)`)

// Naver crawls the Naver official content list. The list rarely shows
// dates; most are recovered from the article URL itself.
type Naver struct{}

// NewNaver creates the naver crawler.
func NewNaver() *Naver { return &Naver{} }

func (n *Naver) Name() string { return "naver" }

func (n *Naver) Crawl(ctx context.Context, env *crawl.Env) ([]crawl.Record, error) {
	return withSession(ctx, env, func(sessionID string) ([]crawl.Record, error) {
		var records []crawl.Record

		for _, page := range env.Pages {
			pageURL := naverBase + naverListPath
			if page > 1 {
				pageURL = fmt.Sprintf("%s%s?pageNumber=%d", naverBase, naverListPath, page)
			}

			doc, err := fetchDoc(ctx, env, sessionID, pageURL, "ul.content_list > li.content_item")
			if err != nil {
				return nil, fmt.Errorf("page %d: %w", page, err)
			}

			pageRecords := parseNaverList(doc)
			env.Log.Debug().Int("page", page).Int("items", len(pageRecords)).Msg("list parsed")
			records = append(records, pageRecords...)
		}

		return dedupeByURL(records), nil
	})
}

// parseNaverList extracts content items from one list page.
func parseNaverList(doc *goquery.Document) []crawl.Record {
	now := time.Now()
	var records []crawl.Record

	doc.Find("div.content_inner div.section_all_content ul.content_list > li.content_item").
		Each(func(_ int, li *goquery.Selection) {
			link := li.Find("a.content_link").First()
			href, _ := link.Attr("href")
			articleURL := absURL(href, naverBase)
			if articleURL == "" {
				return
			}

			title := cleanText(li.Find(".text_area .item_title").First().Text())
			if title == "" {
				return
			}

			record := crawl.Record{
				Source:    "naver",
				Title:     title,
				Excerpt:   cleanText(li.Find(".text_area .item_title_desc").First().Text()),
				URL:       articleURL,
				FetchedAt: now,
			}

			var labels []string
			li.Find(".label_list .label_link").Each(func(_ int, label *goquery.Selection) {
				if text := cleanText(label.Text()); text != "" {
					labels = append(labels, text)
				}
			})
			record.Category = strings.Join(labels, " ")

			if published, ok := naverDateFromURL(articleURL); ok {
				record.PublishedAt = published
			}

			records = append(records, record)
		})

	return records
}

// naverDateFromURL pulls a yyyy/mm/dd segment out of an article path.
func naverDateFromURL(articleURL string) (time.Time, bool) {
	parsed, err := url.Parse(articleURL)
	if err != nil {
		return time.Time{}, false
	}
	m := naverURLDateRe.FindStringSubmatch(parsed.Path)
	if m == nil {
		return time.Time{}, false
	}
	return crawl.NormalizeDate(fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3]))
}
