package sites

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/skiff/pkg/crawl"
)

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

const tossListHTML = `
<html><body>
<ul>
  <li>
    <a href="/tossfeed/article/pay-launch">
      <span>프로덕트</span>
      <h4>토스페이 출시 소식</h4>
      <p>새로운 결제 경험을 소개합니다</p>
      <time>2026.8.3</time>
    </a>
  </li>
  <li>
    <a href="/tossfeed/article/culture-story">
      <h4>팀 문화 이야기</h4>
      <p>토스팀이 일하는 방식</p>
    </a>
  </li>
  <li>
    <a href="/tossfeed/article/pay-launch">
      <h4>토스페이 출시 소식 (중복)</h4>
    </a>
  </li>
  <li>
    <a href="/somewhere/else"><h4>무관한 링크</h4></a>
  </li>
</ul>
</body></html>`

func TestParseTossList(t *testing.T) {
	doc := docFromHTML(t, tossListHTML)

	records := parseTossList(doc, tossListBase)
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, "toss", first.Source)
	assert.Equal(t, "토스페이 출시 소식", first.Title)
	assert.Equal(t, "새로운 결제 경험을 소개합니다", first.Excerpt)
	assert.Equal(t, "프로덕트", first.Category)
	assert.Equal(t, "https://toss.im/tossfeed/article/pay-launch", first.URL)
	assert.Equal(t, time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC), first.PublishedAt)
	assert.False(t, first.FetchedAt.IsZero())

	second := records[1]
	assert.True(t, second.PublishedAt.IsZero())

	// The duplicate link survives parsing; the crawler dedupes afterwards.
	deduped := dedupeByURL(records)
	assert.Len(t, deduped, 2)
}

func TestEnrichTossDetail(t *testing.T) {
	detail := `
<html><head>
  <meta property="article:published_time" content="2026-08-03T09:00:00+09:00">
  <meta property="og:image" content="/images/cover.png">
</head><body></body></html>`

	record := crawl.Record{URL: "https://toss.im/tossfeed/article/pay-launch"}
	enrichTossDetail(&record, docFromHTML(t, detail))

	assert.Equal(t, time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC), record.PublishedAt)
	assert.Equal(t, "https://toss.im/images/cover.png", record.ImageURL)
}

func TestEnrichTossDetailFallsBackToTimeElement(t *testing.T) {
	detail := `<html><body><article><time>2026년 7월 21일</time></article></body></html>`

	record := crawl.Record{URL: "https://toss.im/tossfeed/article/x"}
	enrichTossDetail(&record, docFromHTML(t, detail))

	assert.Equal(t, time.Date(2026, 7, 21, 0, 0, 0, 0, time.UTC), record.PublishedAt)
}

func TestNeedsDetail(t *testing.T) {
	dated := crawl.Record{PublishedAt: time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)}

	// A dated record still needs the detail page until it has an image.
	assert.True(t, needsDetail(dated))

	dated.ImageURL = "https://toss.im/images/cover.png"
	assert.False(t, needsDetail(dated))

	assert.True(t, needsDetail(crawl.Record{ImageURL: "https://toss.im/images/cover.png"}))
}

func TestTossListURL(t *testing.T) {
	assert.Equal(t, tossListBase, tossListURL(1))
	assert.Equal(t, tossListBase+"?page=2", tossListURL(2))
}
