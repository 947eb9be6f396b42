package sites

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kakaoListHTML = `
<html><body>
<div class="cont_news">
  <ul class="list_news">
    <li class="item_news">
      <a class="link_news" href="/page/detail/11001"></a>
      <strong class="title_news">카카오, 신규 서비스 공개</strong>
      <span class="txt_date">2026.08.12</span>
      <div class="wrap_hash"><a>#카카오</a><a>#서비스</a></div>
    </li>
    <li class="item_news">
      <a class="link_news" href="https://www.kakaocorp.com/page/detail/11002"></a>
      <strong class="title_news">2분기 실적 발표</strong>
      <span class="txt_date">2026년 8월 5일</span>
    </li>
    <li class="item_news">
      <strong class="title_news">링크 없는 항목</strong>
    </li>
  </ul>
</div>
</body></html>`

func TestParseKakaoList(t *testing.T) {
	doc := docFromHTML(t, kakaoListHTML)

	records := parseKakaoList(doc)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "kakao", first.Source)
	assert.Equal(t, "카카오, 신규 서비스 공개", first.Title)
	assert.Equal(t, "https://www.kakaocorp.com/page/detail/11001", first.URL)
	assert.Equal(t, time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC), first.PublishedAt)
	assert.Equal(t, "#카카오 #서비스", first.Category)

	second := records[1]
	assert.Equal(t, "https://www.kakaocorp.com/page/detail/11002", second.URL)
	assert.Equal(t, time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC), second.PublishedAt)
	assert.Empty(t, second.Category)
}

func TestParseKakaoListEmpty(t *testing.T) {
	doc := docFromHTML(t, "<html><body><p>no news</p></body></html>")
	assert.Empty(t, parseKakaoList(doc))
}
