package crawl

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVSinkWrite(t *testing.T) {
	dir := t.TempDir()
	sink := NewCSVSink(dir)
	sink.now = func() time.Time {
		return time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)
	}

	records := []Record{
		{
			Source:      "toss",
			Title:       "A headline, with a comma",
			Category:    "news",
			URL:         "https://toss.im/article/1",
			PublishedAt: date(2026, 8, 1),
			FetchedAt:   time.Date(2026, 8, 29, 10, 29, 0, 0, time.UTC),
		},
		{
			Source: "toss",
			Title:  "Undated item",
			URL:    "https://toss.im/article/2",
		},
	}

	require.NoError(t, sink.Write(context.Background(), "toss", records))

	path := filepath.Join(dir, "toss-20260829-103000.csv")
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "A headline, with a comma", rows[1][1])
	assert.Equal(t, "2026-08-01", rows[1][6])
	assert.Equal(t, "", rows[2][6])
}

func TestCSVSinkEmptyRunStillWritesFile(t *testing.T) {
	dir := t.TempDir()
	sink := NewCSVSink(dir)

	require.NoError(t, sink.Write(context.Background(), "kakao", nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "kakao-")
}

func TestCSVSinkCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	sink := NewCSVSink(dir)

	require.NoError(t, sink.Write(context.Background(), "naver", nil))

	_, err := os.Stat(dir)
	assert.NoError(t, err)
}

func TestCSVSinkCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := NewCSVSink(t.TempDir())
	assert.Error(t, sink.Write(ctx, "toss", nil))
}
