package crawl

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CSVSink writes each crawler's records to a timestamped CSV file under a
// base directory, one file per run per source.
type CSVSink struct {
	dir string
	now func() time.Time
}

// NewCSVSink creates a sink rooted at dir.
func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{dir: dir, now: time.Now}
}

var csvHeader = []string{"source", "title", "category", "excerpt", "url", "image_url", "published_at", "fetched_at"}

// encodeCSV renders records as CSV, header included. Zero records yield a
// header-only document so the run itself stays visible.
func encodeCSV(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}

	for _, record := range records {
		published := ""
		if !record.PublishedAt.IsZero() {
			published = record.PublishedAt.Format("2006-01-02")
		}
		row := []string{
			record.Source,
			record.Title,
			record.Category,
			record.Excerpt,
			record.URL,
			record.ImageURL,
			published,
			record.FetchedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("writing row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write implements Sink.
func (s *CSVSink) Write(ctx context.Context, source string, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	body, err := encodeCSV(records)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("%s-%s.csv", source, s.now().UTC().Format("20060102-150405"))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
