package crawl

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateRe matches the date spellings the crawled sites use: "2024.1.2",
// "2024-01-02", "2024/1/2", and the Korean "2024년 1월 2일" form.
var dateRe = regexp.MustCompile(`(20\d{2})[.\-/년]\s*(\d{1,2})[.\-/월]\s*(\d{1,2})`)

// isoLayouts are tried before the loose regex so timestamps keep nothing
// beyond the date.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// NormalizeDate parses a scraped date string into a UTC date. The boolean
// is false when no date could be recognized.
func NormalizeDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}

	m := dateRe.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// WindowFilter keeps records published inside a trailing window of whole
// months, anchored to the current month in a given location.
type WindowFilter struct {
	// Months is the trailing window length
	Months int

	// Location anchors month boundaries; nil means UTC
	Location *time.Location
}

// Bounds returns the half-open interval [start, end) of the window at the
// given instant: from the first day of the month Months ago through the end
// of the current month.
func (f WindowFilter) Bounds(now time.Time) (time.Time, time.Time) {
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	monthStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return monthStart.AddDate(0, -f.Months, 0), monthStart.AddDate(0, 1, 0)
}

// Apply drops records published outside the window. Records without a
// recognized publication date are dropped too; they cannot be placed.
func (f WindowFilter) Apply(now time.Time, records []Record) []Record {
	start, end := f.Bounds(now)

	kept := make([]Record, 0, len(records))
	for _, record := range records {
		if record.PublishedAt.IsZero() {
			continue
		}
		published := record.PublishedAt
		if !published.Before(start) && published.Before(end) {
			kept = append(kept, record)
		}
	}
	return kept
}
