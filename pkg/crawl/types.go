// Package crawl runs site crawlers against the browser session runtime and
// routes the records they produce to output sinks.
package crawl

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/entrhq/skiff/pkg/browser"
)

// Record is one scraped article or posting.
type Record struct {
	// Source is the crawler that produced the record
	Source string `json:"source"`

	// Title is the article headline
	Title string `json:"title"`

	// Category is the site's own section label, when present
	Category string `json:"category,omitempty"`

	// Excerpt is the list-page teaser text, when present
	Excerpt string `json:"excerpt,omitempty"`

	// URL is the canonical article link
	URL string `json:"url"`

	// ImageURL is the article's og:image, when present
	ImageURL string `json:"image_url,omitempty"`

	// PublishedAt is the normalized publication date; zero when the site
	// exposes none
	PublishedAt time.Time `json:"published_at,omitempty"`

	// FetchedAt is when the crawler saw the record
	FetchedAt time.Time `json:"fetched_at"`
}

// Env is what a crawler gets to work with for one run.
type Env struct {
	// Runtime executes browser commands
	Runtime *browser.Manager

	// Pages are the list pages to visit, in order
	Pages []int

	// Log is scoped to the crawler
	Log zerolog.Logger
}

// Crawler is one named unit of scraping work.
type Crawler interface {
	// Name identifies the crawler for selection, logs, and record sources
	Name() string

	// Crawl drives a browser session and returns the records it found
	Crawl(ctx context.Context, env *Env) ([]Record, error)
}

// Sink receives the records of one crawler run.
type Sink interface {
	Write(ctx context.Context, source string, records []Record) error
}

// ParsePages expands a page range expression: "1-3" is a span, "1,2,5" an
// explicit list, "2" a single page.
func ParsePages(expr string) ([]int, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return []int{1}, nil
	}

	if a, b, found := strings.Cut(expr, "-"); found {
		lo, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil {
			return nil, fmt.Errorf("invalid page range %q: %w", expr, err)
		}
		hi, err := strconv.Atoi(strings.TrimSpace(b))
		if err != nil {
			return nil, fmt.Errorf("invalid page range %q: %w", expr, err)
		}
		if hi < lo {
			return nil, fmt.Errorf("invalid page range %q: end before start", expr)
		}
		pages := make([]int, 0, hi-lo+1)
		for p := lo; p <= hi; p++ {
			pages = append(pages, p)
		}
		return pages, nil
	}

	if strings.Contains(expr, ",") {
		parts := strings.Split(expr, ",")
		pages := make([]int, 0, len(parts))
		for _, part := range parts {
			p, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, fmt.Errorf("invalid page list %q: %w", expr, err)
			}
			pages = append(pages, p)
		}
		return pages, nil
	}

	p, err := strconv.Atoi(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid page %q: %w", expr, err)
	}
	return []int{p}, nil
}
