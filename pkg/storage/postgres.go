// Package storage persists crawl records in Postgres.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/entrhq/skiff/pkg/crawl"
)

const schema = `
CREATE TABLE IF NOT EXISTS crawl_records (
	id           BIGSERIAL PRIMARY KEY,
	source       TEXT NOT NULL,
	title        TEXT NOT NULL,
	category     TEXT NOT NULL DEFAULT '',
	excerpt      TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL,
	image_url    TEXT NOT NULL DEFAULT '',
	published_at DATE,
	fetched_at   TIMESTAMPTZ NOT NULL,
	UNIQUE (source, url)
);
CREATE INDEX IF NOT EXISTS crawl_records_source_published_idx
	ON crawl_records (source, published_at);
`

const upsertRecord = `
INSERT INTO crawl_records (source, title, category, excerpt, url, image_url, published_at, fetched_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (source, url) DO UPDATE SET
	title        = EXCLUDED.title,
	category     = EXCLUDED.category,
	excerpt      = EXCLUDED.excerpt,
	image_url    = EXCLUDED.image_url,
	published_at = EXCLUDED.published_at,
	fetched_at   = EXCLUDED.fetched_at
`

// Store wraps a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against the DSN and bootstraps the schema.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrapping schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Write implements crawl.Sink: records upsert on (source, url) so re-runs
// refresh rather than duplicate.
func (s *Store) Write(ctx context.Context, source string, records []crawl.Record) error {
	for _, record := range records {
		var published *time.Time
		if !record.PublishedAt.IsZero() {
			published = &record.PublishedAt
		}
		_, err := s.pool.Exec(ctx, upsertRecord,
			source,
			record.Title,
			record.Category,
			record.Excerpt,
			record.URL,
			record.ImageURL,
			published,
			record.FetchedAt,
		)
		if err != nil {
			return fmt.Errorf("upserting %s: %w", record.URL, err)
		}
	}
	return nil
}

// BySource returns records for one source published inside [start, end),
// newest first.
func (s *Store) BySource(ctx context.Context, source string, start, end time.Time) ([]crawl.Record, error) {
	rows, err := s.pool.Query(ctx, `
SELECT source, title, category, excerpt, url, image_url, published_at, fetched_at
FROM crawl_records
WHERE source = $1 AND published_at >= $2 AND published_at < $3
ORDER BY published_at DESC`,
		source, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []crawl.Record
	for rows.Next() {
		var record crawl.Record
		var published *time.Time
		if err := rows.Scan(
			&record.Source,
			&record.Title,
			&record.Category,
			&record.Excerpt,
			&record.URL,
			&record.ImageURL,
			&published,
			&record.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		if published != nil {
			record.PublishedAt = *published
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Prune deletes records published before the cutoff, plus records with no
// publication date fetched before it. Returns how many rows went away.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
DELETE FROM crawl_records
WHERE (published_at IS NOT NULL AND published_at < $1)
   OR (published_at IS NULL AND fetched_at < $1)`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning records: %w", err)
	}
	return tag.RowsAffected(), nil
}
