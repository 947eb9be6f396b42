package crawl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// RunnerOptions configures a batch crawl run.
type RunnerOptions struct {
	// Concurrency is how many crawlers run at once
	Concurrency int

	// Timeout bounds one crawler attempt; 0 means no limit
	Timeout time.Duration

	// Retries is how many times a failed crawler is retried
	Retries int

	// Filter, when set, trims records before they reach the sinks
	Filter *WindowFilter

	// Log receives run progress
	Log zerolog.Logger
}

// Outcome reports how one crawler fared.
type Outcome struct {
	// Crawler is the crawler's name
	Crawler string

	// Attempts is how many times the crawler ran
	Attempts int

	// Records is how many records survived filtering
	Records int

	// Elapsed covers all attempts
	Elapsed time.Duration

	// Err is non-nil when every attempt failed
	Err error
}

// Runner executes selected crawlers in parallel with per-crawler timeout
// and retry, then fans records out to sinks.
type Runner struct {
	opts  RunnerOptions
	sinks []Sink
}

// NewRunner creates a runner writing to the given sinks.
func NewRunner(opts RunnerOptions, sinks ...Sink) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	return &Runner{opts: opts, sinks: sinks}
}

// Run executes the crawlers and returns one outcome each, ordered like the
// input. The returned error is non-nil when any crawler exhausted its
// retries; partial results still reach the sinks.
func (r *Runner) Run(ctx context.Context, crawlers []Crawler, env *Env) ([]Outcome, error) {
	outcomes := make([]Outcome, len(crawlers))

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.opts.Concurrency)

	for i, crawler := range crawlers {
		group.Go(func() error {
			outcome := r.runOne(groupCtx, crawler, env)
			mu.Lock()
			outcomes[i] = outcome
			mu.Unlock()
			// Other crawlers keep running even when one fails for good.
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return outcomes, err
	}

	failed := 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return outcomes, fmt.Errorf("%d of %d crawlers failed", failed, len(crawlers))
	}
	return outcomes, nil
}

// runOne executes a single crawler with retry and linear backoff, mirrors
// its records through the filter, and writes them to every sink.
func (r *Runner) runOne(ctx context.Context, crawler Crawler, env *Env) Outcome {
	name := crawler.Name()
	log := r.opts.Log.With().Str("crawler", name).Logger()
	crawlerEnv := &Env{Runtime: env.Runtime, Pages: env.Pages, Log: log}

	start := time.Now()
	outcome := Outcome{Crawler: name}

	var records []Record
	var lastErr error

	for attempt := 1; attempt <= r.opts.Retries+1; attempt++ {
		outcome.Attempts = attempt

		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if r.opts.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		}
		records, lastErr = crawler.Crawl(attemptCtx, crawlerEnv)
		if cancel != nil {
			cancel()
		}

		if lastErr == nil {
			break
		}
		log.Warn().Int("attempt", attempt).Err(lastErr).Msg("crawl attempt failed")

		if attempt <= r.opts.Retries {
			select {
			case <-ctx.Done():
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}

	outcome.Elapsed = time.Since(start)

	if lastErr != nil {
		outcome.Err = fmt.Errorf("crawler %s: %w", name, lastErr)
		return outcome
	}

	if r.opts.Filter != nil {
		before := len(records)
		records = r.opts.Filter.Apply(time.Now(), records)
		log.Debug().Int("before", before).Int("after", len(records)).Msg("window filter applied")
	}
	outcome.Records = len(records)

	for _, sink := range r.sinks {
		if err := sink.Write(ctx, name, records); err != nil {
			outcome.Err = fmt.Errorf("crawler %s: writing records: %w", name, err)
			return outcome
		}
	}

	log.Info().
		Int("records", len(records)).
		Int("attempts", outcome.Attempts).
		Dur("elapsed", outcome.Elapsed).
		Msg("crawl finished")
	return outcome
}
