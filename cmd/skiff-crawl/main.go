// Package main runs the batch crawl: selected site crawlers execute in
// parallel against the browser runtime, with per-crawler timeout and retry,
// and their records land in CSV files and (optionally) Postgres.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/entrhq/skiff/pkg/browser"
	"github.com/entrhq/skiff/pkg/config"
	"github.com/entrhq/skiff/pkg/crawl"
	"github.com/entrhq/skiff/pkg/crawl/sites"
	"github.com/entrhq/skiff/pkg/logging"
	"github.com/entrhq/skiff/pkg/storage"
)

// patternList collects repeatable -include/-exclude flags.
type patternList []string

func (p *patternList) String() string { return strings.Join(*p, ",") }

func (p *patternList) Set(value string) error {
	*p = append(*p, value)
	return nil
}

type cliFlags struct {
	configPath  string
	includes    patternList
	excludes    patternList
	concurrency int
	timeout     time.Duration
	retries     int
	pages       string
	outDir      string
	listOnly    bool
}

func parseFlags() cliFlags {
	var flags cliFlags
	flag.StringVar(&flags.configPath, "config", "skiff.yaml", "path to config file")
	flag.Var(&flags.includes, "include", "crawler glob to include (repeatable)")
	flag.Var(&flags.excludes, "exclude", "crawler glob to exclude (repeatable)")
	flag.IntVar(&flags.concurrency, "concurrency", 0, "crawlers to run in parallel (overrides config)")
	flag.DurationVar(&flags.timeout, "timeout", 0, "per-crawler timeout (overrides config)")
	flag.IntVar(&flags.retries, "retries", -1, "retries per failed crawler (overrides config)")
	flag.StringVar(&flags.pages, "pages", "", "list page range, e.g. 1-3 (overrides config)")
	flag.StringVar(&flags.outDir, "outdir", "", "CSV output directory (overrides config)")
	flag.BoolVar(&flags.listOnly, "list", false, "list registered crawlers and exit")
	flag.Parse()
	return flags
}

func main() {
	flags := parseFlags()

	if flags.listOnly {
		registry := buildRegistry()
		for _, name := range registry.Names() {
			fmt.Println(name)
		}
		return
	}

	if err := run(flags); err != nil {
		fmt.Fprintf(os.Stderr, "skiff-crawl: %v\n", err)
		os.Exit(1)
	}
}

func buildRegistry() *crawl.Registry {
	registry := crawl.NewRegistry()
	for _, crawler := range sites.All() {
		if err := registry.Register(crawler); err != nil {
			panic(err)
		}
	}
	return registry
}

func run(flags cliFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	applyOverrides(cfg, flags)

	log, err := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Dir:        cfg.Logging.Dir,
		MaxSizeMB:  100,
		MaxBackups: 3,
		Console:    cfg.Logging.Console,
	})
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := buildRegistry()
	crawlers, err := registry.Select(cfg.Crawl.Include, cfg.Crawl.Exclude)
	if err != nil {
		return err
	}
	if len(crawlers) == 0 {
		return fmt.Errorf("no crawlers matched (registered: %s)", strings.Join(registry.Names(), ", "))
	}

	pages, err := crawl.ParsePages(cfg.Crawl.Pages)
	if err != nil {
		return err
	}

	// The runtime needs headroom so parallel crawlers never fight over the
	// session cap.
	runtime := browser.NewManager(browser.ManagerOptions{
		MaxSessions:    cfg.Crawl.Concurrency + 1,
		IdleTimeout:    cfg.Browser.IdleTimeout.Std(),
		DefaultTimeout: cfg.Browser.DefaultTimeoutMS,
		BrowsersPath:   cfg.Browser.BrowsersPath,
		SkipInstall:    cfg.Browser.SkipInstall,
		Logger:         log.With().Str("component", "browser").Logger(),
	})
	if err := runtime.Start(); err != nil {
		return err
	}
	defer func() {
		if err := runtime.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("runtime shutdown failed")
		}
	}()

	sinks := []crawl.Sink{crawl.NewCSVSink(cfg.Crawl.OutDir)}
	if cfg.Storage.PostgresDSN != "" {
		store, err := storage.Connect(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		sinks = append(sinks, store)
	}
	if cfg.Upload.APIBase != "" {
		sinks = append(sinks, crawl.NewUploadSink(crawl.UploadConfig{
			APIBase: cfg.Upload.APIBase,
			Prefix:  cfg.Upload.Prefix,
			Auth:    cfg.Upload.Auth,
		}))
	}

	var filter *crawl.WindowFilter
	if cfg.Crawl.WindowMonths > 0 {
		location := time.UTC
		if cfg.Crawl.Timezone != "" {
			location, err = time.LoadLocation(cfg.Crawl.Timezone)
			if err != nil {
				return fmt.Errorf("loading timezone: %w", err)
			}
		}
		filter = &crawl.WindowFilter{Months: cfg.Crawl.WindowMonths, Location: location}
	}

	runner := crawl.NewRunner(crawl.RunnerOptions{
		Concurrency: cfg.Crawl.Concurrency,
		Timeout:     cfg.Crawl.Timeout.Std(),
		Retries:     cfg.Crawl.Retries,
		Filter:      filter,
		Log:         log.With().Str("component", "runner").Logger(),
	}, sinks...)

	names := make([]string, len(crawlers))
	for i, crawler := range crawlers {
		names[i] = crawler.Name()
	}
	log.Info().Strs("crawlers", names).Ints("pages", pages).Msg("crawl starting")

	outcomes, runErr := runner.Run(ctx, crawlers, &crawl.Env{Runtime: runtime, Pages: pages})

	printSummary(outcomes)
	return runErr
}

func applyOverrides(cfg *config.Config, flags cliFlags) {
	if len(flags.includes) > 0 {
		cfg.Crawl.Include = flags.includes
	}
	if len(flags.excludes) > 0 {
		cfg.Crawl.Exclude = flags.excludes
	}
	if flags.concurrency > 0 {
		cfg.Crawl.Concurrency = flags.concurrency
	}
	if flags.timeout > 0 {
		cfg.Crawl.Timeout = config.Duration(flags.timeout)
	}
	if flags.retries >= 0 {
		cfg.Crawl.Retries = flags.retries
	}
	if flags.pages != "" {
		cfg.Crawl.Pages = flags.pages
	}
	if flags.outDir != "" {
		cfg.Crawl.OutDir = flags.outDir
	}
}

func printSummary(outcomes []crawl.Outcome) {
	fmt.Println("\nSUMMARY")
	for _, outcome := range outcomes {
		status := "OK"
		if outcome.Err != nil {
			status = fmt.Sprintf("FAIL (%v)", outcome.Err)
		}
		fmt.Printf("  %-12s records=%-4d attempts=%d elapsed=%s %s\n",
			outcome.Crawler, outcome.Records, outcome.Attempts,
			outcome.Elapsed.Round(time.Millisecond), status)
	}
}
