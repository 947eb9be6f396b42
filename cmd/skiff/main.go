// Package main runs the Skiff service: the browser session runtime behind
// its HTTP control surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/entrhq/skiff/pkg/browser"
	"github.com/entrhq/skiff/pkg/config"
	"github.com/entrhq/skiff/pkg/logging"
	"github.com/entrhq/skiff/pkg/server"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "skiff.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("skiff v%s\n", version)
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "skiff: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

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

	runtime := browser.NewManager(browser.ManagerOptions{
		MaxSessions:    cfg.Browser.MaxSessions,
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

	go runtime.RunJanitor(ctx, cfg.Browser.IdleTimeout.Std()/2)

	srv := server.New(
		server.Config{
			Addr:           cfg.Server.Addr,
			DefaultSession: browser.SessionOptions{Headless: cfg.Browser.Headless},
		},
		runtime,
		log.With().Str("component", "server").Logger(),
	)

	log.Info().Str("version", version).Str("addr", cfg.Server.Addr).Msg("skiff starting")
	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	log.Info().Msg("skiff stopped")
	return nil
}
