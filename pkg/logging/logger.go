// Package logging configures structured logging for Skiff components.
// Logs go to a rotated file and, optionally, a human-readable console
// writer for development.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level to emit: debug, info, warn, error
	Level string

	// Dir is where rotated log files live; empty disables file output
	Dir string

	// MaxSizeMB is the file size that triggers rotation
	MaxSizeMB int

	// MaxBackups is how many rotated files to keep
	MaxBackups int

	// Console mirrors output to stdout in console format
	Console bool
}

// DefaultConfig returns the settings used when no config file is present.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Dir:        "",
		MaxSizeMB:  100,
		MaxBackups: 3,
		Console:    true,
	}
}

// New builds a logger from the config. With neither file nor console output
// enabled it falls back to stderr so errors are never silently dropped.
func New(cfg Config) (zerolog.Logger, error) {
	var writers []io.Writer

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return zerolog.Nop(), err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, "skiff.log"),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		})
	}

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	logger := zerolog.New(io.MultiWriter(writers...)).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()

	return logger, nil
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
