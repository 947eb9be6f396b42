// Package config loads Skiff configuration from a YAML file with
// environment variable overrides. A missing file yields defaults, so the
// binaries run unconfigured inside the container image.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "90s" parse directly.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration for both binaries.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Browser BrowserConfig `yaml:"browser"`
	Crawl   CrawlConfig   `yaml:"crawl"`
	Storage StorageConfig `yaml:"storage"`
	Upload  UploadConfig  `yaml:"upload"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP control surface.
type ServerConfig struct {
	// Addr is the listen address
	Addr string `yaml:"addr"`
}

// BrowserConfig configures the session runtime.
type BrowserConfig struct {
	// Headless is the default for sessions that don't specify it
	Headless bool `yaml:"headless"`

	// MaxSessions caps concurrent browser processes
	MaxSessions int `yaml:"max_sessions"`

	// IdleTimeout is how long an unused session lives
	IdleTimeout Duration `yaml:"idle_timeout"`

	// DefaultTimeoutMS is the per-command timeout in milliseconds
	DefaultTimeoutMS float64 `yaml:"default_timeout_ms"`

	// BrowsersPath points Playwright at pre-installed browser binaries
	BrowsersPath string `yaml:"browsers_path"`

	// SkipInstall skips browser download on startup
	SkipInstall bool `yaml:"skip_install"`
}

// CrawlConfig configures the batch crawl runner.
type CrawlConfig struct {
	// Include selects crawlers by glob pattern; empty selects all
	Include []string `yaml:"include"`

	// Exclude removes crawlers by glob pattern
	Exclude []string `yaml:"exclude"`

	// Concurrency is how many crawlers run in parallel
	Concurrency int `yaml:"concurrency"`

	// Timeout bounds one crawler attempt
	Timeout Duration `yaml:"timeout"`

	// Retries is how many times a failed crawler is retried
	Retries int `yaml:"retries"`

	// Pages is the list-page range, e.g. "1-3" or "1,2,5"
	Pages string `yaml:"pages"`

	// OutDir is where CSV output lands
	OutDir string `yaml:"outdir"`

	// WindowMonths is the trailing publication window kept by the filter
	WindowMonths int `yaml:"window_months"`

	// Timezone anchors the publication window
	Timezone string `yaml:"timezone"`
}

// StorageConfig configures record persistence.
type StorageConfig struct {
	// PostgresDSN enables the Postgres sink when non-empty
	PostgresDSN string `yaml:"postgres_dsn"`
}

// UploadConfig configures the presigned-URL upload of crawl output.
type UploadConfig struct {
	// APIBase enables the upload sink when non-empty
	APIBase string `yaml:"api_base"`

	// Prefix is the root bucket directory; runs upload under
	// prefix/<source>/<timestamp>
	Prefix string `yaml:"prefix"`

	// Auth is sent as the Authorization header when non-empty
	Auth string `yaml:"auth"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Dir     string `yaml:"dir"`
	Console bool   `yaml:"console"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8433",
		},
		Browser: BrowserConfig{
			Headless:         true,
			MaxSessions:      5,
			IdleTimeout:      Duration(5 * time.Minute),
			DefaultTimeoutMS: 30000,
		},
		Crawl: CrawlConfig{
			Concurrency:  3,
			Timeout:      Duration(30 * time.Minute),
			Retries:      1,
			Pages:        "1-3",
			OutDir:       "/data/out",
			WindowMonths: 24,
			Timezone:     "Asia/Seoul",
		},
		Upload: UploadConfig{
			Prefix: "prod/all",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist, then applies environment overrides. A .env file in
// the working directory is honored first.
func Load(path string) (*Config, error) {
	// Missing .env is the normal case in containers.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers environment variables over file values. The names match
// the container image contract.
func (c *Config) applyEnv() {
	if v := os.Getenv("SKIFF_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("PLAYWRIGHT_BROWSERS_PATH"); v != "" {
		c.Browser.BrowsersPath = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("OUTDIR"); v != "" {
		c.Crawl.OutDir = v
	}
	if v := os.Getenv("PAGES"); v != "" {
		c.Crawl.Pages = v
	}
	if v := os.Getenv("PRESIGN_API"); v != "" {
		c.Upload.APIBase = v
	}
	if v := os.Getenv("NCP_DEFAULT_DIR"); v != "" {
		c.Upload.Prefix = v
	}
	if v := os.Getenv("PRESIGN_AUTH"); v != "" {
		c.Upload.Auth = v
	}
}

func (c *Config) validate() error {
	if c.Browser.MaxSessions <= 0 {
		return fmt.Errorf("browser.max_sessions must be positive, got %d", c.Browser.MaxSessions)
	}
	if c.Crawl.Concurrency <= 0 {
		return fmt.Errorf("crawl.concurrency must be positive, got %d", c.Crawl.Concurrency)
	}
	if c.Crawl.Retries < 0 {
		return fmt.Errorf("crawl.retries must not be negative, got %d", c.Crawl.Retries)
	}
	if c.Crawl.Timezone != "" {
		if _, err := time.LoadLocation(c.Crawl.Timezone); err != nil {
			return fmt.Errorf("crawl.timezone: %w", err)
		}
	}
	return nil
}
