package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), "level %q", tt.in)
	}
}

func TestNewWithFileOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	logger, err := New(Config{Level: "debug", Dir: dir, MaxSizeMB: 1})
	require.NoError(t, err)

	logger.Info().Str("component", "test").Msg("hello")

	data, err := os.ReadFile(filepath.Join(dir, "skiff.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"test"`)
	assert.Contains(t, string(data), "hello")
}

func TestNewWithoutWritersFallsBack(t *testing.T) {
	logger, err := New(Config{Level: "info"})
	require.NoError(t, err)

	// Must not panic even with no configured outputs.
	logger.Warn().Msg("fallback")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
	assert.Empty(t, cfg.Dir)
}
