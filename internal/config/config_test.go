package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.Shell, "no shell pinned until trigger time")
	assert.True(t, cfg.ReturnAll)
	assert.False(t, cfg.StreamOutput)
	assert.Equal(t, 5000, cfg.GracePeriodMs)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromFile_Missing(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFromFile_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
shell: zsh
stream_output: true
output_line_cap: 100
log_level: debug
env:
  FOO: bar
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "zsh", cfg.Shell)
	assert.True(t, cfg.StreamOutput)
	assert.Equal(t, 100, cfg.OutputLineCap)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, map[string]string{"FOO": "bar"}, cfg.Env)
	// Untouched fields keep their defaults.
	assert.True(t, cfg.ReturnAll)
}

func TestLoadFromFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shell: [oops"), 0o600))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestLoadFromFile_InvalidLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: loud"), 0o600))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.in}
		assert.Equal(t, tt.want, cfg.SlogLevel(), "level %q", tt.in)
	}
}
