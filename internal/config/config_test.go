package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "main-session", cfg.DefaultSession)
	assert.True(t, cfg.Chrome.Headless)
	assert.Equal(t, float64(16), cfg.Media.MaxSizeMB)
	assert.Equal(t, 28, cfg.Media.FFmpegCRF)
	assert.Equal(t, "veryfast", cfg.Media.FFmpegPreset)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Dirs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/var/lib/wagate"

	assert.Equal(t, filepath.Join("/var/lib/wagate", "auth"), cfg.AuthDir())
	assert.Equal(t, filepath.Join("/var/lib/wagate", "tmp"), cfg.TempDir())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		shouldErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero port", func(c *Config) { c.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Port = 70000 }, true},
		{"negative media cap", func(c *Config) { c.Media.MaxSizeMB = -1 }, true},
		{"crf out of range", func(c *Config) { c.Media.FFmpegCRF = 99 }, true},
		{"empty default session", func(c *Config) { c.DefaultSession = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "nope.json"))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Port)
	assert.NotEmpty(t, cfg.DataDir)
	assert.NotEmpty(t, cfg.Logging.File)
}

func TestLoader_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wagate.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"port": 8080,
		"data_dir": "`+dir+`",
		"media": {"max_size_mb": 32, "ffmpeg_crf": 23}
	}`), 0644))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, float64(32), cfg.Media.MaxSizeMB)
	assert.Equal(t, 23, cfg.Media.FFmpegCRF)

	// Untouched fields keep defaults
	assert.Equal(t, "veryfast", cfg.Media.FFmpegPreset)
	assert.Equal(t, "main-session", cfg.DefaultSession)
}

func TestLoader_InvalidFileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wagate.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port": -1}`), 0644))

	_, err := NewLoader(path).Load()
	assert.Error(t, err)
}

func TestLoader_EnvOverride(t *testing.T) {
	t.Setenv("WAGATE_PORT", "4455")
	t.Setenv("WAGATE_FFMPEG_PRESET", "slow")

	loader := NewLoader(filepath.Join(t.TempDir(), "nope.json"))
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 4455, cfg.Port)
	assert.Equal(t, "slow", cfg.Media.FFmpegPreset)
}
