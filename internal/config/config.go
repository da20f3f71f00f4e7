package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config holds the full gateway configuration
type Config struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	DataDir        string        `mapstructure:"data_dir"`
	DefaultSession string        `mapstructure:"default_session"`
	Chrome         ChromeConfig  `mapstructure:"chrome"`
	Media          MediaConfig   `mapstructure:"media"`
	Logging        LoggingConfig `mapstructure:"logging"`
	Janitor        JanitorConfig `mapstructure:"janitor"`
}

// ChromeConfig controls the headless browser sessions
type ChromeConfig struct {
	// Path overrides browser discovery; empty lets the launcher decide
	Path     string `mapstructure:"path"`
	Headless bool   `mapstructure:"headless"`
}

// MediaConfig controls the outbound media pipeline
type MediaConfig struct {
	MaxSizeMB       float64       `mapstructure:"max_size_mb"`
	FFmpegCRF       int           `mapstructure:"ffmpeg_crf"`
	FFmpegPreset    string        `mapstructure:"ffmpeg_preset"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
	Pretty  bool   `mapstructure:"pretty"`
}

// JanitorConfig controls the orphaned work-area sweep
type JanitorConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Schedule string        `mapstructure:"schedule"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Host:           "0.0.0.0",
		Port:           3000,
		DefaultSession: "main-session",
		Chrome: ChromeConfig{
			Headless: true,
		},
		Media: MediaConfig{
			MaxSizeMB:       16,
			FFmpegCRF:       28,
			FFmpegPreset:    "veryfast",
			DownloadTimeout: 2 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
		Janitor: JanitorConfig{
			Enabled:  true,
			Schedule: "@every 10m",
			MaxAge:   time.Hour,
		},
	}
}

// AuthDir returns the root directory for per-user authentication stores
func (c *Config) AuthDir() string {
	return filepath.Join(c.DataDir, "auth")
}

// TempDir returns the root directory for per-send work areas
func (c *Config) TempDir() string {
	return filepath.Join(c.DataDir, "tmp")
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Media.MaxSizeMB <= 0 {
		return fmt.Errorf("max_size_mb must be positive, got %v", c.Media.MaxSizeMB)
	}
	if c.Media.FFmpegCRF < 0 || c.Media.FFmpegCRF > 51 {
		return fmt.Errorf("ffmpeg_crf must be between 0 and 51, got %d", c.Media.FFmpegCRF)
	}
	if c.DefaultSession == "" {
		return fmt.Errorf("default_session must not be empty")
	}
	return nil
}
