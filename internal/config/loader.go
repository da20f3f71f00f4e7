package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load loads the configuration from file and environment
func (l *Loader) Load() (*Config, error) {
	configPath := l.configPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".wagate", "wagate.json")
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.SetEnvPrefix("WAGATE")
	v.AutomaticEnv()

	cfg := DefaultConfig()

	// Config file is optional; environment alone is enough to run
	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	l.applyEnvOverrides(v, cfg)

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".wagate")
	}

	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "wagate.log")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides maps flat environment variables onto the config.
// AutomaticEnv only covers keys viper already knows about, so the
// commonly used knobs are bound explicitly.
func (l *Loader) applyEnvOverrides(v *viper.Viper, cfg *Config) {
	if v.IsSet("port") {
		cfg.Port = v.GetInt("port")
	}
	if v.IsSet("host") {
		cfg.Host = v.GetString("host")
	}
	if v.IsSet("data_dir") {
		cfg.DataDir = v.GetString("data_dir")
	}
	if v.IsSet("chrome_path") {
		cfg.Chrome.Path = v.GetString("chrome_path")
	}
	if v.IsSet("ffmpeg_crf") {
		cfg.Media.FFmpegCRF = v.GetInt("ffmpeg_crf")
	}
	if v.IsSet("ffmpeg_preset") {
		cfg.Media.FFmpegPreset = v.GetString("ffmpeg_preset")
	}
	if v.IsSet("max_size_mb") {
		cfg.Media.MaxSizeMB = v.GetFloat64("max_size_mb")
	}
	if v.IsSet("log_level") {
		cfg.Logging.Level = v.GetString("log_level")
	}
}
