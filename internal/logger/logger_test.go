package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WithFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "wagate.log")

	lg, err := New(Config{
		Level:   "debug",
		File:    logFile,
		Console: false,
	})
	require.NoError(t, err)
	defer lg.Close()

	zl := lg.GetZerolog()
	zl.Info().Str("key", "value").Msg("hello")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), `"key":"value"`)
}

func TestNew_InvalidLevelFallsBack(t *testing.T) {
	lg, err := New(Config{Level: "nonsense", Console: true})
	require.NoError(t, err)
	defer lg.Close()

	assert.Equal(t, zerolog.InfoLevel, lg.GetZerolog().GetLevel())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
}
