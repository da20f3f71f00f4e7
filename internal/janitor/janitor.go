// Package janitor sweeps orphaned media work areas. The pipeline cleans
// up after itself inline; strays only appear when the process dies
// mid-send, so the sweep runs on a slow schedule and only touches
// directories past a minimum age.
package janitor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Options configures the janitor
type Options struct {
	// TempDir is the work-area root to sweep
	TempDir string

	// Schedule is a robfig/cron spec, e.g. "@every 10m"
	Schedule string

	// MaxAge is how old a work area must be before it is considered
	// orphaned. Must comfortably exceed the longest plausible send.
	MaxAge time.Duration

	Logger zerolog.Logger
}

// Janitor periodically removes orphaned work areas
type Janitor struct {
	opts   Options
	cron   *cron.Cron
	logger zerolog.Logger
}

// New creates a janitor
func New(opts Options) (*Janitor, error) {
	if opts.TempDir == "" {
		return nil, fmt.Errorf("temp dir is required")
	}
	if opts.Schedule == "" {
		opts.Schedule = "@every 10m"
	}
	if opts.MaxAge == 0 {
		opts.MaxAge = time.Hour
	}

	return &Janitor{
		opts:   opts,
		cron:   cron.New(),
		logger: opts.Logger.With().Str("module", "janitor").Logger(),
	}, nil
}

// Start schedules the sweep and runs one immediately
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc(j.opts.Schedule, func() {
		if err := j.Sweep(); err != nil {
			j.logger.Warn().Err(err).Msg("Sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", j.opts.Schedule, err)
	}

	j.cron.Start()

	// Catch leftovers from a previous run right away
	if err := j.Sweep(); err != nil {
		j.logger.Warn().Err(err).Msg("Initial sweep failed")
	}

	return nil
}

// Stop stops the schedule
func (j *Janitor) Stop() {
	j.cron.Stop()
}

// Sweep removes work areas older than MaxAge
func (j *Janitor) Sweep() error {
	entries, err := os.ReadDir(j.opts.TempDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read temp dir: %w", err)
	}

	cutoff := time.Now().Add(-j.opts.MaxAge)
	removed := 0

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(j.opts.TempDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			j.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove orphaned work area")
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logger.Info().Int("removed", removed).Msg("Orphaned work areas removed")
	}

	return nil
}
