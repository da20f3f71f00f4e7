package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harun/wagate/internal/config"
	"github.com/harun/wagate/internal/janitor"
	"github.com/harun/wagate/internal/logger"
	"github.com/harun/wagate/internal/metrics"
	"github.com/harun/wagate/internal/server"
	"github.com/harun/wagate/pkg/media"
	"github.com/harun/wagate/pkg/session"
	"github.com/harun/wagate/pkg/whatsapp"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.NewLoader(*configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	lg, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Close()
	log := lg.GetZerolog()

	m := metrics.NewMetrics()

	store := session.NewStore()

	factory := whatsapp.NewFactory(whatsapp.Options{
		AuthRoot:   cfg.AuthDir(),
		ChromePath: cfg.Chrome.Path,
		Headless:   cfg.Chrome.Headless,
		Logger:     log,
	})

	sessions, err := session.NewManager(store, session.ManagerOptions{
		AuthRoot: cfg.AuthDir(),
		Factory:  factory,
		Logger:   log,
		Metrics:  m,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session manager")
	}

	pipeline, err := media.NewPipeline(sessions, media.Options{
		TempDir:         cfg.TempDir(),
		MaxSizeMB:       cfg.Media.MaxSizeMB,
		FFmpegCRF:       cfg.Media.FFmpegCRF,
		FFmpegPreset:    cfg.Media.FFmpegPreset,
		DownloadTimeout: cfg.Media.DownloadTimeout,
		Logger:          log,
		Metrics:         m,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create media pipeline")
	}

	srv, err := server.NewServer(server.Options{
		Host: cfg.Host,
		Port: cfg.Port,
	}, sessions, pipeline, m, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	var jan *janitor.Janitor
	if cfg.Janitor.Enabled {
		jan, err = janitor.New(janitor.Options{
			TempDir:  cfg.TempDir(),
			Schedule: cfg.Janitor.Schedule,
			MaxAge:   cfg.Janitor.MaxAge,
			Logger:   log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create janitor")
		}
		if err := jan.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start janitor")
		}
	}

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Gateway server failed")
		}
	}()

	// Bring the default session up in the background; a failure here is
	// recoverable through the HTTP surface later.
	go func() {
		if _, err := sessions.Init(context.Background(), cfg.DefaultSession); err != nil {
			log.Error().Err(err).Str("user_id", cfg.DefaultSession).Msg("Failed to initialize default session")
			return
		}
		log.Info().Str("user_id", cfg.DefaultSession).Msg("Default session initialized")
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down, logging out default session")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := sessions.Logout(ctx, cfg.DefaultSession); err != nil {
		log.Warn().Err(err).Msg("Error during default session logout")
	}

	if jan != nil {
		jan.Stop()
	}
	if err := srv.Stop(); err != nil {
		log.Warn().Err(err).Msg("Error during server shutdown")
	}
}
