// Package main loads the bundled sample dataset into the ROI backend.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/roi-tracker/internal/clients/roiapi"
	"github.com/aristath/roi-tracker/internal/config"
	"github.com/aristath/roi-tracker/internal/seed"
	"github.com/aristath/roi-tracker/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	apiURL := flag.String("api-url", cfg.APIURL, "ROI backend base URL")
	flag.Parse()

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := roiapi.NewClient(*apiURL, cfg.APITimeout, log)
	result, err := seed.NewLoader(client, seed.DefaultOptions(), log).Load(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Seeding failed")
		os.Exit(1)
	}

	log.Info().
		Int("loaded", result.Loaded).
		Int("failed", result.Failed).
		Bool("deleted_existing", result.Deleted).
		Msg("Seeding finished")

	if result.Failed > 0 {
		os.Exit(1)
	}
}
