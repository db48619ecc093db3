package main

import (
	"context"
	"os"
	"shelter-finder-service/internal/app"
	"shelter-finder-service/internal/config"
	"shelter-finder-service/internal/services"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	config.Common

	SchemaOnly bool `long:"schema-only" description:"Only create the coordinate store schema"`
}

func main() {
	envErr := godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()
	if envErr != nil {
		log.Debug().Msg("No .env file found (using environment variables)")
	}

	if opts.Store.Kind == "" || opts.Store.Kind == "none" {
		log.Fatal().Msg("COORD_STORE is required (sqlite, postgres or redis)")
	}

	cfg, err := opts.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	log.Info().Str("store", opts.Store.Kind).Msg("Initializing coordinate store...")
	store, closer, err := app.OpenStore(ctx, opts.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("Store initialization failed")
	}
	defer closer.Close()
	log.Info().Msg("Schema ready.")

	if opts.SchemaOnly {
		return
	}

	provider, err := app.NewMapProvider(opts.Provider, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create map provider")
	}

	dir := app.LoadDirectory(ctx, cfg)
	if dir.LoadErr() != nil {
		log.Fatal().Msg("Cannot warm the store without a shelter directory")
	}

	log.Info().Int("locations", dir.Len()).Msg("Warming coordinate store...")
	report, err := services.WarmStore(ctx, dir, provider, store, cfg.Resolver.FanOutLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("Warm-up failed")
	}

	log.Info().
		Int("locations", report.Locations).
		Int("known", report.Known).
		Int("stored", report.Stored).
		Int("failed", report.Failed).
		Msg("Warm-up complete.")
}
