package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"shelter-finder-service/assets"
	"shelter-finder-service/internal/api"
	"shelter-finder-service/internal/app"
	"shelter-finder-service/internal/config"
	"shelter-finder-service/internal/services"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	config.Common

	Addr string `short:"a" long:"addr" env:"LISTEN_ADDRESS" description:"Address to listen on" default:"0.0.0.0"`
	Port int    `short:"p" long:"port" env:"LISTEN_PORT"    description:"Port to listen on"    default:"8080"`
}

// main is the application composition root.
// It wires concrete adapters (map provider, coordinate store) behind ports and starts the HTTP server.
func main() {
	// .env must be loaded before flags so its values feed the env defaults.
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

	cfg, err := opts.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	defaultMode, err := cfg.DefaultMode()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid default mode")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := app.NewMapProvider(opts.Provider, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create map provider")
	}

	store, storeCloser, err := app.OpenStore(ctx, opts.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open coordinate store")
	}
	defer storeCloser.Close()

	// The directory is loaded once; a failure leaves it empty and every
	// session starts with the load error displayed.
	dir := app.LoadDirectory(ctx, cfg)

	resolver := services.NewResolver(dir, provider, provider, store, cfg.ResolverConfig())

	page, err := assets.IndexHTML()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to render page shell")
	}

	router := api.NewRouter(dir, resolver, defaultMode, page)

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	// Timeouts are tuned for cold-store resolutions (one geocode per shelter).
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	log.Info().
		Str("addr", listenAddr).
		Str("provider", opts.Provider.Name).
		Str("store", opts.Store.Kind).
		Int("shelters", dir.Len()).
		Str("default_mode", defaultMode.String()).
		Msg("Server listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}
}
