// Package app assembles the adapters selected by the process options.
// Both commands share it so the server and dbtool see the same wiring.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"shelter-finder-service/internal/adapters/cache"
	"shelter-finder-service/internal/adapters/directory"
	"shelter-finder-service/internal/adapters/mapsapi"
	"shelter-finder-service/internal/config"
	"shelter-finder-service/internal/platform/db"
	"shelter-finder-service/internal/ports"
	"shelter-finder-service/internal/services"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// MapProvider geocodes addresses and estimates travel between coordinates.
type MapProvider interface {
	ports.Geocoder
	ports.TravelEstimator
}

// NewMapProvider builds the provider named in the options.
func NewMapProvider(p config.Provider, cfg *config.Config) (MapProvider, error) {
	switch strings.ToLower(p.Name) {
	case "", "google":
		provider, err := mapsapi.NewGoogleProvider(p.GoogleKey, providerOptions(cfg, cfg.Google))
		if err != nil {
			return nil, fmt.Errorf("new map provider: %w", err)
		}
		return provider, nil
	case "ors":
		provider, err := mapsapi.NewORSProvider(p.ORSKey, providerOptions(cfg, cfg.ORS))
		if err != nil {
			return nil, fmt.Errorf("new map provider: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("new map provider: unknown provider %q", p.Name)
	}
}

func providerOptions(cfg *config.Config, ep config.Endpoint) mapsapi.Options {
	return mapsapi.Options{
		BaseURL:       ep.BaseURL,
		Region:        cfg.Region,
		Timeout:       ep.Timeout,
		RetryAttempts: cfg.RetryAttempts,
		RetryBackoff:  cfg.RetryBackoff,
	}
}

// OpenStore opens the shelter coordinate store named in the options and
// makes sure its schema exists. A nil store with a nil error means the
// store is disabled. The returned closer is never nil.
func OpenStore(ctx context.Context, s config.Store) (ports.CoordinateStore, io.Closer, error) {
	switch strings.ToLower(s.Kind) {
	case "", "none":
		return nil, nopCloser{}, nil

	case "sqlite":
		conn, err := db.OpenSQLite(s.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		if err := initSchema(ctx, conn, cache.DialectSQLite); err != nil {
			return nil, nil, err
		}
		return cache.NewSqliteGeocodeCache(conn), conn, nil

	case "postgres":
		if strings.TrimSpace(s.DatabaseURL) == "" {
			return nil, nil, fmt.Errorf("open store: DATABASE_URL is required for the postgres store")
		}
		conn, err := db.Open(s.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		if err := initSchema(ctx, conn, cache.DialectPostgres); err != nil {
			return nil, nil, err
		}
		return cache.NewSQLGeocodeCache(conn), conn, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: s.RedisAddr, Password: s.RedisPass, DB: s.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("open store: ping redis %s: %w", s.RedisAddr, err)
		}
		return cache.NewRedisGeocodeCache(client, ""), client, nil

	default:
		return nil, nil, fmt.Errorf("open store: unknown store %q", s.Kind)
	}
}

func initSchema(ctx context.Context, conn *sql.DB, dialect cache.Dialect) error {
	if err := cache.InitSchema(ctx, conn, dialect); err != nil {
		conn.Close()
		return fmt.Errorf("open store: %w", err)
	}
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// LoadDirectory loads the shelter directory from the configured location.
// A failed load is logged and yields an empty directory carrying the error.
func LoadDirectory(ctx context.Context, cfg *config.Config) *services.Directory {
	src := directory.NewSource(cfg.Directory.Location, cfg.Directory.Timeout)

	dir, err := services.LoadDirectory(ctx, src)
	if err != nil {
		log.Error().Err(err).Str("source", src.Describe()).Msg("shelter directory unavailable")
		return dir
	}

	log.Info().
		Str("source", src.Describe()).
		Int("locations", dir.Len()).
		Msg("shelter directory loaded")
	return dir
}
