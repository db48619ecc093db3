// Package config handles the domain configuration file and the process
// options shared by the commands.
package config

import (
	"fmt"
	"os"
	"shelter-finder-service/internal/domain"
	"shelter-finder-service/internal/platform/logger"
	"shelter-finder-service/internal/services"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root of the YAML configuration file.
type Config struct {
	Directory Directory `yaml:"directory"`
	Google    Endpoint  `yaml:"google"`
	ORS       Endpoint  `yaml:"ors"`
	Resolver  Resolver  `yaml:"resolver"`

	// Region biases geocoding toward one country (ISO 3166-1 alpha-2).
	Region string `yaml:"region,omitempty"`
	// RetryAttempts is the total number of attempts per provider call.
	RetryAttempts int           `yaml:"retry_attempts,omitempty"`
	RetryBackoff  time.Duration `yaml:"retry_backoff,omitempty"`
}

type Directory struct {
	// Location is an http(s) URL or a local path of the KML document.
	Location string        `yaml:"location"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

type Endpoint struct {
	BaseURL string        `yaml:"base_url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

type Resolver struct {
	FanOutLimit   int    `yaml:"fan_out_limit,omitempty"`
	FailurePolicy string `yaml:"failure_policy,omitempty"`
	DefaultMode   string `yaml:"default_mode,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Directory: Directory{
			Location: "data/shelters.kml",
			Timeout:  15 * time.Second,
		},
		Google:        Endpoint{Timeout: 10 * time.Second},
		ORS:           Endpoint{Timeout: 10 * time.Second},
		RetryAttempts: 1,
		RetryBackoff:  200 * time.Millisecond,
		Resolver: Resolver{
			FanOutLimit:   8,
			FailurePolicy: string(services.FailWhole),
			DefaultMode:   string(domain.DefaultTravelMode),
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("load config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config %q: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the values that are parsed later into typed settings.
func (c *Config) Validate() error {
	if _, err := c.FailurePolicy(); err != nil {
		return err
	}
	if _, err := c.DefaultMode(); err != nil {
		return err
	}
	if c.Resolver.FanOutLimit < 0 {
		return fmt.Errorf("resolver.fan_out_limit must be >= 0, got %d", c.Resolver.FanOutLimit)
	}
	return nil
}

func (c *Config) FailurePolicy() (services.FailurePolicy, error) {
	return services.ParseFailurePolicy(c.Resolver.FailurePolicy)
}

func (c *Config) DefaultMode() (domain.TravelMode, error) {
	return domain.ParseTravelMode(c.Resolver.DefaultMode)
}

// ResolverConfig converts the resolver section; call Validate first.
func (c *Config) ResolverConfig() services.ResolverConfig {
	policy, _ := c.FailurePolicy()
	return services.ResolverConfig{
		FanOutLimit:   c.Resolver.FanOutLimit,
		FailurePolicy: policy,
	}
}

// Provider selects the map service used for geocoding and travel estimates.
type Provider struct {
	Name      string `long:"maps-provider" env:"MAPS_PROVIDER"       description:"Map service provider" choice:"google" choice:"ors" default:"google"`
	GoogleKey string `long:"google-key"    env:"GOOGLE_MAPS_API_KEY" description:"Google Maps Platform API key"`
	ORSKey    string `long:"ors-key"       env:"ORS_API_KEY"         description:"OpenRouteService API key"`
}

// Store selects the optional shelter coordinate store.
type Store struct {
	Kind        string `long:"coord-store"  env:"COORD_STORE"  description:"Shelter coordinate store" choice:"none" choice:"sqlite" choice:"postgres" choice:"redis" default:"none"`
	DBPath      string `long:"db-path"      env:"DB_PATH"      description:"SQLite database path"     default:"data/app.db"`
	DatabaseURL string `long:"database-url" env:"DATABASE_URL" description:"Postgres connection URL"`
	RedisAddr   string `long:"redis-addr"   env:"REDIS_ADDR"   description:"Redis address"            default:"localhost:6379"`
	RedisPass   string `long:"redis-pass"   env:"REDIS_PASS"   description:"Redis password"`
	RedisDB     int    `long:"redis-db"     env:"REDIS_DB"     description:"Redis database number"    default:"0"`
}

// Common options of every command.
type Common struct {
	Logger   logger.Options `group:"Logger options"`
	Provider Provider       `group:"Provider options"`
	Store    Store          `group:"Store options"`

	ConfigFile   string `short:"c" long:"config"    env:"CONFIG_FILE"   description:"Path to YAML configuration file"`
	DirectoryURL string `short:"d" long:"directory" env:"DIRECTORY_URL" description:"Shelter directory KML location (URL or path), overrides the config file"`
}

// LoadConfig reads the configuration file and applies option overrides.
func (o *Common) LoadConfig() (*Config, error) {
	cfg, err := Load(o.ConfigFile)
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(o.DirectoryURL); v != "" {
		cfg.Directory.Location = v
	}
	return cfg, nil
}
