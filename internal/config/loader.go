package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // zone database for minimal images

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "GOALCAST_"
	envFileVar = "GOALCAST_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. YAML file if GOALCAST_CONFIG is set
//  3. env (prefix GOALCAST_)
func Load(_ context.Context) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// GOALCAST_ROLL_WINDOW -> roll_window; keys stay flat to match the koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.RollWindow < 1:
		return fmt.Errorf("%w: roll_window must be >= 1, got %d", ErrInvalidConfig, c.RollWindow)
	case c.StoreBackend != "csv" && c.StoreBackend != "postgres":
		return fmt.Errorf("%w: store_backend must be csv or postgres, got %q", ErrInvalidConfig, c.StoreBackend)
	case c.StoreBackend == "postgres" && c.PostgresDSN == "":
		return fmt.Errorf("%w: postgres_dsn is required for the postgres backend", ErrInvalidConfig)
	case c.StoreBackend == "csv" && c.RecordsPath == "":
		return fmt.Errorf("%w: records_path must not be empty", ErrInvalidConfig)
	case c.TrainTestFraction <= 0 || c.TrainTestFraction >= 1:
		return fmt.Errorf("%w: train_test_fraction must be in (0,1), got %v", ErrInvalidConfig, c.TrainTestFraction)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q: %w", ErrInvalidConfig, c.Timezone, err)
	}
	return nil
}

// Location returns the configured time zone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlateCacheTTL returns the slate cache lifetime.
func (c *Config) SlateCacheTTL() time.Duration {
	return time.Duration(c.SlateCacheTTLSec) * time.Second
}

// UpstreamTimeout returns the per-request upstream timeout.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutMS) * time.Millisecond
}

// UpstreamBackoff returns the base retry backoff.
func (c *Config) UpstreamBackoff() time.Duration {
	return time.Duration(c.UpstreamBackoffMS) * time.Millisecond
}

// UpstreamRequestDelay returns the pause between consecutive box-score requests.
func (c *Config) UpstreamRequestDelay() time.Duration {
	return time.Duration(c.UpstreamPoliteDelay) * time.Millisecond
}
