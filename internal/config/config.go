// Package config loads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mcoot/pinauthority/internal/services/gateway"
)

// Storage backends
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

// Authority holds the settings for the authority server
type Authority struct {
	Host     string     `env:"PINAUTH_HOST"`
	Port     int        `env:"PINAUTH_PORT" envDefault:"3001"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// Token signing
	TokenSecret string        `env:"PINAUTH_TOKEN_SECRET,required,notEmpty"`
	TokenIssuer string        `env:"PINAUTH_TOKEN_ISSUER" envDefault:"pinauthority"`
	ShortTTL    time.Duration `env:"PINAUTH_TOKEN_TTL" envDefault:"1h"`
	LongTTL     time.Duration `env:"PINAUTH_REMEMBER_TTL" envDefault:"168h"`

	CookieSecure bool `env:"PINAUTH_COOKIE_SECURE" envDefault:"true"`
	HashCost     int  `env:"PINAUTH_HASH_COST" envDefault:"12"`

	// Credential storage
	StorageType   string `env:"STORAGE_TYPE" envDefault:"memory"`
	RedisURL      string `env:"REDIS_URL"`
	DatabaseURL   string `env:"DATABASE_URL"`
	RunMigrations bool   `env:"PINAUTH_RUN_MIGRATIONS" envDefault:"true"`
}

// Gateway holds the settings for the relying gateway
type Gateway struct {
	Host     string     `env:"GATEWAY_HOST"`
	Port     int        `env:"GATEWAY_PORT" envDefault:"3000"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	AuthorityURL    string        `env:"AUTHORITY_URL,required,notEmpty"`
	UpstreamTimeout time.Duration `env:"GATEWAY_UPSTREAM_TIMEOUT" envDefault:"5s"`
	HSTS            bool          `env:"GATEWAY_HSTS" envDefault:"false"`
	StaticDir       string        `env:"GATEWAY_STATIC_DIR"`

	// Authority is AuthorityURL resolved at load time
	Authority gateway.Endpoint
}

// LoadAuthority parses the authority settings from the environment
func LoadAuthority() (*Authority, error) {
	return loadAuthority(env.Options{})
}

// LoadGateway parses the gateway settings from the environment
func LoadGateway() (*Gateway, error) {
	return loadGateway(env.Options{})
}

func loadAuthority(opts env.Options) (*Authority, error) {
	cfg := &Authority{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func loadGateway(opts env.Options) (*Gateway, error) {
	cfg := &Gateway{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	endpoint, err := gateway.ParseEndpoint(cfg.AuthorityURL)
	if err != nil {
		return nil, fmt.Errorf("config: AUTHORITY_URL: %w", err)
	}
	cfg.Authority = endpoint

	if cfg.UpstreamTimeout <= 0 {
		return nil, errors.New("config: GATEWAY_UPSTREAM_TIMEOUT must be positive")
	}
	return cfg, nil
}

func (c *Authority) validate() error {
	switch c.StorageType {
	case StorageTypeMemory:
	case StorageTypeRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL required when STORAGE_TYPE=redis")
		}
	case StorageTypePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL required when STORAGE_TYPE=postgres")
		}
	default:
		return fmt.Errorf("invalid STORAGE_TYPE %q: must be memory, redis or postgres", c.StorageType)
	}

	if c.ShortTTL <= 0 || c.LongTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.LongTTL < c.ShortTTL {
		return errors.New("PINAUTH_REMEMBER_TTL must not be shorter than PINAUTH_TOKEN_TTL")
	}
	return nil
}
