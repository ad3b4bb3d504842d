package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcoot/pinauthority/internal/config"
	"github.com/mcoot/pinauthority/internal/dependencies/clock"
	"github.com/mcoot/pinauthority/internal/observability"
	"github.com/mcoot/pinauthority/internal/services/auth"
	"github.com/mcoot/pinauthority/internal/services/hasher"
	"github.com/mcoot/pinauthority/internal/services/token"
	"github.com/mcoot/pinauthority/internal/storage"
	"github.com/mcoot/pinauthority/internal/storage/memory"
	"github.com/mcoot/pinauthority/internal/storage/postgres"
	redisstorage "github.com/mcoot/pinauthority/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory   = config.StorageTypeMemory
	StorageTypeRedis    = config.StorageTypeRedis
	StorageTypePostgres = config.StorageTypePostgres
)

// App contains all wired application components
type App struct {
	// Storage
	Store storage.CredentialStore

	// External dependencies
	Clock clock.Clock

	// Services
	Hasher      hasher.Hasher
	Codec       *token.Codec
	AuthService *auth.Service

	// Metrics
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	closers []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// TokenSecret signs session tokens (required, at least token.MinSecretLength bytes)
	TokenSecret []byte
	// TokenIssuer is the iss claim (optional)
	// If empty, defaults to token.DefaultIssuer
	TokenIssuer string
	// AuthConfig holds configuration for the auth service (optional)
	// Zero TTLs fall back to auth.DefaultConfig()
	AuthConfig auth.Config
	// HasherConfig sets the bcrypt cost (optional)
	HasherConfig hasher.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig holds database settings (required if StorageType is "postgres")
	PostgresConfig *postgres.Config
}

// ConfigFromAuthority maps loaded authority settings onto a factory Config
func ConfigFromAuthority(c *config.Authority, logger *slog.Logger) Config {
	cfg := Config{
		TokenSecret:  []byte(c.TokenSecret),
		TokenIssuer:  c.TokenIssuer,
		AuthConfig:   auth.Config{ShortTTL: c.ShortTTL, LongTTL: c.LongTTL},
		HasherConfig: hasher.Config{Cost: c.HashCost},
		Logger:       logger,
		StorageType:  c.StorageType,
	}

	switch c.StorageType {
	case StorageTypeRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.RedisURL
		cfg.RedisConfig = &redisCfg
	case StorageTypePostgres:
		pgCfg := postgres.DefaultConfig()
		pgCfg.URL = c.DatabaseURL
		pgCfg.RunMigrations = c.RunMigrations
		cfg.PostgresConfig = &pgCfg
	}

	return cfg
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	clk := clock.New()

	codec, err := token.New(cfg.TokenSecret, clk, cfg.TokenIssuer)
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}

	// Create storage based on type
	var (
		store   storage.CredentialStore
		closers []io.Closer
	)
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
		closers = append(closers, redisStore)
	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		pgStore, err := postgres.New(ctx, *cfg.PostgresConfig, logger)
		if err != nil {
			return nil, err
		}
		store = pgStore
		closers = append(closers, pgStore)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'postgres'")
	}

	registry := observability.NewRegistry()
	app, err := newWithDependencies(store, clk, hasher.New(cfg.HasherConfig), codec, cfg.AuthConfig, logger, registry)
	if err != nil {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, err
	}
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.CredentialStore,
	clk clock.Clock,
	h hasher.Hasher,
	codec *token.Codec,
	authCfg auth.Config,
	logger *slog.Logger,
	registry *prometheus.Registry,
) (*App, error) {
	metrics := observability.NewMetrics(registry)
	authService, err := auth.New(store, h, codec, clk, authCfg, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	return &App{
		Store:       store,
		Clock:       clk,
		Hasher:      h,
		Codec:       codec,
		AuthService: authService,
		Registry:    registry,
		Metrics:     metrics,
	}, nil
}

// Close releases storage connections
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
