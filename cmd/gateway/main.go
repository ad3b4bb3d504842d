package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/pinauthority/internal/api"
	"github.com/mcoot/pinauthority/internal/config"
	"github.com/mcoot/pinauthority/internal/observability"
	"github.com/mcoot/pinauthority/internal/services/gateway"
	"github.com/mcoot/pinauthority/internal/web"
)

func main() {
	cfg, err := config.LoadGateway()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := observability.NewRegistry()
	client := gateway.New(gateway.Config{
		Endpoint: cfg.Authority,
		Timeout:  cfg.UpstreamTimeout,
	}, logger, observability.NewMetrics(registry))
	defer client.Close()

	router := web.NewRouter(web.RouterConfig{
		Logger:          logger,
		Client:          client,
		UpstreamTimeout: cfg.UpstreamTimeout,
		Registry:        registry,
		HSTS:            cfg.HSTS,
		StaticDir:       cfg.StaticDir,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Host
	serverConfig.Port = cfg.Port
	server := api.NewServer(router, serverConfig, logger)

	logger.Info("gateway starting",
		slog.String("addr", server.Addr()),
		slog.String("authority", cfg.Authority.String()),
	)

	if err := server.Run(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}

	logger.Info("server stopped")
}
