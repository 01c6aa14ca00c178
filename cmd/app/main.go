package main

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/connector-service/config"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/app"
)

func main() {
	fx.New(
		app.CreateApp(),
		fx.Invoke(run),
	).Run()
}

func run(
	lc fx.Lifecycle,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info().
				Str("service", cfg.Service.Name).
				Str("port", cfg.Service.Port).
				Str("session_backend", cfg.Session.Backend).
				Bool("test_dc", cfg.Telegram.TestDC).
				Bool("kafka", cfg.Kafka.Enabled).
				Bool("s3", cfg.S3.Enabled).
				Msg("Starting connector service")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("Shutting down connector service...")
			return nil
		},
	})
}
