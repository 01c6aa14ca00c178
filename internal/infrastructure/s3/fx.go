package s3

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/connector-service/config"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/deps"
)

// Module provides the message archive for FX
var Module = fx.Module("s3",
	fx.Provide(NewArchiveFx),
)

// NewArchiveFx creates the S3 archive, or a no-op archive when S3 is disabled
func NewArchiveFx(lc fx.Lifecycle, cfg *config.S3Config, logger zerolog.Logger) (deps.Archive, error) {
	if !cfg.Enabled {
		logger.Info().Msg("S3 disabled, processed messages are not archived")
		return NoopArchive{}, nil
	}

	client, err := NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info().Msg("initializing S3/MinIO client...")
			if err := client.EnsureBucket(ctx); err != nil {
				return err
			}
			logger.Info().Msg("S3/MinIO client initialized successfully")
			return nil
		},
	})

	return client, nil
}
