package database

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/Conte777/NewsFlow/services/connector-service/config"
)

// Module provides database components for fx dependency injection
var Module = fx.Module("database",
	fx.Provide(NewPostgresDBFx),
	fx.Provide(NewPinger),
)

// NewPostgresDBFx opens the connector database and applies its schema on start
func NewPostgresDBFx(
	lc fx.Lifecycle,
	cfg *config.DatabaseConfig,
	logger zerolog.Logger,
) (*gorm.DB, error) {
	logger = logger.With().Str("component", "database").Logger()

	db, err := NewPostgresDB(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("host", cfg.Host).
		Str("port", cfg.Port).
		Str("database", cfg.DBName).
		Msg("Database connected")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.MigrationsPath == "" {
				logger.Info().Msg("Migrations disabled")
				return nil
			}
			version, err := RunMigrations(db, cfg)
			if err != nil {
				// Another replica may hold the migration lock.
				logger.Warn().Err(err).Msg("Failed to run migrations")
				return nil
			}
			logger.Info().Uint("version", version).Msg("Database schema is up to date")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			logger.Info().Msg("Closing database connection")
			return sqlDB.Close()
		},
	})

	return db, nil
}
