package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"

	"github.com/Conte777/NewsFlow/services/connector-service/config"
)

// schemaMigrationsTable holds the connector's schema version
const schemaMigrationsTable = "connector_schema_migrations"

// RunMigrations applies the accounts, channel pairs and sessions schema and
// returns the resulting version. The schema is left untouched when it is dirty.
func RunMigrations(db *gorm.DB, cfg *config.DatabaseConfig) (uint, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return 0, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: schemaMigrationsTable})
	if err != nil {
		return 0, fmt.Errorf("failed to create migrate driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationsPath, cfg.DBName, driver)
	if err != nil {
		return 0, fmt.Errorf("failed to init migrate: %w", err)
	}

	if _, dirty, err := m.Version(); err == nil && dirty {
		return 0, errors.New("schema is dirty, fix it manually before restarting")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migration failed: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
