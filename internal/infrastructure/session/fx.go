package session

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/Conte777/NewsFlow/services/connector-service/config"
)

// Module provides the session store for fx DI
var Module = fx.Module("session",
	fx.Provide(NewBackendFx),
	fx.Provide(NewStore),
)

// NewBackendFx selects the session backend configured by SESSION_BACKEND
func NewBackendFx(cfg *config.SessionConfig, db *gorm.DB, logger zerolog.Logger) (Backend, error) {
	logger.Info().Str("backend", cfg.Backend).Msg("initializing session store")

	switch cfg.Backend {
	case "file":
		return NewFileBackend(cfg.Dir)
	case "memory":
		return NewMemoryBackend(), nil
	default:
		return NewPostgresBackend(db)
	}
}
