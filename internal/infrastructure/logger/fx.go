package logger

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/connector-service/config"
)

// Module provides logger for fx DI
var Module = fx.Module("logger",
	fx.Provide(NewLogger),
)

// NewLogger creates the root logger tagged with the service name
func NewLogger(cfg *config.LoggingConfig, svc *config.ServiceConfig) zerolog.Logger {
	return New(cfg.Level).With().Str("service", svc.Name).Logger()
}
