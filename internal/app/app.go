package app

import (
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/connector-service/config"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/connection"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/diagnostics"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/health"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/listener"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure"
)

// CreateApp creates the fx application options
func CreateApp() fx.Option {
	return fx.Options(
		fx.Provide(config.Out),
		infrastructure.Module,
		// Domain modules
		account.Module,
		message.Module,
		listener.Module,
		connection.Module, // Provides the channel pair handler consumed by kafka.Module
		diagnostics.Module,
		health.Module,
	)
}
