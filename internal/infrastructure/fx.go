package infrastructure

import (
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/database"
	httpfx "github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/http"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/kafka"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/logger"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/metrics"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/s3"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/session"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/telegram"
)

// Module aggregates all infrastructure modules
var Module = fx.Module("infrastructure",
	logger.Module,
	database.Module, // Must be before session (postgres backend depends on *gorm.DB)
	metrics.Module,
	session.Module,
	telegram.Module,
	kafka.Module,
	s3.Module,
	httpfx.Module,
)
