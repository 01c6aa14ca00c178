package account

import (
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/repository/postgres"
)

// Module provides the read-only account repository for fx DI
var Module = fx.Module("account",
	fx.Provide(postgres.NewRepository),
)
