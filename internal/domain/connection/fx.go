package connection

import (
	"context"

	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/connection/delivery/http"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/connection/deps"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/connection/usecase/business"
	listenerdeps "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/listener/deps"
	msgbusiness "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/usecase/business"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/http/server"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/session"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/telegram"
)

// Module provides the connection orchestrator, its RPC handler and routes
var Module = fx.Module("connection",
	fx.Provide(
		newClientFactory,
		func(s *session.Store) deps.SessionStore { return s },
		func(r *msgbusiness.UseCase) deps.Relay { return r },
		business.NewUseCase,
		func(uc *business.UseCase) deps.Service { return uc },
		func(uc *business.UseCase) listenerdeps.ChannelPairsChangedHandler { return uc },
		http.NewHandler,
		http.NewRouter,
	),
	fx.Invoke(registerRoutes),
	fx.Invoke(registerShutdown),
)

func newClientFactory(f *telegram.Factory) deps.ClientFactory {
	return deps.ClientFactoryFunc(func(p telegram.Params) (deps.ProtocolClient, error) {
		c, err := f.Create(p)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

func registerRoutes(srv *server.Server, router *http.Router) {
	router.RegisterRoutes(srv)
}

func registerShutdown(lc fx.Lifecycle, uc *business.UseCase) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			uc.Shutdown(ctx)
			return nil
		},
	})
}
