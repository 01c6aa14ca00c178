package message

import (
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/delivery/http"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/transform"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/usecase/business"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/http/server"
)

// Module provides the transformer, the message relay and the preview route
var Module = fx.Module("message",
	fx.Provide(
		transform.NewTransformerFromConfig,
		business.NewUseCase,
		http.NewHandler,
		http.NewRouter,
	),
	fx.Invoke(registerRoutes),
)

func registerRoutes(srv *server.Server, router *http.Router) {
	router.RegisterRoutes(srv)
}
