package health

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/health/delivery/http"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/listener"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/database"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/http/server"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/session"
)

// Module provides the /health route for fx DI
var Module = fx.Module("health",
	fx.Provide(newHandler),
	fx.Invoke(registerRoutes),
)

func newHandler(p *database.Pinger, store *session.Store, registry *listener.Registry, logger zerolog.Logger) *http.Handler {
	return http.NewHandler(p, store, registry, logger.With().Str("handler", "health").Logger())
}

func registerRoutes(srv *server.Server, h *http.Handler) {
	srv.Router.GET("/health", h.Health)
}
