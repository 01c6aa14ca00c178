package diagnostics

import (
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/diagnostics/delivery/http"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/diagnostics/deps"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/diagnostics/usecase/business"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/database"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/http/server"
)

// Module provides connectivity diagnostics for fx DI
var Module = fx.Module("diagnostics",
	fx.Provide(
		newProbeClient,
		newPinger,
		business.NewUseCase,
		http.NewHandler,
		http.NewRouter,
	),
	fx.Invoke(registerRoutes),
)

func newProbeClient() deps.HTTPDoer {
	return &fasthttp.Client{
		Name:                "connector-diagnostics",
		MaxConnsPerHost:     4,
		MaxIdleConnDuration: 30 * time.Second,
	}
}

func newPinger(p *database.Pinger) deps.Pinger {
	return p
}

func registerRoutes(srv *server.Server, router *http.Router) {
	router.RegisterRoutes(srv)
}
