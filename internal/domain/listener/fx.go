package listener

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/connector-service/config"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/metrics"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/session"
)

// Module provides the listener registry and stops every listener on shutdown
var Module = fx.Module("listener",
	fx.Provide(NewRegistryFx),
)

// NewRegistryFx creates the registry backed by the session store
func NewRegistryFx(
	lc fx.Lifecycle,
	cfg *config.ListenerConfig,
	store *session.Store,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Registry {
	r := NewRegistry(cfg, store, m, logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			r.StopAll(ctx)
			return nil
		},
	})
	return r
}
