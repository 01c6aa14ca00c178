package http

import (
	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/http/server"
)

// Router registers connection HTTP routes
type Router struct {
	handler *Handler
	logger  zerolog.Logger
}

// NewRouter creates a new connection router
func NewRouter(handler *Handler, logger zerolog.Logger) *Router {
	return &Router{
		handler: handler,
		logger:  logger,
	}
}

// RegisterRoutes registers the RPC endpoint, its alias and the listener routes
func (r *Router) RegisterRoutes(srv *server.Server) {
	srv.API.POST("/telegram", r.handler.HandleRPC)
	srv.Functions.POST("/telegram-connector", r.handler.HandleRPC)

	accounts := srv.API.Group("/accounts/{account_id}")
	accounts.POST("/listener", r.handler.StartListener)
	accounts.DELETE("/listener", r.handler.StopListener)
	accounts.GET("/listener", r.handler.GetListener)
	accounts.GET("/messages", r.handler.GetMessages)
	accounts.GET("/status", r.handler.GetStatus)

	r.logger.Info().Msg("Connection routes registered")
}
