package http

import (
	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/http/server"
)

// Router registers message HTTP routes
type Router struct {
	handler *Handler
	logger  zerolog.Logger
}

// NewRouter creates a new message router
func NewRouter(handler *Handler, logger zerolog.Logger) *Router {
	return &Router{
		handler: handler,
		logger:  logger,
	}
}

// RegisterRoutes registers message routes on the server
func (r *Router) RegisterRoutes(srv *server.Server) {
	srv.API.POST("/transform", r.handler.Transform)
}
