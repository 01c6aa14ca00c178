package http

import (
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/http/server"
)

// Router registers diagnostics routes
type Router struct {
	handler *Handler
}

// NewRouter creates a new diagnostics router
func NewRouter(handler *Handler) *Router {
	return &Router{handler: handler}
}

// RegisterRoutes registers diagnostics routes on the server
func (r *Router) RegisterRoutes(srv *server.Server) {
	srv.API.GET("/diagnostics", r.handler.Diagnose)
}
