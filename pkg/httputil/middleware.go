package httputil

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

// Middleware is a function that wraps a handler
type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

// Chain wraps handler so that the first middleware runs first
func Chain(handler fasthttp.RequestHandler, m ...Middleware) fasthttp.RequestHandler {
	for i := len(m) - 1; i >= 0; i-- {
		handler = m[i](handler)
	}
	return handler
}

// MiddlewareGroup is a router group whose routes share middleware
type MiddlewareGroup struct {
	group      *router.Group
	middleware []Middleware
}

// NewMiddlewareGroup creates a new middleware group
func NewMiddlewareGroup(group *router.Group) *MiddlewareGroup {
	return &MiddlewareGroup{group: group}
}

// Use adds middleware to the group
func (g *MiddlewareGroup) Use(m ...Middleware) *MiddlewareGroup {
	g.middleware = append(g.middleware, m...)
	return g
}

// Group creates a sub-group inheriting the current middleware
func (g *MiddlewareGroup) Group(path string) *MiddlewareGroup {
	return &MiddlewareGroup{
		group:      g.group.Group(path),
		middleware: append([]Middleware(nil), g.middleware...),
	}
}

// GET registers a GET handler
func (g *MiddlewareGroup) GET(path string, handler fasthttp.RequestHandler) {
	g.group.GET(path, Chain(handler, g.middleware...))
}

// POST registers a POST handler
func (g *MiddlewareGroup) POST(path string, handler fasthttp.RequestHandler) {
	g.group.POST(path, Chain(handler, g.middleware...))
}

// DELETE registers a DELETE handler
func (g *MiddlewareGroup) DELETE(path string, handler fasthttp.RequestHandler) {
	g.group.DELETE(path, Chain(handler, g.middleware...))
}
