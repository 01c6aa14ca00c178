package server

import (
	"context"
	"fmt"
	"time"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/Conte777/NewsFlow/services/connector-service/pkg/httputil"
)

// Options configures the server
type Options struct {
	Name          string
	Port          string
	AllowedOrigin string
	JWTSecret     string
}

// Server represents fasthttp server
type Server struct {
	server *fasthttp.Server
	Router *router.Router
	// API is the /api/v1 group guarded by the bearer token check
	API *httputil.MiddlewareGroup
	// Functions is the /functions/v1 alias group used by the dashboard
	Functions *httputil.MiddlewareGroup
	addr      string
	logger    zerolog.Logger
}

// NewServer creates a new fasthttp server with request id, CORS and access log middleware
func NewServer(opts Options, logger zerolog.Logger) *Server {
	r := router.New()

	global := []httputil.Middleware{
		httputil.RequestID(),
		httputil.CORS(httputil.CORSConfig{
			AllowedOrigin:  opts.AllowedOrigin,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Telegram-Session", "apikey", "x-client-info"},
			ExposedHeaders: []string{"X-Request-ID", "X-Telegram-Session"},
			MaxAge:         24 * time.Hour,
		}),
		httputil.AccessLog(logger),
	}
	handler := httputil.Chain(r.Handler, global...)

	name := opts.Name
	if name == "" {
		name = "connector-service"
	}

	srv := &fasthttp.Server{
		Handler:      handler,
		Name:         name,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 90 * time.Second, // connect and listen calls may take up to 60s
		IdleTimeout:  120 * time.Second,
	}

	jwt := httputil.BearerJWT(opts.JWTSecret, logger)

	return &Server{
		server:    srv,
		Router:    r,
		API:       httputil.NewMiddlewareGroup(r.Group("/api/v1")).Use(jwt),
		Functions: httputil.NewMiddlewareGroup(r.Group("/functions/v1")).Use(jwt),
		addr:      fmt.Sprintf(":%s", opts.Port),
		logger:    logger,
	}
}

// Handler returns the wrapped root handler
func (s *Server) Handler() fasthttp.RequestHandler {
	return s.server.Handler
}

// RegisterMetrics registers Prometheus metrics endpoint
func (s *Server) RegisterMetrics() {
	prometheusHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	s.Router.GET("/metrics", prometheusHandler)
}

// Start starts the HTTP server in a separate goroutine
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.addr).
		Msg("Starting HTTP server")

	go func() {
		if err := s.server.ListenAndServe(s.addr); err != nil {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")

	if err := s.server.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped gracefully")
	return nil
}
