package http

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/Conte777/NewsFlow/services/connector-service/pkg/httputil"
)

// DatastoreChecker reports datastore reachability
type DatastoreChecker interface {
	Ping(ctx context.Context) error
}

// SessionChecker reads from the session store
type SessionChecker interface {
	Exists(ctx context.Context, accountID string) (bool, error)
}

// ListenerCounter reports running listeners
type ListenerCounter interface {
	Count() int
}

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentHealth represents health status of a single component
type ComponentHealth struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the JSON response for health check
type HealthResponse struct {
	Status     HealthStatus      `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components []ComponentHealth `json:"components"`
}

const checkTimeout = 2 * time.Second

// probeAccount is looked up to exercise the session backend
const probeAccount = "__healthcheck__"

// Handler handles health check requests
type Handler struct {
	datastore DatastoreChecker
	sessions  SessionChecker
	listeners ListenerCounter
	logger    zerolog.Logger
}

// NewHandler creates a new health check handler
func NewHandler(
	datastore DatastoreChecker,
	sessions SessionChecker,
	listeners ListenerCounter,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		datastore: datastore,
		sessions:  sessions,
		listeners: listeners,
		logger:    logger,
	}
}

// Health handles GET /health
func (h *Handler) Health(ctx *fasthttp.RequestCtx) {
	c, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	resp := h.check(c)
	httputil.WriteHealthResponse(ctx, resp, resp.Status != HealthStatusUnhealthy)
}

func (h *Handler) check(ctx context.Context) HealthResponse {
	components := make([]ComponentHealth, 0, 3)

	db := ComponentHealth{Name: "database", Healthy: true}
	if err := h.datastore.Ping(ctx); err != nil {
		db.Healthy = false
		db.Message = err.Error()
	}
	components = append(components, db)

	sess := ComponentHealth{Name: "session_store", Healthy: true}
	if _, err := h.sessions.Exists(ctx, probeAccount); err != nil {
		sess.Healthy = false
		sess.Message = err.Error()
	}
	components = append(components, sess)

	components = append(components, ComponentHealth{
		Name:    "listeners",
		Healthy: true,
		Message: fmt.Sprintf("%d active", h.listeners.Count()),
	})

	status := HealthStatusHealthy
	switch {
	case !sess.Healthy:
		// Without sessions no account can connect.
		status = HealthStatusUnhealthy
	case !db.Healthy:
		status = HealthStatusDegraded
	}

	if status != HealthStatusHealthy {
		h.logger.Warn().Str("status", string(status)).Interface("components", components).Msg("Health check failed")
	}

	return HealthResponse{
		Status:     status,
		Timestamp:  time.Now().UTC(),
		Components: components,
	}
}
