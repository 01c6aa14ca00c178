package http

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/diagnostics/usecase/business"
	"github.com/Conte777/NewsFlow/services/connector-service/pkg/httputil"
)

// runTimeout covers the slowest probe
const runTimeout = 20 * time.Second

// Handler serves the diagnostics report
type Handler struct {
	uc     *business.UseCase
	logger zerolog.Logger
}

// NewHandler creates a new diagnostics handler
func NewHandler(uc *business.UseCase, logger zerolog.Logger) *Handler {
	return &Handler{
		uc:     uc,
		logger: logger.With().Str("handler", "diagnostics").Logger(),
	}
}

// Diagnose handles GET /api/v1/diagnostics. Probe failures are part of the
// report, so the status is always 200.
func (h *Handler) Diagnose(ctx *fasthttp.RequestCtx) {
	c, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	report := h.uc.Run(c)
	httputil.WriteJSON(ctx, report, fasthttp.StatusOK)
}
