package http

import (
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/transform"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/usecase/business"
	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
	"github.com/Conte777/NewsFlow/services/connector-service/pkg/httputil"
)

// TransformRequest is the body of the transform preview endpoint. When
// Competitors or OwnHandle are set they replace the configured values.
type TransformRequest struct {
	Text        string   `json:"text"`
	Competitors []string `json:"competitors,omitempty"`
	OwnHandle   *string  `json:"ownHandle,omitempty"`
}

// Handler serves the transformer preview
type Handler struct {
	useCase     *business.UseCase
	transformer *transform.Transformer
	mapper      *pkgerrors.Mapper
	logger      zerolog.Logger
}

// NewHandler creates a new message handler
func NewHandler(useCase *business.UseCase, transformer *transform.Transformer, logger zerolog.Logger) *Handler {
	return &Handler{
		useCase:     useCase,
		transformer: transformer,
		mapper:      pkgerrors.NewMapper(logger),
		logger:      logger.With().Str("handler", "transform").Logger(),
	}
}

// Transform handles POST /api/v1/transform
func (h *Handler) Transform(ctx *fasthttp.RequestCtx) {
	var req TransformRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		httputil.WriteMappedError(ctx, h.mapper, pkgerrors.NewValidationError("invalid request body"))
		return
	}

	if req.Competitors == nil && req.OwnHandle == nil {
		httputil.WriteResponse(ctx, h.useCase.Transform(req.Text))
		return
	}

	competitors := req.Competitors
	if competitors == nil {
		competitors = h.transformer.Competitors()
	}
	own := h.transformer.OwnHandle()
	if req.OwnHandle != nil {
		own = *req.OwnHandle
	}

	httputil.WriteResponse(ctx, transform.ProcessMessageText(req.Text, competitors, own))
}
