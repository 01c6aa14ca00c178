package http

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/connection/deps"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/session"
	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
	"github.com/Conte777/NewsFlow/services/connector-service/pkg/httputil"
)

// requestTimeout bounds one RPC call; it stays below the server write timeout
const requestTimeout = 85 * time.Second

// Handler serves the connector RPC endpoint and the listener routes
type Handler struct {
	service deps.Service
	mapper  *pkgerrors.Mapper
	logger  zerolog.Logger
}

// NewHandler creates a new connection handler
func NewHandler(service deps.Service, logger zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		mapper:  pkgerrors.NewMapper(logger),
		logger:  logger.With().Str("handler", "connection").Logger(),
	}
}

// HandleRPC handles POST /api/v1/telegram and its /functions/v1 alias
func (h *Handler) HandleRPC(ctx *fasthttp.RequestCtx) {
	var req RPCRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.writeError(ctx, pkgerrors.NewValidationError("invalid request body"))
		return
	}

	// The request ctx is recycled once the handler returns, while connect
	// flights may outlive a single caller.
	c, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	hint := sessionHint(ctx, &req)

	logger := h.logger.With().
		Str("request_id", httputil.GetRequestID(ctx)).
		Str("operation", req.Operation).
		Str("account_id", req.AccountID).
		Logger()
	logger.Debug().Msg("RPC call")

	resp, err := h.dispatch(c, &req, hint)
	if err != nil {
		logger.Warn().Err(err).Str("kind", string(pkgerrors.KindOf(err))).Msg("RPC call failed")
		h.writeError(ctx, err)
		return
	}

	if resp.Session != "" {
		ctx.Response.Header.Set(SessionHeader, resp.Session)
	}
	httputil.WriteJSON(ctx, resp, fasthttp.StatusOK)
}

func (h *Handler) dispatch(ctx context.Context, req *RPCRequest, hint string) (RPCResponse, error) {
	account := req.Account()

	switch req.Operation {
	case OpHealthcheck:
		return RPCResponse{Success: true, Status: "ok"}, nil

	case OpValidate:
		res, err := h.service.Validate(ctx, account)
		if err != nil {
			return RPCResponse{}, err
		}
		return RPCResponse{Success: true, Authenticated: &res.Authorized, Reachable: &res.Reachable}, nil

	case OpConnect:
		res, err := h.service.Connect(ctx, account, hint)
		if err != nil {
			return RPCResponse{}, err
		}
		return fromConnectResult(res), nil

	case OpVerify:
		if req.VerificationCode == "" && req.Password != "" {
			return h.submitPassword(ctx, req)
		}
		res, err := h.service.Verify(ctx, account, string(req.VerificationCode), req.PhoneCodeHash, hint)
		if err != nil {
			return RPCResponse{}, err
		}
		return fromConnectResult(res), nil

	case OpPassword:
		return h.submitPassword(ctx, req)

	case OpListen:
		res, err := h.service.Listen(ctx, account, req.ChannelNames, hint)
		if err != nil {
			return RPCResponse{}, err
		}
		return RPCResponse{Success: true, Results: res.Results, Messages: res.Messages}, nil

	case OpDisconnect:
		if err := h.service.Disconnect(ctx, req.AccountID, req.Logout); err != nil {
			return RPCResponse{}, err
		}
		return RPCResponse{Success: true}, nil

	case OpStatus:
		st, err := h.service.Status(ctx, req.AccountID)
		if err != nil {
			return RPCResponse{}, err
		}
		return RPCResponse{Success: true, Status: st}, nil

	case OpRepost:
		err := h.service.Repost(ctx, account, int(req.MessageID), req.SourceChannel, req.TargetChannel, hint)
		if err != nil {
			return RPCResponse{}, err
		}
		return RPCResponse{Success: true}, nil

	case "":
		return RPCResponse{}, pkgerrors.NewValidationError("operation is required")

	default:
		return RPCResponse{}, pkgerrors.NewValidationErrorf("unknown operation %q", req.Operation)
	}
}

func (h *Handler) submitPassword(ctx context.Context, req *RPCRequest) (RPCResponse, error) {
	res, err := h.service.SubmitPassword(ctx, req.Account(), req.Password)
	if err != nil {
		return RPCResponse{}, err
	}
	return fromConnectResult(res), nil
}

// StartListener handles POST /api/v1/accounts/{account_id}/listener
func (h *Handler) StartListener(ctx *fasthttp.RequestCtx) {
	accountID, ok := accountIDParam(ctx)
	if !ok {
		h.writeError(ctx, pkgerrors.NewValidationError("account_id is required"))
		return
	}

	c, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	st, err := h.service.StartListener(c, accountID)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	httputil.WriteResponseWithStatus(ctx, st, fasthttp.StatusCreated)
}

// StopListener handles DELETE /api/v1/accounts/{account_id}/listener
func (h *Handler) StopListener(ctx *fasthttp.RequestCtx) {
	accountID, ok := accountIDParam(ctx)
	if !ok {
		h.writeError(ctx, pkgerrors.NewValidationError("account_id is required"))
		return
	}

	if err := h.service.StopListener(ctx, accountID); err != nil {
		h.writeError(ctx, err)
		return
	}
	httputil.WriteResponse(ctx, map[string]string{"accountId": accountID, "status": "stopped"})
}

// GetListener handles GET /api/v1/accounts/{account_id}/listener
func (h *Handler) GetListener(ctx *fasthttp.RequestCtx) {
	accountID, ok := accountIDParam(ctx)
	if !ok {
		h.writeError(ctx, pkgerrors.NewValidationError("account_id is required"))
		return
	}

	st, err := h.service.ListenerStatus(accountID)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	httputil.WriteResponse(ctx, st)
}

// GetMessages handles GET /api/v1/accounts/{account_id}/messages
func (h *Handler) GetMessages(ctx *fasthttp.RequestCtx) {
	accountID, ok := accountIDParam(ctx)
	if !ok {
		h.writeError(ctx, pkgerrors.NewValidationError("account_id is required"))
		return
	}

	msgs, err := h.service.RecentMessages(accountID)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	httputil.WriteResponse(ctx, msgs)
}

// GetStatus handles GET /api/v1/accounts/{account_id}/status
func (h *Handler) GetStatus(ctx *fasthttp.RequestCtx) {
	accountID, ok := accountIDParam(ctx)
	if !ok {
		h.writeError(ctx, pkgerrors.NewValidationError("account_id is required"))
		return
	}

	st, err := h.service.Status(ctx, accountID)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	httputil.WriteResponse(ctx, st)
}

func (h *Handler) writeError(ctx *fasthttp.RequestCtx, err error) {
	httputil.WriteMappedError(ctx, h.mapper, err)
}

// sessionHint prefers the session header over the body field
func sessionHint(ctx *fasthttp.RequestCtx, req *RPCRequest) string {
	if s := session.Normalize(string(ctx.Request.Header.Peek(SessionHeader))); s != "" {
		return s
	}
	return session.Normalize(req.SessionString)
}

func accountIDParam(ctx *fasthttp.RequestCtx) (string, bool) {
	id, ok := ctx.UserValue("account_id").(string)
	return id, ok && id != ""
}
