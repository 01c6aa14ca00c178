package httputil

import (
	"encoding/json"

	"github.com/valyala/fasthttp"

	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

// Response represents a standard API response
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorKind string      `json:"errorKind,omitempty"`
	Title     string      `json:"title,omitempty"`
}

// WriteResponse writes a successful JSON response
func WriteResponse(ctx *fasthttp.RequestCtx, data interface{}) {
	WriteResponseWithStatus(ctx, data, fasthttp.StatusOK)
}

// WriteResponseWithStatus writes a successful JSON response with custom status
func WriteResponseWithStatus(ctx *fasthttp.RequestCtx, data interface{}, status int) {
	resp := Response{
		Success: true,
		Data:    data,
	}
	WriteJSON(ctx, resp, status)
}

// WriteErrorResponse writes an error JSON response
func WriteErrorResponse(ctx *fasthttp.RequestCtx, message string, status int) {
	resp := Response{
		Success: false,
		Error:   message,
	}
	WriteJSON(ctx, resp, status)
}

// WriteMappedError writes err using the mapper's status and, for kinded
// errors, the machine-checkable kind and title.
func WriteMappedError(ctx *fasthttp.RequestCtx, mapper *pkgerrors.Mapper, err error) {
	status, message := mapper.MapErrorToHTTP(err)
	resp := Response{
		Success: false,
		Error:   message,
	}
	if kind := pkgerrors.KindOf(err); kind != pkgerrors.KindUnknown {
		resp.ErrorKind = string(kind)
		resp.Title = kind.Title()
	}
	WriteJSON(ctx, resp, status)
}

// WriteJSON writes JSON response to context
func WriteJSON(ctx *fasthttp.RequestCtx, data interface{}, status int) {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)

	body, err := json.Marshal(data)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBody([]byte(`{"success":false,"error":"failed to marshal response"}`))
		return
	}

	ctx.SetBody(body)
}

// WriteHealthResponse writes a health check response
func WriteHealthResponse(ctx *fasthttp.RequestCtx, data interface{}, healthy bool) {
	status := fasthttp.StatusOK
	if !healthy {
		status = fasthttp.StatusServiceUnavailable
	}
	WriteJSON(ctx, data, status)
}
