package httputil

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

const (
	// RequestIDHeader carries the request correlation id.
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the user value key holding the request id.
	RequestIDKey = "request_id"
	// ClaimsKey is the user value key holding verified JWT claims.
	ClaimsKey = "jwt_claims"
)

// RequestID assigns a request id to every request, reusing the caller's one when present.
func RequestID() Middleware {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			id := string(ctx.Request.Header.Peek(RequestIDHeader))
			if id == "" {
				id = uuid.NewString()
			}
			ctx.SetUserValue(RequestIDKey, id)
			ctx.Response.Header.Set(RequestIDHeader, id)
			next(ctx)
		}
	}
}

// GetRequestID returns the request id assigned by RequestID.
func GetRequestID(ctx *fasthttp.RequestCtx) string {
	id, _ := ctx.UserValue(RequestIDKey).(string)
	return id
}

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	AllowedOrigin  string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string
	MaxAge         time.Duration
}

// CORS answers preflight requests and decorates responses with CORS headers.
func CORS(cfg CORSConfig) Middleware {
	origin := cfg.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")
	maxAge := fmt.Sprintf("%d", int(cfg.MaxAge.Seconds()))

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			h := &ctx.Response.Header
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			if exposed != "" {
				h.Set("Access-Control-Expose-Headers", exposed)
			}

			if ctx.IsOptions() {
				h.Set("Access-Control-Max-Age", maxAge)
				ctx.SetStatusCode(fasthttp.StatusNoContent)
				return
			}
			next(ctx)
		}
	}
}

// BearerJWT verifies an HS256 bearer token. An empty secret disables the check.
func BearerJWT(secret string, logger zerolog.Logger) Middleware {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		if secret == "" {
			return next
		}
		return func(ctx *fasthttp.RequestCtx) {
			if ctx.IsOptions() {
				next(ctx)
				return
			}

			raw := ctx.Request.Header.Peek(fasthttp.HeaderAuthorization)
			token, ok := bytes.CutPrefix(raw, []byte("Bearer "))
			if !ok || len(token) == 0 {
				WriteErrorResponse(ctx, "missing bearer token", fasthttp.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}
			_, err := parser.ParseWithClaims(string(token), claims, func(*jwt.Token) (interface{}, error) {
				return key, nil
			})
			if err != nil {
				logger.Debug().Err(err).Str("request_id", GetRequestID(ctx)).Msg("rejected bearer token")
				WriteErrorResponse(ctx, "invalid bearer token", fasthttp.StatusUnauthorized)
				return
			}

			ctx.SetUserValue(ClaimsKey, claims)
			next(ctx)
		}
	}
}

// AccessLog logs every request with its status and latency.
func AccessLog(logger zerolog.Logger) Middleware {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			next(ctx)
			logger.Debug().
				Str("request_id", GetRequestID(ctx)).
				Bytes("method", ctx.Method()).
				Bytes("path", ctx.Path()).
				Int("status", ctx.Response.StatusCode()).
				Dur("latency", time.Since(start)).
				Msg("request handled")
		}
	}
}
