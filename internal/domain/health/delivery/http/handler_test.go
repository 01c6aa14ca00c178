package http

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type fakeDatastore struct{ err error }

func (f fakeDatastore) Ping(context.Context) error { return f.err }

type fakeSessions struct{ err error }

func (f fakeSessions) Exists(context.Context, string) (bool, error) { return false, f.err }

type fakeListeners int

func (f fakeListeners) Count() int { return int(f) }

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		dbErr      error
		sessErr    error
		wantStatus HealthStatus
		wantCode   int
	}{
		{"healthy", nil, nil, HealthStatusHealthy, fasthttp.StatusOK},
		{"database down", errors.New("refused"), nil, HealthStatusDegraded, fasthttp.StatusOK},
		{"session store down", nil, errors.New("disk"), HealthStatusUnhealthy, fasthttp.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(fakeDatastore{tt.dbErr}, fakeSessions{tt.sessErr}, fakeListeners(2), zerolog.Nop())
			ctx := &fasthttp.RequestCtx{}

			h.Health(ctx)

			assert.Equal(t, tt.wantCode, ctx.Response.StatusCode())
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			require.Len(t, resp.Components, 3)
			assert.Equal(t, "2 active", resp.Components[2].Message)
		})
	}
}
