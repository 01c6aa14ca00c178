package http

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/Conte777/NewsFlow/services/connector-service/config"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/diagnostics/usecase/business"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/metrics"
)

type okDoer struct{}

func (okDoer) DoTimeout(_ *fasthttp.Request, resp *fasthttp.Response, _ time.Duration) error {
	resp.SetStatusCode(fasthttp.StatusOK)
	return nil
}

func TestDiagnose(t *testing.T) {
	cfg := &config.DiagnosticsConfig{
		ProtocolHostURL:  "https://telegram.org",
		ConnectorURL:     "http://connector.local/api/v1/telegram",
		HostTimeout:      time.Second,
		DatastoreTimeout: time.Second,
		DeployTimeout:    time.Second,
	}
	uc := business.NewUseCase(cfg, nil, okDoer{}, zerolog.Nop(), metrics.GetDefaultMetrics())
	h := NewHandler(uc, zerolog.Nop())

	ctx := &fasthttp.RequestCtx{}
	h.Diagnose(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &out))
	assert.Equal(t, true, out["protocolHostReachable"])
	assert.Equal(t, false, out["supabaseReachable"])
	remote, ok := out["remoteFunction"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, remote["deployed"])
	assert.NotContains(t, out, "cors")
}
