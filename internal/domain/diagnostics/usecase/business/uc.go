package business

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"

	"github.com/Conte777/NewsFlow/services/connector-service/config"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/diagnostics/deps"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/diagnostics/entities"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/metrics"
	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

// Remediation hints attached to failed probes
const (
	HintNetwork    = "Check network connectivity to the Telegram servers"
	HintDatastore  = "Check network connectivity and credentials of the database"
	HintDeployment = "Check that the connector is deployed and reachable at the configured URL"
	HintCORS       = "Check the CORS configuration of the connector (CORS_ALLOWED_ORIGIN)"
)

// UseCase runs the connectivity probes
type UseCase struct {
	cfg    *config.DiagnosticsConfig
	pinger deps.Pinger
	client deps.HTTPDoer
	logger zerolog.Logger
	m      *metrics.Metrics
}

// NewUseCase creates a new diagnostics use case
func NewUseCase(
	cfg *config.DiagnosticsConfig,
	pinger deps.Pinger,
	client deps.HTTPDoer,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *UseCase {
	return &UseCase{
		cfg:    cfg,
		pinger: pinger,
		client: client,
		logger: logger.With().Str("component", "diagnostics").Logger(),
		m:      m,
	}
}

// Run executes every probe concurrently. Probes never fail the run; each
// one resolves to a record in the report.
func (uc *UseCase) Run(ctx context.Context) *entities.Report {
	var (
		host, store, deploy entities.Probe
		cors                *entities.CORSResult
		corsProbe           entities.Probe
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		host = uc.probeHost(gctx)
		return nil
	})
	g.Go(func() error {
		store = uc.probeDatastore(gctx)
		return nil
	})
	g.Go(func() error {
		deploy = uc.probeDeployment(gctx)
		return nil
	})
	if uc.cfg.Origin != "" {
		g.Go(func() error {
			cors, corsProbe = uc.probeCORS(gctx)
			return nil
		})
	}
	_ = g.Wait()

	report := &entities.Report{
		SupabaseReachable:     store.Success,
		ProtocolHostReachable: host.Success,
		RemoteFunction: entities.RemoteFunction{
			Deployed: deploy.Success,
			URL:      uc.cfg.ConnectorURL,
			Error:    deploy.Error,
		},
		Probes: []entities.Probe{host, store, deploy},
	}
	if cors != nil {
		cors.PostTest = deploy.Success
		report.CORS = cors
		report.Probes = append(report.Probes, corsProbe)
	}

	uc.logger.Info().
		Bool("protocol_host", host.Success).
		Bool("datastore", store.Success).
		Bool("deployment", deploy.Success).
		Bool("cors", cors == nil || cors.Success).
		Msg("Diagnostics completed")

	return report
}

func (uc *UseCase) probeHost(ctx context.Context) entities.Probe {
	start := time.Now()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uc.cfg.ProtocolHostURL)
	req.Header.SetMethod(fasthttp.MethodGet)

	// Any HTTP answer, redirects included, proves reachability.
	err := uc.client.DoTimeout(req, resp, timeoutFor(ctx, uc.cfg.HostTimeout))
	return uc.record(entities.ProbeProtocolHost, start, err, HintNetwork)
}

func (uc *UseCase) probeDatastore(ctx context.Context) entities.Probe {
	start := time.Now()
	if uc.pinger == nil {
		return uc.record(entities.ProbeDatastore, start, pkgerrors.New(pkgerrors.KindTransportFailure, "datastore is not configured"), HintDatastore)
	}

	pctx, cancel := context.WithTimeout(ctx, uc.cfg.DatastoreTimeout)
	defer cancel()

	return uc.record(entities.ProbeDatastore, start, uc.pinger.Ping(pctx), HintDatastore)
}

func (uc *UseCase) probeDeployment(ctx context.Context) entities.Probe {
	start := time.Now()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uc.cfg.ConnectorURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBodyString(`{"operation":"healthcheck"}`)

	// Cold starts are slow; only an answer outside 2xx counts as not deployed.
	err := uc.client.DoTimeout(req, resp, timeoutFor(ctx, uc.cfg.DeployTimeout))
	if err != nil {
		err = pkgerrors.Wrap(pkgerrors.KindDeploymentUnavailable, err, "connector did not answer")
	} else if code := resp.StatusCode(); code < 200 || code >= 300 {
		err = pkgerrors.Newf(pkgerrors.KindDeploymentUnavailable, "connector answered HTTP %d", code)
	}
	return uc.record(entities.ProbeDeployment, start, err, HintDeployment)
}

func (uc *UseCase) probeCORS(ctx context.Context) (*entities.CORSResult, entities.Probe) {
	start := time.Now()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uc.cfg.ConnectorURL)
	req.Header.SetMethod(fasthttp.MethodOptions)
	req.Header.Set("Origin", uc.cfg.Origin)
	req.Header.Set("Access-Control-Request-Method", fasthttp.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")

	result := &entities.CORSResult{Headers: map[string]string{}}

	err := uc.client.DoTimeout(req, resp, timeoutFor(ctx, uc.cfg.CORSTimeout))
	if err == nil {
		result.Status = resp.StatusCode()
		resp.Header.VisitAll(func(key, value []byte) {
			k := string(key)
			if strings.HasPrefix(strings.ToLower(k), "access-control-") {
				result.Headers[k] = string(value)
			}
		})

		allowed := string(resp.Header.Peek("Access-Control-Allow-Origin"))
		switch {
		case result.Status < 200 || result.Status >= 300:
			err = pkgerrors.Newf(pkgerrors.KindDeploymentUnavailable, "preflight answered HTTP %d", result.Status)
		case allowed != "*" && allowed != uc.cfg.Origin:
			err = pkgerrors.Newf(pkgerrors.KindDeploymentUnavailable, "origin %s is not allowed", uc.cfg.Origin)
		}
	}
	result.Success = err == nil

	return result, uc.record(entities.ProbeCORS, start, err, HintCORS)
}

func (uc *UseCase) record(name string, start time.Time, err error, hint string) entities.Probe {
	elapsed := time.Since(start)
	uc.m.RecordProbe(name, err == nil, elapsed.Seconds())

	p := entities.Probe{
		Name:      name,
		Success:   err == nil,
		LatencyMs: elapsed.Milliseconds(),
	}
	if err != nil {
		p.Error = err.Error()
		p.Remediation = hint
		uc.logger.Warn().Err(err).Str("probe", name).Msg("Probe failed")
	}
	return p
}

// timeoutFor bounds d by the remaining time of ctx
func timeoutFor(ctx context.Context, d time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			return left
		}
	}
	return d
}
