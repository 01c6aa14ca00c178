package telegram

import (
	"context"
	"strconv"
	"time"

	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Conte777/NewsFlow/services/connector-service/config"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/validator"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/metrics"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/session"
	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

// Factory builds protocol clients. It is the single place where credentials
// and sessions enter the protocol layer.
type Factory struct {
	cfg     *config.TelegramConfig
	dial    Dialer
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewFactory creates a factory dialing real MTProto connections
func NewFactory(cfg *config.TelegramConfig, m *metrics.Metrics, logger zerolog.Logger) *Factory {
	return &Factory{
		cfg:     cfg,
		dial:    DialMTProto,
		metrics: m,
		logger:  logger,
	}
}

// WithDialer replaces the connection dialer
func (f *Factory) WithDialer(dial Dialer) *Factory {
	f.dial = dial
	return f
}

// Create validates the credentials and builds an unconnected client. A
// blank or "no-session" session starts fresh.
func (f *Factory) Create(p Params) (*Client, error) {
	if err := validator.ValidateAPIID(p.APIID); err != nil {
		return nil, err
	}
	if p.APIHash == "" {
		return nil, pkgerrors.New(pkgerrors.KindInvalidCredentials, "API hash is required")
	}
	apiID, _ := strconv.Atoi(p.APIID)

	log := newClientLogger(f.logger, p)
	state := newAuthMachine()

	var messages *messageFacet
	conn, err := f.dial(ConnOptions{
		APIID:       apiID,
		APIHash:     p.APIHash,
		Session:     session.Normalize(p.Session),
		TestDC:      f.cfg.TestDC,
		DeviceModel: f.cfg.DeviceModel,
		Logger:      log,
		OnChannelMessage: func(ctx context.Context, channel *tg.Channel, msg *tg.Message) {
			messages.handlePush(ctx, channel, msg)
		},
	})
	if err != nil {
		return nil, err
	}

	limit := f.cfg.RateLimit
	if limit <= 0 {
		limit = 10
	}
	messages = newMessageFacet(conn, state, rate.NewLimiter(rate.Every(time.Second/time.Duration(limit)), limit), f.metrics, log)

	testCode := ""
	if f.cfg.TestDC {
		testCode = f.cfg.TestCode
	}

	return &Client{
		accountID:  p.AccountID,
		apiID:      apiID,
		phone:      p.PhoneNumber,
		conn:       conn,
		state:      state,
		auth:       newAuthFacet(conn, state, p.PhoneNumber, testCode, log),
		messages:   messages,
		validation: &validationFacet{conn: conn},
		logger:     log,
	}, nil
}
