package telegram

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/entities"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/logger"
)

const disconnectTimeout = 10 * time.Second

// Client is a per-account protocol client composed of three facets
type Client struct {
	accountID string
	apiID     int
	phone     string

	conn       Conn
	state      *authMachine
	auth       AuthFacet
	messages   *messageFacet
	validation ValidationFacet
	logger     zerolog.Logger
}

func (c *Client) AccountID() string   { return c.accountID }
func (c *Client) APIID() int          { return c.apiID }
func (c *Client) PhoneNumber() string { return c.phone }
func (c *Client) State() AuthState    { return c.state.current() }

// Auth returns the auth facet
func (c *Client) Auth() AuthFacet { return c.auth }

// Messages returns the message facet
func (c *Client) Messages() MessageFacet { return c.messages }

// Validation returns the validation facet
func (c *Client) Validation() ValidationFacet { return c.validation }

// IsAuthenticated connects if needed and reports whether the session is authorized
func (c *Client) IsAuthenticated(ctx context.Context) (bool, error) {
	if err := c.conn.Start(ctx); err != nil {
		return false, err
	}
	return c.auth.IsAuthenticated(ctx)
}

// Connect resumes an authorized session or requests a verification code
func (c *Client) Connect(ctx context.Context) (ConnectOutcome, error) {
	ok, err := c.IsAuthenticated(ctx)
	if err != nil {
		return ConnectOutcome{}, err
	}
	if ok {
		c.logger.Info().Msg("session restored")
		return ConnectOutcome{Authorized: true}, nil
	}
	return c.auth.RequestCode(ctx)
}

// VerifyCode completes sign in. ErrPasswordRequired means SubmitPassword must follow.
func (c *Client) VerifyCode(ctx context.Context, code, phoneCodeHash string) error {
	if err := c.conn.Start(ctx); err != nil {
		return err
	}
	return c.auth.VerifyCode(ctx, code, phoneCodeHash)
}

func (c *Client) SubmitPassword(ctx context.Context, password string) error {
	if err := c.conn.Start(ctx); err != nil {
		return err
	}
	return c.auth.SubmitPassword(ctx, password)
}

// Validate probes the credentials without signing in
func (c *Client) Validate(ctx context.Context) (ProbeResult, error) {
	return c.validation.Probe(ctx)
}

func (c *Client) ListenToChannels(ctx context.Context, channels []string) ([]ListenResult, error) {
	return c.messages.ListenToChannels(ctx, channels)
}

func (c *Client) UnlistenChannels(ctx context.Context, channels []string) error {
	return c.messages.UnlistenChannels(ctx, channels)
}

func (c *Client) FetchMessages(ctx context.Context, channel string, limit int) ([]entities.Message, error) {
	return c.messages.FetchMessages(ctx, channel, limit)
}

func (c *Client) RepostMessage(ctx context.Context, messageID int, source, destination string) error {
	return c.messages.RepostMessage(ctx, messageID, source, destination)
}

func (c *Client) SendMessage(ctx context.Context, destination, text string) error {
	return c.messages.SendMessage(ctx, destination, text)
}

// Updates streams messages pushed for subscribed channels. The channel is
// closed by Disconnect.
func (c *Client) Updates() <-chan entities.Message {
	return c.messages.Updates()
}

// Session exports the current session string, empty before a connection
// produced one
func (c *Client) Session(_ context.Context) (string, error) {
	return c.conn.Session(), nil
}

// LogOut terminates the session on the server side
func (c *Client) LogOut(ctx context.Context) error {
	return c.auth.LogOut(ctx)
}

// Disconnect stops the connection and releases the updates stream
func (c *Client) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, disconnectTimeout)
	defer cancel()

	c.messages.close()
	err := c.conn.Stop(ctx)
	c.logger.Info().Msg("client disconnected")
	return err
}

func newClientLogger(base zerolog.Logger, p Params) zerolog.Logger {
	return base.With().
		Str("component", "telegram_client").
		Str("account_id", p.AccountID).
		Str("phone", logger.MaskPhone(p.PhoneNumber)).
		Logger()
}
