package telegram

import (
	"context"
	"fmt"
	"sync"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/dcs"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"

	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

// AuthAPI is the subset of the gotd auth client used by the auth facet
type AuthAPI interface {
	Status(ctx context.Context) (*auth.Status, error)
	SendCode(ctx context.Context, phone string, options auth.SendCodeOptions) (tg.AuthSentCodeClass, error)
	SignIn(ctx context.Context, phone, code, codeHash string) (*tg.AuthAuthorization, error)
	Password(ctx context.Context, password string) (*tg.AuthAuthorization, error)
}

// RawAPI is the subset of the raw Telegram API used by the facets
type RawAPI interface {
	ContactsResolveUsername(ctx context.Context, request *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error)
	ChannelsJoinChannel(ctx context.Context, channel tg.InputChannelClass) (tg.UpdatesClass, error)
	MessagesGetHistory(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error)
	MessagesForwardMessages(ctx context.Context, request *tg.MessagesForwardMessagesRequest) (tg.UpdatesClass, error)
	MessagesSendMessage(ctx context.Context, request *tg.MessagesSendMessageRequest) (tg.UpdatesClass, error)
	AuthLogOut(ctx context.Context) (*tg.AuthLoggedOut, error)
}

// Conn is one live MTProto connection
type Conn interface {
	// Start connects and returns once the connection is usable. Calling it on
	// a running connection is a no-op.
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Auth() AuthAPI
	API() RawAPI
	// Session exports the current session string
	Session() string
}

// ChannelMessageHandler receives messages pushed for channels
type ChannelMessageHandler func(ctx context.Context, channel *tg.Channel, msg *tg.Message)

// ConnOptions configures a connection
type ConnOptions struct {
	APIID            int
	APIHash          string
	Session          string
	TestDC           bool
	DeviceModel      string
	Logger           zerolog.Logger
	OnChannelMessage ChannelMessageHandler
}

// Dialer builds a connection for the given options
type Dialer func(opts ConnOptions) (Conn, error)

// DialMTProto is the production dialer backed by gotd
func DialMTProto(opts ConnOptions) (Conn, error) {
	storage, err := newStringStorage(opts.Session)
	if err != nil {
		return nil, err
	}
	return &mtprotoConn{
		opts:    opts,
		storage: storage,
		logger:  opts.Logger.With().Str("component", "mtproto_conn").Logger(),
	}, nil
}

type mtprotoConn struct {
	opts    ConnOptions
	storage *stringStorage
	logger  zerolog.Logger

	mu         sync.Mutex
	client     *telegram.Client
	running    bool
	cancelFunc context.CancelFunc
	runDone    chan struct{}
}

// Start runs the gotd client in the background. The connection outlives ctx,
// which only bounds the wait for readiness.
func (c *mtprotoConn) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnNewChannelMessage(c.onNewChannelMessage)

	options := telegram.Options{
		SessionStorage: c.storage,
		UpdateHandler:  dispatcher,
		Device:         telegram.DeviceConfig{DeviceModel: c.opts.DeviceModel},
	}
	if c.opts.TestDC {
		options.DCList = dcs.Test()
	}
	client := telegram.NewClient(c.opts.APIID, c.opts.APIHash, options)

	runCtx, cancel := context.WithCancel(context.Background())
	readyChan := make(chan struct{})
	errChan := make(chan error, 1)
	runDone := make(chan struct{})

	go func() {
		defer close(runDone)
		err := client.Run(runCtx, func(ctx context.Context) error {
			close(readyChan)
			<-ctx.Done()
			return ctx.Err()
		})
		errChan <- err

		c.mu.Lock()
		if c.runDone == runDone {
			c.running = false
			c.client = nil
		}
		c.mu.Unlock()
	}()

	select {
	case <-readyChan:
		c.client = client
		c.running = true
		c.cancelFunc = cancel
		c.runDone = runDone
		c.logger.Debug().Msg("connection ready")
		return nil
	case err := <-errChan:
		cancel()
		if err == nil {
			err = fmt.Errorf("client stopped before becoming ready")
		}
		return classify(err, "connect")
	case <-ctx.Done():
		cancel()
		return classify(ctx.Err(), "connect")
	}
}

// Stop cancels the run loop and waits for it to finish or ctx to expire
func (c *mtprotoConn) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	cancel := c.cancelFunc
	runDone := c.runDone
	c.running = false
	c.client = nil
	c.cancelFunc = nil
	c.runDone = nil
	c.mu.Unlock()

	cancel()
	select {
	case <-runDone:
		c.logger.Debug().Msg("connection stopped")
	case <-ctx.Done():
		c.logger.Warn().Msg("timeout waiting for connection shutdown")
	}
	return nil
}

func (c *mtprotoConn) Auth() AuthAPI {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return notRunning{}
	}
	return c.client.Auth()
}

func (c *mtprotoConn) API() RawAPI {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return notRunning{}
	}
	return c.client.API()
}

func (c *mtprotoConn) Session() string {
	return c.storage.export()
}

func (c *mtprotoConn) onNewChannelMessage(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
	if c.opts.OnChannelMessage == nil {
		return nil
	}
	msg, ok := u.Message.(*tg.Message)
	if !ok {
		return nil
	}
	peer, ok := msg.PeerID.(*tg.PeerChannel)
	if !ok {
		return nil
	}
	channel, ok := e.Channels[peer.ChannelID]
	if !ok {
		return nil
	}
	c.opts.OnChannelMessage(ctx, channel, msg)
	return nil
}

var errNotConnected = pkgerrors.New(pkgerrors.KindTransportFailure, "not connected to Telegram")

// notRunning answers every call on a stopped connection
type notRunning struct{}

func (notRunning) Status(context.Context) (*auth.Status, error) { return nil, errNotConnected }

func (notRunning) SendCode(context.Context, string, auth.SendCodeOptions) (tg.AuthSentCodeClass, error) {
	return nil, errNotConnected
}

func (notRunning) SignIn(context.Context, string, string, string) (*tg.AuthAuthorization, error) {
	return nil, errNotConnected
}

func (notRunning) Password(context.Context, string) (*tg.AuthAuthorization, error) {
	return nil, errNotConnected
}

func (notRunning) ContactsResolveUsername(context.Context, *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error) {
	return nil, errNotConnected
}

func (notRunning) ChannelsJoinChannel(context.Context, tg.InputChannelClass) (tg.UpdatesClass, error) {
	return nil, errNotConnected
}

func (notRunning) MessagesGetHistory(context.Context, *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) {
	return nil, errNotConnected
}

func (notRunning) MessagesForwardMessages(context.Context, *tg.MessagesForwardMessagesRequest) (tg.UpdatesClass, error) {
	return nil, errNotConnected
}

func (notRunning) MessagesSendMessage(context.Context, *tg.MessagesSendMessageRequest) (tg.UpdatesClass, error) {
	return nil, errNotConnected
}

func (notRunning) AuthLogOut(context.Context) (*tg.AuthLoggedOut, error) { return nil, errNotConnected }
