package telegram

import (
	"context"
	"sync"
	"testing"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/NewsFlow/services/connector-service/config"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/metrics"
)

type fakeAuth struct {
	authorized  bool
	statusErr   error
	sentCode    tg.AuthSentCodeClass
	sendErr     error
	signInErr   error
	passwordErr error

	signInCalls int
}

func (a *fakeAuth) Status(context.Context) (*auth.Status, error) {
	if a.statusErr != nil {
		return nil, a.statusErr
	}
	return &auth.Status{Authorized: a.authorized}, nil
}

func (a *fakeAuth) SendCode(context.Context, string, auth.SendCodeOptions) (tg.AuthSentCodeClass, error) {
	return a.sentCode, a.sendErr
}

func (a *fakeAuth) SignIn(context.Context, string, string, string) (*tg.AuthAuthorization, error) {
	a.signInCalls++
	if a.signInErr != nil {
		return nil, a.signInErr
	}
	return &tg.AuthAuthorization{}, nil
}

func (a *fakeAuth) Password(context.Context, string) (*tg.AuthAuthorization, error) {
	if a.passwordErr != nil {
		return nil, a.passwordErr
	}
	return &tg.AuthAuthorization{}, nil
}

type fakeAPI struct {
	mu        sync.Mutex
	channels  map[string]*tg.Channel
	history   map[int64]tg.MessagesMessagesClass
	joinErr   map[int64]error
	forwarded []*tg.MessagesForwardMessagesRequest
	sent      []*tg.MessagesSendMessageRequest
	resolves  int
	loggedOut bool
}

func newFakeAPI(channels ...*tg.Channel) *fakeAPI {
	api := &fakeAPI{
		channels: make(map[string]*tg.Channel),
		history:  make(map[int64]tg.MessagesMessagesClass),
		joinErr:  make(map[int64]error),
	}
	for _, ch := range channels {
		api.channels[ch.Username] = ch
	}
	return api
}

func (a *fakeAPI) ContactsResolveUsername(_ context.Context, req *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resolves++
	ch, ok := a.channels[req.Username]
	if !ok {
		return nil, tgerr.New(400, "USERNAME_NOT_OCCUPIED")
	}
	return &tg.ContactsResolvedPeer{
		Peer:  &tg.PeerChannel{ChannelID: ch.ID},
		Chats: []tg.ChatClass{ch},
	}, nil
}

func (a *fakeAPI) ChannelsJoinChannel(_ context.Context, channel tg.InputChannelClass) (tg.UpdatesClass, error) {
	in := channel.(*tg.InputChannel)
	if err := a.joinErr[in.ChannelID]; err != nil {
		return nil, err
	}
	return &tg.Updates{}, nil
}

func (a *fakeAPI) MessagesGetHistory(_ context.Context, req *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) {
	peer := req.Peer.(*tg.InputPeerChannel)
	if h, ok := a.history[peer.ChannelID]; ok {
		return h, nil
	}
	return &tg.MessagesChannelMessages{}, nil
}

func (a *fakeAPI) MessagesForwardMessages(_ context.Context, req *tg.MessagesForwardMessagesRequest) (tg.UpdatesClass, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.forwarded = append(a.forwarded, req)
	return &tg.Updates{}, nil
}

func (a *fakeAPI) MessagesSendMessage(_ context.Context, req *tg.MessagesSendMessageRequest) (tg.UpdatesClass, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, req)
	return &tg.Updates{}, nil
}

func (a *fakeAPI) AuthLogOut(context.Context) (*tg.AuthLoggedOut, error) {
	a.loggedOut = true
	return &tg.AuthLoggedOut{}, nil
}

type fakeConn struct {
	auth     *fakeAuth
	api      *fakeAPI
	startErr error
	session  string
	opts     ConnOptions

	starts  int
	stopped bool
}

func (c *fakeConn) Start(context.Context) error {
	if c.startErr != nil {
		return c.startErr
	}
	c.starts++
	return nil
}

func (c *fakeConn) Stop(context.Context) error {
	c.stopped = true
	return nil
}

func (c *fakeConn) Auth() AuthAPI   { return c.auth }
func (c *fakeConn) API() RawAPI     { return c.api }
func (c *fakeConn) Session() string { return c.session }

func testParams() Params {
	return Params{
		AccountID:   "acc-1",
		APIID:       "12345",
		APIHash:     "0123456789abcdef",
		PhoneNumber: "+15550001111",
	}
}

func newTestClient(t *testing.T, conn *fakeConn, cfg *config.TelegramConfig) *Client {
	t.Helper()
	if cfg == nil {
		cfg = &config.TelegramConfig{RateLimit: 100}
	}
	factory := NewFactory(cfg, metrics.GetDefaultMetrics(), zerolog.Nop()).
		WithDialer(func(opts ConnOptions) (Conn, error) {
			conn.opts = opts
			return conn, nil
		})
	client, err := factory.Create(testParams())
	require.NoError(t, err)
	return client
}

func newChannel(id int64, username, title string) *tg.Channel {
	return &tg.Channel{ID: id, AccessHash: id * 10, Username: username, Title: title}
}
