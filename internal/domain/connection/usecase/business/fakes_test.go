package business

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/connector-service/config"
	accountentities "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/entities"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/repository/memory"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/connection/deps"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/listener"
	msgentities "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/entities"
	msgbusiness "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/usecase/business"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/metrics"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/session"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/telegram"
)

type fakeClient struct {
	mu sync.Mutex

	params  telegram.Params
	state   telegram.AuthState
	outcome telegram.ConnectOutcome
	// connectErrs are returned by successive Connect calls before outcome
	connectErrs []error
	block       chan struct{}
	started     chan struct{}
	startOnce   sync.Once

	authorized  bool
	authErr     error
	verifyErr   error
	passwordErr error
	exported    string
	history     map[string][]msgentities.Message
	reposted    []string
	sent        []string

	connects     int
	disconnected bool
	loggedOut    bool
	updates      chan msgentities.Message
}

func (c *fakeClient) AccountID() string { return c.params.AccountID }

func (c *fakeClient) State() telegram.AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeClient) setState(s telegram.AuthState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *fakeClient) IsAuthenticated(context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authErr != nil {
		return false, c.authErr
	}
	if c.authorized {
		c.state = telegram.StateAuthorized
	}
	return c.authorized, nil
}

func (c *fakeClient) Connect(context.Context) (telegram.ConnectOutcome, error) {
	if c.started != nil {
		c.startOnce.Do(func() { close(c.started) })
	}
	if c.block != nil {
		<-c.block
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	if len(c.connectErrs) > 0 {
		err := c.connectErrs[0]
		c.connectErrs = c.connectErrs[1:]
		return telegram.ConnectOutcome{}, err
	}
	if c.outcome.Authorized {
		c.state = telegram.StateAuthorized
	} else {
		c.state = telegram.StateAwaitingCode
	}
	return c.outcome, nil
}

func (c *fakeClient) VerifyCode(_ context.Context, code, hash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.verifyErr != nil {
		if errors.Is(c.verifyErr, telegram.ErrPasswordRequired) {
			c.state = telegram.StateAwaitingPassword
		} else {
			c.state = telegram.StateUnauthorized
		}
		return c.verifyErr
	}
	c.state = telegram.StateAuthorized
	c.exported = "verified-" + code + "-" + hash
	return nil
}

func (c *fakeClient) SubmitPassword(context.Context, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.passwordErr != nil {
		return c.passwordErr
	}
	c.state = telegram.StateAuthorized
	c.exported = "password-session"
	return nil
}

func (c *fakeClient) Validate(context.Context) (telegram.ProbeResult, error) {
	return telegram.ProbeResult{Reachable: true, Authorized: c.State() == telegram.StateAuthorized}, nil
}

func (c *fakeClient) ListenToChannels(_ context.Context, channels []string) ([]telegram.ListenResult, error) {
	out := make([]telegram.ListenResult, 0, len(channels))
	for _, ch := range channels {
		out = append(out, telegram.ListenResult{Channel: telegram.NormalizeChannel(ch), Success: true})
	}
	return out, nil
}

func (c *fakeClient) UnlistenChannels(context.Context, []string) error { return nil }

func (c *fakeClient) FetchMessages(_ context.Context, channel string, _ int) ([]msgentities.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]msgentities.Message(nil), c.history[channel]...), nil
}

func (c *fakeClient) Updates() <-chan msgentities.Message { return c.updates }

func (c *fakeClient) RepostMessage(_ context.Context, id int, source, destination string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reposted = append(c.reposted, source+"->"+destination)
	return nil
}

func (c *fakeClient) SendMessage(_ context.Context, destination, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, destination+": "+text)
	return nil
}

func (c *fakeClient) Session(context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exported, nil
}

func (c *fakeClient) LogOut(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loggedOut = true
	return nil
}

func (c *fakeClient) Disconnect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	return nil
}

func (c *fakeClient) wasDisconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

type fakeFactory struct {
	mu      sync.Mutex
	created []*fakeClient
	// configure customizes each new client; may be nil
	configure func(c *fakeClient)
}

func (f *fakeFactory) create(p telegram.Params) (deps.ProtocolClient, error) {
	c := &fakeClient{
		params:   p,
		state:    telegram.StateUnauthorized,
		exported: p.Session,
		outcome:  telegram.ConnectOutcome{CodeNeeded: true, PhoneCodeHash: "hash-1", CodeType: "App"},
		history:  make(map[string][]msgentities.Message),
		updates:  make(chan msgentities.Message),
	}
	if p.Session != "" {
		c.outcome = telegram.ConnectOutcome{Authorized: true}
		c.authorized = true
	}
	if f.configure != nil {
		f.configure(c)
	}

	f.mu.Lock()
	f.created = append(f.created, c)
	f.mu.Unlock()
	return c, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *fakeFactory) last() *fakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[len(f.created)-1]
}

type fakeRelay struct {
	mu      sync.Mutex
	batches []msgbusiness.Batch
}

func (r *fakeRelay) Relay(_ context.Context, batch msgbusiness.Batch) []msgentities.ProcessedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, batch)
	return nil
}

func (r *fakeRelay) Preview(msgs []msgentities.Message) []msgentities.Message {
	out := make([]msgentities.Message, 0, len(msgs))
	for _, m := range msgs {
		m.FinalText = "preview: " + m.Text
		out = append(out, m)
	}
	return out
}

func (r *fakeRelay) relayed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.batches {
		n += len(b.Messages)
	}
	return n
}

type harness struct {
	uc       *UseCase
	factory  *fakeFactory
	sessions *session.Store
	accounts *memory.Repository
	relay    *fakeRelay
}

func newHarness() *harness {
	m := metrics.GetDefaultMetrics()
	logger := zerolog.Nop()

	factory := &fakeFactory{}
	sessions := session.NewStore(session.NewMemoryBackend(), logger)
	accounts := memory.NewRepository()
	relay := &fakeRelay{}
	lcfg := &config.ListenerConfig{PollInterval: time.Hour, BackfillLimit: 20, MaxMessages: 100}
	registry := listener.NewRegistry(lcfg, sessions, m, logger)

	uc := NewUseCase(
		deps.ClientFactoryFunc(factory.create),
		sessions,
		accounts,
		registry,
		relay,
		&config.TelegramConfig{ConnectTimeout: 5 * time.Second},
		lcfg,
		logger,
		m,
	)
	uc.retryBase = time.Millisecond

	return &harness{uc: uc, factory: factory, sessions: sessions, accounts: accounts, relay: relay}
}

func testAccount() accountentities.Account {
	return accountentities.Account{
		ID:          "acc-1",
		Nickname:    "main",
		APIID:       "12345",
		APIHash:     "0123456789abcdef",
		PhoneNumber: "+15551234567",
	}
}
