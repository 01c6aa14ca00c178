package business

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Conte777/NewsFlow/services/connector-service/config"
	accountdeps "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/deps"
	accountentities "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/entities"
	accounterrors "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/errors"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/validator"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/connection/deps"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/connection/entities"
	connerrors "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/connection/errors"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/listener"
	msgentities "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/entities"
	msgbusiness "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/usecase/business"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/metrics"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/session"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/telegram"
	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

const (
	validateTimeout = 5 * time.Second
	listenTimeout   = 60 * time.Second
)

// UseCase orchestrates per-account connections: login, session
// persistence, realtime listeners and one-shot protocol operations
type UseCase struct {
	factory    deps.ClientFactory
	sessions   deps.SessionStore
	accounts   accountdeps.AccountRepository
	listeners  *listener.Registry
	relay      deps.Relay
	clients    *clientRegistry
	challenges *challengeStore
	flights    singleflight.Group

	connectTimeout  time.Duration
	validateTimeout time.Duration
	listenTimeout   time.Duration
	backfillLimit   int
	retryBase       time.Duration

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewUseCase creates a new connection orchestrator
func NewUseCase(
	factory deps.ClientFactory,
	sessions deps.SessionStore,
	accounts accountdeps.AccountRepository,
	listeners *listener.Registry,
	relay deps.Relay,
	tgCfg *config.TelegramConfig,
	listenerCfg *config.ListenerConfig,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *UseCase {
	connectTimeout := tgCfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 60 * time.Second
	}

	return &UseCase{
		factory:         factory,
		sessions:        sessions,
		accounts:        accounts,
		listeners:       listeners,
		relay:           relay,
		clients:         newClientRegistry(m),
		challenges:      newChallengeStore(ChallengeTTL),
		connectTimeout:  connectTimeout,
		validateTimeout: validateTimeout,
		listenTimeout:   listenTimeout,
		backfillLimit:   listenerCfg.BackfillLimit,
		retryBase:       retryBase,
		logger:          logger.With().Str("component", "connection_orchestrator").Logger(),
		metrics:         m,
	}
}

// Connect resumes the account's stored session or requests a login code.
// Concurrent connects of one account share a single attempt.
func (u *UseCase) Connect(ctx context.Context, account accountentities.Account, sessionHint string) (*entities.ConnectResult, error) {
	if err := checkAccount(account); err != nil {
		return nil, err
	}

	v, err := u.collapse(ctx, "connect:"+account.ID, u.connectTimeout, func(ctx context.Context) (interface{}, error) {
		return u.connect(ctx, account, sessionHint)
	})
	if err != nil {
		return nil, err
	}
	return v.(*entities.ConnectResult), nil
}

func (u *UseCase) connect(ctx context.Context, account accountentities.Account, sessionHint string) (*entities.ConnectResult, error) {
	start := time.Now()
	outcome := "error"
	defer func() {
		u.metrics.RecordConnect(outcome, time.Since(start).Seconds())
	}()

	if c := u.clients.get(account.ID); c != nil && c.State() == telegram.StateAuthorized {
		if sess, err := c.Session(ctx); err == nil {
			outcome = "authorized"
			return &entities.ConnectResult{Authenticated: true, Session: sess}, nil
		}
	}

	sess, stored, err := u.loadSession(ctx, account.ID, sessionHint)
	if err != nil {
		return nil, err
	}

	res, err := u.connectWith(ctx, account, sess)
	if err != nil && sess != "" && pkgerrors.KindOf(err) == pkgerrors.KindAuthenticationRequired {
		u.logger.Warn().Err(err).Str("account_id", account.ID).Msg("Session rejected, starting a fresh login")
		if stored {
			u.clearSession(ctx, account.ID, "rejected")
		}
		res, err = u.connectWith(ctx, account, "")
	}
	if err != nil {
		return nil, err
	}

	if res.Authenticated {
		outcome = "authorized"
	} else {
		outcome = "code_sent"
	}
	return res, nil
}

func (u *UseCase) connectWith(ctx context.Context, account accountentities.Account, sess string) (*entities.ConnectResult, error) {
	client, err := u.factory.Create(params(account, sess))
	if err != nil {
		return nil, err
	}

	var out telegram.ConnectOutcome
	err = u.withRetry(ctx, connectOp, func(ctx context.Context) error {
		var err error
		out, err = client.Connect(ctx)
		return err
	})
	if err != nil {
		u.disconnect(client)
		return nil, err
	}

	u.register(account.ID, client)

	if out.Authorized {
		u.logger.Info().Str("account_id", account.ID).Msg("Session resumed")
		return u.persist(ctx, account.ID, client)
	}

	interim, err := client.Session(ctx)
	if err != nil {
		u.logger.Debug().Err(err).Str("account_id", account.ID).Msg("No interim session to hand out")
	}
	u.challenges.put(account.ID, out.PhoneCodeHash, interim)

	return &entities.ConnectResult{
		CodeNeeded:    true,
		PhoneCodeHash: out.PhoneCodeHash,
		CodeType:      out.CodeType,
		CodeTimeout:   out.CodeTimeout,
		TestCode:      out.TestCode,
		Session:       interim,
	}, nil
}

// Verify completes the login with the code sent by Connect. The stored
// session is written before Verify returns.
func (u *UseCase) Verify(
	ctx context.Context,
	account accountentities.Account,
	code, phoneCodeHash, sessionHint string,
) (*entities.ConnectResult, error) {
	if err := checkAccount(account); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.KindInvalidVerificationCode, "verification code is required")
	}

	ch, found := u.challenges.take(account.ID, phoneCodeHash)

	if c := u.clients.get(account.ID); c != nil && c.State() == telegram.StateAuthorized {
		if sess, err := c.Session(ctx); err == nil {
			return &entities.ConnectResult{Authenticated: true, Session: sess}, nil
		}
	}

	hash := phoneCodeHash
	if hash == "" && found {
		hash = ch.phoneCodeHash
	}
	if hash == "" {
		return nil, connerrors.ErrChallengeExpired
	}

	client := u.clients.get(account.ID)
	if client == nil || client.State() != telegram.StateAwaitingCode {
		interim := session.Normalize(sessionHint)
		if found && ch.interimSession != "" {
			interim = ch.interimSession
		}
		var err error
		client, err = u.factory.Create(params(account, interim))
		if err != nil {
			return nil, err
		}
		u.register(account.ID, client)
	}

	err := u.withRetry(ctx, verifyOp, func(ctx context.Context) error {
		return client.VerifyCode(ctx, code, hash)
	})
	switch {
	case err == nil:
		u.metrics.RecordVerification("success")
		u.logger.Info().Str("account_id", account.ID).Msg("Account verified")
		return u.persist(ctx, account.ID, client)
	case errors.Is(err, telegram.ErrPasswordRequired):
		u.metrics.RecordVerification("password_needed")
		return &entities.ConnectResult{PasswordNeeded: true}, nil
	default:
		u.metrics.RecordVerification("failed")
		u.dropIfUnauthorized(account.ID, client)
		return nil, err
	}
}

// SubmitPassword completes a login that requires a two-factor password
func (u *UseCase) SubmitPassword(ctx context.Context, account accountentities.Account, password string) (*entities.ConnectResult, error) {
	if err := checkAccount(account); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, pkgerrors.New(pkgerrors.KindInvalidVerificationCode, "password is required")
	}

	client := u.clients.get(account.ID)
	if client == nil || client.State() != telegram.StateAwaitingPassword {
		return nil, connerrors.ErrNoPasswordPending
	}

	err := u.withRetry(ctx, passwordOp, func(ctx context.Context) error {
		return client.SubmitPassword(ctx, password)
	})
	if err != nil {
		u.metrics.RecordVerification("password_failed")
		u.dropIfUnauthorized(account.ID, client)
		return nil, err
	}

	u.metrics.RecordVerification("success")
	return u.persist(ctx, account.ID, client)
}

// Disconnect stops the account's listener and drops its client. The stored
// session survives unless logout is requested.
func (u *UseCase) Disconnect(ctx context.Context, accountID string, logout bool) error {
	if accountID == "" {
		return connerrors.ErrAccountIDRequired
	}

	if err := u.listeners.Stop(ctx, accountID); err != nil {
		u.logger.Warn().Err(err).Str("account_id", accountID).Msg("Failed to stop listener")
	}
	u.challenges.drop(accountID)

	if client := u.clients.remove(accountID); client != nil {
		if logout && client.State() == telegram.StateAuthorized {
			if err := client.LogOut(ctx); err != nil {
				u.logger.Warn().Err(err).Str("account_id", accountID).Msg("Remote log out failed")
			}
		}
		u.disconnect(client)
	}

	if logout {
		if err := u.sessions.Clear(ctx, accountID); err != nil {
			return pkgerrors.NewInternalError("failed to clear session", err)
		}
		u.metrics.RecordSessionClear("logout")
	}

	u.logger.Info().Str("account_id", accountID).Bool("logout", logout).Msg("Account disconnected")
	return nil
}

// Status reports the connection state of an account
func (u *UseCase) Status(ctx context.Context, accountID string) (*entities.Status, error) {
	if accountID == "" {
		return nil, connerrors.ErrAccountIDRequired
	}

	hasSession, err := u.sessions.Exists(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to read session", err)
	}

	st := &entities.Status{
		AccountID:  accountID,
		AuthState:  telegram.StateUnauthorized,
		HasSession: hasSession,
	}
	if c := u.clients.get(accountID); c != nil {
		st.Connected = true
		st.AuthState = c.State()
	}
	_, st.Listening = u.listeners.Get(accountID)
	return st, nil
}

// Validate probes the credentials against Telegram
func (u *UseCase) Validate(ctx context.Context, account accountentities.Account) (*entities.ValidateResult, error) {
	if err := validator.ValidateCredentials(account.APIID, account.APIHash, account.PhoneNumber); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, u.validateTimeout)
	defer cancel()

	client := u.clients.get(account.ID)
	if client == nil {
		var sess string
		if account.ID != "" {
			stored, _, err := u.sessions.Get(ctx, account.ID)
			if err != nil {
				u.logger.Debug().Err(err).Str("account_id", account.ID).Msg("Validating without stored session")
			}
			sess = stored
		}

		c, err := u.factory.Create(params(account, sess))
		if err != nil {
			return nil, err
		}
		defer u.disconnect(c)
		client = c
	}

	probe, err := client.Validate(ctx)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, pkgerrors.Wrap(pkgerrors.KindTransportFailure, err, "validation timed out")
		}
		return nil, err
	}

	return &entities.ValidateResult{
		Valid:      true,
		Reachable:  probe.Reachable,
		Authorized: probe.Authorized,
	}, nil
}

// Listen subscribes the given channels once and returns their recent
// history run through the transformer
func (u *UseCase) Listen(
	ctx context.Context,
	account accountentities.Account,
	channelNames []string,
	sessionHint string,
) (*entities.ListenResult, error) {
	if err := checkAccount(account); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(channelNames))
	for _, n := range channelNames {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return nil, pkgerrors.New(pkgerrors.KindNoChannelsConfigured, "no channel names given")
	}

	ctx, cancel := context.WithTimeout(ctx, u.listenTimeout)
	defer cancel()

	client, err := u.resume(ctx, account, sessionHint)
	if err != nil {
		return nil, err
	}

	var results []telegram.ListenResult
	err = u.withRetry(ctx, listenOp, func(ctx context.Context) error {
		var err error
		results, err = client.ListenToChannels(ctx, names)
		return err
	})
	if err != nil {
		return nil, err
	}

	msgs := make([]msgentities.Message, 0)
	for _, r := range results {
		if !r.Success {
			continue
		}
		fetched, err := client.FetchMessages(ctx, r.Channel, u.backfillLimit)
		if err != nil {
			u.logger.Warn().Err(err).Str("channel", r.Channel).Msg("Backfill failed")
			continue
		}
		msgs = append(msgs, fetched...)
	}

	return &entities.ListenResult{
		Results:  results,
		Messages: u.relay.Preview(msgs),
	}, nil
}

// Repost forwards one message from source to target
func (u *UseCase) Repost(
	ctx context.Context,
	account accountentities.Account,
	messageID int,
	source, target, sessionHint string,
) error {
	if err := checkAccount(account); err != nil {
		return err
	}
	if messageID <= 0 {
		return pkgerrors.NewValidationError("messageId must be a positive number")
	}
	if strings.TrimSpace(source) == "" || strings.TrimSpace(target) == "" {
		return pkgerrors.NewValidationError("sourceChannel and targetChannel are required")
	}

	client, err := u.resume(ctx, account, sessionHint)
	if err != nil {
		return err
	}

	return u.withRetry(ctx, repostOp, func(ctx context.Context) error {
		return client.RepostMessage(ctx, messageID, source, target)
	})
}

// Shutdown stops every listener and disconnects every client
func (u *UseCase) Shutdown(ctx context.Context) {
	u.listeners.StopAll(ctx)
	for id, c := range u.clients.drain() {
		if err := c.Disconnect(ctx); err != nil {
			u.logger.Warn().Err(err).Str("account_id", id).Msg("Failed to disconnect client")
		}
	}
}

// resume returns an authorized client for the account, restoring it from
// the stored session when none is live. It never requests a login code.
func (u *UseCase) resume(ctx context.Context, account accountentities.Account, sessionHint string) (deps.ProtocolClient, error) {
	if c := u.clients.get(account.ID); c != nil && c.State() == telegram.StateAuthorized {
		return c, nil
	}

	v, err := u.collapse(ctx, "resume:"+account.ID, u.connectTimeout, func(ctx context.Context) (interface{}, error) {
		return u.restore(ctx, account, sessionHint)
	})
	if err != nil {
		return nil, err
	}
	return v.(deps.ProtocolClient), nil
}

func (u *UseCase) restore(ctx context.Context, account accountentities.Account, sessionHint string) (deps.ProtocolClient, error) {
	if c := u.clients.get(account.ID); c != nil && c.State() == telegram.StateAuthorized {
		return c, nil
	}

	sess, stored, err := u.loadSession(ctx, account.ID, sessionHint)
	if err != nil {
		return nil, err
	}
	if sess == "" {
		return nil, connerrors.ErrNotAuthorized
	}

	client, err := u.factory.Create(params(account, sess))
	if err != nil {
		return nil, err
	}

	var ok bool
	err = u.withRetry(ctx, resumeOp, func(ctx context.Context) error {
		var err error
		ok, err = client.IsAuthenticated(ctx)
		return err
	})
	if err != nil {
		u.disconnect(client)
		if stored && pkgerrors.KindOf(err) == pkgerrors.KindAuthenticationRequired {
			u.clearSession(ctx, account.ID, "rejected")
		}
		return nil, err
	}
	if !ok {
		u.disconnect(client)
		if stored {
			u.clearSession(ctx, account.ID, "unauthorized")
		}
		return nil, connerrors.ErrNotAuthorized
	}

	if !stored {
		if _, err := u.persist(ctx, account.ID, client); err != nil {
			u.disconnect(client)
			return nil, err
		}
	}

	u.register(account.ID, client)
	return client, nil
}

// collapse runs fn once per key among concurrent callers. The shared call
// is detached from any single caller's cancellation and bounded by timeout.
func (u *UseCase) collapse(
	ctx context.Context,
	key string,
	timeout time.Duration,
	fn func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	ch := u.flights.DoChan(key, func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return fn(runCtx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, pkgerrors.Wrap(pkgerrors.KindTransportFailure, ctx.Err(), "request cancelled")
	}
}

// loadSession returns the stored session, falling back to the caller's
// hint. stored reports whether the value came from the store; a hint is
// only written once the protocol reports it authorized.
func (u *UseCase) loadSession(ctx context.Context, accountID, hint string) (sess string, stored bool, err error) {
	sess, ok, err := u.sessions.Get(ctx, accountID)
	if err != nil {
		return "", false, pkgerrors.NewInternalError("failed to load session", err)
	}
	if ok {
		return sess, true, nil
	}
	return session.Normalize(hint), false, nil
}

func (u *UseCase) persist(ctx context.Context, accountID string, client deps.ProtocolClient) (*entities.ConnectResult, error) {
	sess, err := client.Session(ctx)
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to export session", err)
	}
	if err := u.sessions.Put(ctx, accountID, sess); err != nil {
		return nil, pkgerrors.NewInternalError("failed to store session", err)
	}
	u.metrics.RecordSessionWrite()
	return &entities.ConnectResult{Authenticated: true, Session: sess}, nil
}

func (u *UseCase) clearSession(ctx context.Context, accountID, reason string) {
	if err := u.sessions.Clear(context.WithoutCancel(ctx), accountID); err != nil {
		u.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to clear session")
		return
	}
	u.metrics.RecordSessionClear(reason)
}

// register makes client the live client of the account, disconnecting the
// one it replaces
func (u *UseCase) register(accountID string, client deps.ProtocolClient) {
	if prev := u.clients.put(accountID, client); prev != nil {
		u.disconnect(prev)
	}
}

func (u *UseCase) dropIfUnauthorized(accountID string, client deps.ProtocolClient) {
	if client.State() != telegram.StateUnauthorized {
		return
	}
	u.clients.removeIf(accountID, client)
	u.disconnect(client)
}

func (u *UseCase) disconnect(client deps.ProtocolClient) {
	if err := client.Disconnect(context.Background()); err != nil {
		u.logger.Debug().Err(err).Str("account_id", client.AccountID()).Msg("Disconnect failed")
	}
}

func (u *UseCase) loadAccount(ctx context.Context, accountID string) (*accountentities.Account, []accountentities.ChannelPair, error) {
	if accountID == "" {
		return nil, nil, connerrors.ErrAccountIDRequired
	}

	account, err := u.accounts.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, accounterrors.ErrAccountNotFound) {
			return nil, nil, pkgerrors.NewNotFoundErrorf("account %s not found", accountID)
		}
		return nil, nil, pkgerrors.NewInternalError("failed to load account", err)
	}

	pairs, err := u.accounts.ListChannelPairs(ctx, accountID)
	if err != nil {
		return nil, nil, pkgerrors.NewInternalError("failed to load channel pairs", err)
	}
	return account, pairs, nil
}

func checkAccount(account accountentities.Account) error {
	if account.ID == "" {
		return connerrors.ErrAccountIDRequired
	}
	return validator.ValidateCredentials(account.APIID, account.APIHash, account.PhoneNumber)
}

func params(account accountentities.Account, sess string) telegram.Params {
	return telegram.Params{
		AccountID:   account.ID,
		APIID:       account.APIID,
		APIHash:     account.APIHash,
		PhoneNumber: account.PhoneNumber,
		Session:     sess,
	}
}

// relayTo returns the listener callback relaying fresh batches of one account
func (u *UseCase) relayTo(accountID string, pairs []accountentities.ChannelPair, client deps.ProtocolClient) listener.OnMessages {
	return func(ctx context.Context, fresh []msgentities.Message) {
		u.relay.Relay(ctx, msgbusiness.Batch{
			AccountID:   accountID,
			Pairs:       pairs,
			Messages:    fresh,
			Republisher: client,
		})
	}
}
