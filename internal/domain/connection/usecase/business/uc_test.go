package business

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountentities "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/entities"
	connerrors "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/connection/errors"
	msgentities "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/entities"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/telegram"
	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

func storedSession(t *testing.T, h *harness, accountID string) (string, bool) {
	t.Helper()
	s, ok, err := h.sessions.Get(context.Background(), accountID)
	require.NoError(t, err)
	return s, ok
}

func TestConnect_InvalidCredentialsFailFast(t *testing.T) {
	h := newHarness()
	acc := testAccount()
	acc.APIID = "abc"

	_, err := h.uc.Connect(context.Background(), acc, "")

	require.Error(t, err)
	assert.Equal(t, pkgerrors.KindInvalidCredentials, pkgerrors.KindOf(err))
	assert.Zero(t, h.factory.count())
}

func TestConnect_RequestsCodeWithoutSession(t *testing.T) {
	h := newHarness()

	res, err := h.uc.Connect(context.Background(), testAccount(), "no-session")
	require.NoError(t, err)

	assert.False(t, res.Authenticated)
	assert.True(t, res.CodeNeeded)
	assert.Equal(t, "hash-1", res.PhoneCodeHash)
	assert.Equal(t, 1, h.uc.challenges.len())

	_, ok := storedSession(t, h, "acc-1")
	assert.False(t, ok, "a pending challenge is never persisted")
}

func TestConnect_ResumesStoredSession(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.sessions.Put(context.Background(), "acc-1", "stored"))

	res, err := h.uc.Connect(context.Background(), testAccount(), "")
	require.NoError(t, err)

	assert.True(t, res.Authenticated)
	assert.Equal(t, "stored", res.Session)
	assert.Equal(t, "stored", h.factory.last().params.Session)

	st, err := h.uc.Status(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.True(t, st.Connected)
	assert.Equal(t, telegram.StateAuthorized, st.AuthState)
	assert.True(t, st.HasSession)
}

func TestConnect_PersistsSessionHint(t *testing.T) {
	h := newHarness()

	res, err := h.uc.Connect(context.Background(), testAccount(), "  hinted  ")
	require.NoError(t, err)

	assert.True(t, res.Authenticated)
	s, ok := storedSession(t, h, "acc-1")
	require.True(t, ok)
	assert.Equal(t, "hinted", s)
}

func TestConnect_InterimSessionIsNeverStored(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.factory.configure = func(c *fakeClient) {
		c.exported = "interim-key"
		c.authorized = false
		c.outcome = telegram.ConnectOutcome{CodeNeeded: true, PhoneCodeHash: "hash-1"}
	}

	res, err := h.uc.Connect(ctx, testAccount(), "")
	require.NoError(t, err)
	require.True(t, res.CodeNeeded)
	assert.Equal(t, "interim-key", res.Session)

	res, err = h.uc.Connect(ctx, testAccount(), res.Session)
	require.NoError(t, err)
	assert.True(t, res.CodeNeeded)

	_, ok := storedSession(t, h, "acc-1")
	assert.False(t, ok, "a session awaiting its code is never persisted")

	st, err := h.uc.Status(ctx, "acc-1")
	require.NoError(t, err)
	assert.False(t, st.HasSession)
}

func TestListen_UnauthorizedHintIsNotStored(t *testing.T) {
	h := newHarness()
	h.factory.configure = func(c *fakeClient) { c.authorized = false }

	_, err := h.uc.Listen(context.Background(), testAccount(), []string{"news"}, "interim-key")

	assert.ErrorIs(t, err, connerrors.ErrNotAuthorized)
	_, ok := storedSession(t, h, "acc-1")
	assert.False(t, ok)
}

func TestListen_AuthorizedHintIsStored(t *testing.T) {
	h := newHarness()

	_, err := h.uc.Listen(context.Background(), testAccount(), []string{"news"}, "hinted")
	require.NoError(t, err)

	s, ok := storedSession(t, h, "acc-1")
	require.True(t, ok)
	assert.Equal(t, "hinted", s)
}

func TestConnect_RetriesTransportFailures(t *testing.T) {
	h := newHarness()
	h.factory.configure = func(c *fakeClient) {
		c.connectErrs = []error{
			pkgerrors.New(pkgerrors.KindTransportFailure, "timeout"),
			pkgerrors.New(pkgerrors.KindTransportFailure, "timeout"),
		}
	}

	res, err := h.uc.Connect(context.Background(), testAccount(), "")
	require.NoError(t, err)

	assert.True(t, res.CodeNeeded)
	assert.Equal(t, 3, h.factory.last().connects)
}

func TestConnect_GivesUpAfterTwoRetries(t *testing.T) {
	h := newHarness()
	h.factory.configure = func(c *fakeClient) {
		for i := 0; i < 5; i++ {
			c.connectErrs = append(c.connectErrs, pkgerrors.New(pkgerrors.KindTransportFailure, "timeout"))
		}
	}

	_, err := h.uc.Connect(context.Background(), testAccount(), "")

	require.Error(t, err)
	assert.Equal(t, pkgerrors.KindTransportFailure, pkgerrors.KindOf(err))
	assert.Equal(t, 3, h.factory.last().connects)
	assert.True(t, h.factory.last().wasDisconnected())
}

func TestConnect_DoesNotRetryRejections(t *testing.T) {
	h := newHarness()
	h.factory.configure = func(c *fakeClient) {
		c.connectErrs = []error{pkgerrors.New(pkgerrors.KindProtocolRejection, "PHONE_NUMBER_BANNED")}
	}

	_, err := h.uc.Connect(context.Background(), testAccount(), "")

	require.Error(t, err)
	assert.Equal(t, pkgerrors.KindProtocolRejection, pkgerrors.KindOf(err))
	assert.Equal(t, 1, h.factory.last().connects)
}

func TestConnect_RejectedSessionIsClearedAndLoginRestarts(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.sessions.Put(context.Background(), "acc-1", "revoked"))
	h.factory.configure = func(c *fakeClient) {
		if c.params.Session == "revoked" {
			c.connectErrs = []error{pkgerrors.New(pkgerrors.KindAuthenticationRequired, "SESSION_REVOKED")}
		}
	}

	res, err := h.uc.Connect(context.Background(), testAccount(), "")
	require.NoError(t, err)

	assert.True(t, res.CodeNeeded)
	assert.Equal(t, 2, h.factory.count())
	_, ok := storedSession(t, h, "acc-1")
	assert.False(t, ok)
}

func TestConnect_ConcurrentCallsShareOneFlight(t *testing.T) {
	h := newHarness()
	release := make(chan struct{})
	started := make(chan struct{})
	h.factory.configure = func(c *fakeClient) {
		c.block = release
		c.started = started
	}

	var wg sync.WaitGroup
	results := make([]string, 2)
	errs := make([]error, 2)
	call := func(i int) {
		defer wg.Done()
		res, err := h.uc.Connect(context.Background(), testAccount(), "")
		errs[i] = err
		if res != nil {
			results[i] = res.PhoneCodeHash
		}
	}

	wg.Add(1)
	go call(0)
	<-started
	wg.Add(1)
	go call(1)

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, 1, h.factory.count())
}

func TestVerify_StoresSessionOnSuccess(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	res, err := h.uc.Connect(ctx, testAccount(), "")
	require.NoError(t, err)

	res, err = h.uc.Verify(ctx, testAccount(), " 12345 ", res.PhoneCodeHash, "")
	require.NoError(t, err)

	assert.True(t, res.Authenticated)
	assert.Equal(t, "verified-12345-hash-1", res.Session)
	s, ok := storedSession(t, h, "acc-1")
	require.True(t, ok)
	assert.Equal(t, res.Session, s)
	assert.Zero(t, h.uc.challenges.len())
	assert.Equal(t, 1, h.factory.count(), "the connecting client is reused")
}

func TestVerify_WrongCodeKeepsStoredSession(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.sessions.Put(ctx, "acc-1", "old"))
	h.factory.configure = func(c *fakeClient) {
		c.outcome = telegram.ConnectOutcome{CodeNeeded: true, PhoneCodeHash: "hash-2"}
		c.verifyErr = pkgerrors.New(pkgerrors.KindInvalidVerificationCode, "PHONE_CODE_INVALID")
	}

	res, err := h.uc.Connect(ctx, testAccount(), "")
	require.NoError(t, err)

	_, err = h.uc.Verify(ctx, testAccount(), "00000", res.PhoneCodeHash, "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.KindInvalidVerificationCode, pkgerrors.KindOf(err))

	s, ok := storedSession(t, h, "acc-1")
	require.True(t, ok)
	assert.Equal(t, "old", s)
	assert.Zero(t, h.uc.challenges.len(), "challenge discarded after a failed attempt")
	assert.True(t, h.factory.last().wasDisconnected())
}

func TestVerify_WithoutChallenge(t *testing.T) {
	h := newHarness()

	_, err := h.uc.Verify(context.Background(), testAccount(), "12345", "", "")

	assert.ErrorIs(t, err, connerrors.ErrChallengeExpired)
	assert.Zero(t, h.factory.count())
}

func TestVerify_StatelessWithHintAndHash(t *testing.T) {
	h := newHarness()
	h.factory.configure = func(c *fakeClient) { c.authorized = false }

	res, err := h.uc.Verify(context.Background(), testAccount(), "11111", "hash-x", "interim")
	require.NoError(t, err)

	assert.True(t, res.Authenticated)
	assert.Equal(t, "interim", h.factory.last().params.Session)
}

func TestVerify_AuthorizedClientKeepsListener(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	acc := testAccount()
	h.accounts.PutAccount(acc)
	h.accounts.PutChannelPairs(acc.ID, []accountentities.ChannelPair{
		{ID: "p1", AccountID: acc.ID, SourceChannel: "news", DestinationChannel: "mirror", IsActive: true},
	})
	require.NoError(t, h.sessions.Put(ctx, acc.ID, "stored"))

	_, err := h.uc.StartListener(ctx, acc.ID)
	require.NoError(t, err)
	live := h.factory.last()

	res, err := h.uc.Verify(ctx, acc, "11111", "hash-x", "")
	require.NoError(t, err)

	assert.True(t, res.Authenticated)
	assert.Equal(t, "stored", res.Session)
	assert.Equal(t, 1, h.factory.count())
	assert.False(t, live.wasDisconnected())

	st, err := h.uc.Status(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, st.Listening)

	require.NoError(t, h.uc.StopListener(ctx, acc.ID))
}

func TestVerify_TwoFactorFlow(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.factory.configure = func(c *fakeClient) { c.verifyErr = telegram.ErrPasswordRequired }

	_, err := h.uc.SubmitPassword(ctx, testAccount(), "secret")
	assert.ErrorIs(t, err, connerrors.ErrNoPasswordPending)

	res, err := h.uc.Connect(ctx, testAccount(), "")
	require.NoError(t, err)

	res, err = h.uc.Verify(ctx, testAccount(), "12345", res.PhoneCodeHash, "")
	require.NoError(t, err)
	assert.True(t, res.PasswordNeeded)
	assert.False(t, res.Authenticated)

	res, err = h.uc.SubmitPassword(ctx, testAccount(), "secret")
	require.NoError(t, err)
	assert.True(t, res.Authenticated)
	s, ok := storedSession(t, h, "acc-1")
	require.True(t, ok)
	assert.Equal(t, "password-session", s)
}

func TestDisconnect_KeepsSessionUnlessLogout(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.sessions.Put(ctx, "acc-1", "stored"))

	_, err := h.uc.Connect(ctx, testAccount(), "")
	require.NoError(t, err)
	first := h.factory.last()

	require.NoError(t, h.uc.Disconnect(ctx, "acc-1", false))
	assert.True(t, first.wasDisconnected())
	assert.False(t, first.loggedOut)
	_, ok := storedSession(t, h, "acc-1")
	assert.True(t, ok)

	st, err := h.uc.Status(ctx, "acc-1")
	require.NoError(t, err)
	assert.False(t, st.Connected)
	assert.Equal(t, telegram.StateUnauthorized, st.AuthState)

	_, err = h.uc.Connect(ctx, testAccount(), "")
	require.NoError(t, err)
	second := h.factory.last()

	require.NoError(t, h.uc.Disconnect(ctx, "acc-1", true))
	assert.True(t, second.loggedOut)
	_, ok = storedSession(t, h, "acc-1")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	h := newHarness()

	res, err := h.uc.Validate(context.Background(), testAccount())
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.True(t, res.Reachable)
	assert.False(t, res.Authorized)
	assert.True(t, h.factory.last().wasDisconnected(), "probe clients are not kept")

	acc := testAccount()
	acc.PhoneNumber = "555"
	_, err = h.uc.Validate(context.Background(), acc)
	assert.Equal(t, pkgerrors.KindInvalidCredentials, pkgerrors.KindOf(err))
}

func TestListen_RequiresSession(t *testing.T) {
	h := newHarness()

	_, err := h.uc.Listen(context.Background(), testAccount(), []string{"news"}, "")

	require.Error(t, err)
	assert.Equal(t, pkgerrors.KindAuthenticationRequired, pkgerrors.KindOf(err))
	assert.Zero(t, h.factory.count())
}

func TestListen_SubscribesAndBackfills(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.sessions.Put(context.Background(), "acc-1", "stored"))
	h.factory.configure = func(c *fakeClient) {
		c.history["news"] = []msgentities.Message{{Channel: "news", ID: 1, Text: "hello"}}
	}

	res, err := h.uc.Listen(context.Background(), testAccount(), []string{"@News", " "}, "")
	require.NoError(t, err)

	require.Len(t, res.Results, 1)
	assert.True(t, res.Results[0].Success)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "preview: hello", res.Messages[0].FinalText)

	_, err = h.uc.Listen(context.Background(), testAccount(), nil, "")
	assert.Equal(t, pkgerrors.KindNoChannelsConfigured, pkgerrors.KindOf(err))
}

func TestListen_UnauthorizedSessionIsCleared(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.sessions.Put(context.Background(), "acc-1", "stale"))
	h.factory.configure = func(c *fakeClient) { c.authorized = false }

	_, err := h.uc.Listen(context.Background(), testAccount(), []string{"news"}, "")

	assert.ErrorIs(t, err, connerrors.ErrNotAuthorized)
	_, ok := storedSession(t, h, "acc-1")
	assert.False(t, ok)
}

func TestRepost(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.sessions.Put(context.Background(), "acc-1", "stored"))

	err := h.uc.Repost(context.Background(), testAccount(), 0, "a", "b", "")
	assert.Error(t, err)

	require.NoError(t, h.uc.Repost(context.Background(), testAccount(), 7, "source", "target", ""))
	assert.Equal(t, []string{"source->target"}, h.factory.last().reposted)
}

func TestListenerLifecycle(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	acc := testAccount()
	h.accounts.PutAccount(acc)
	h.accounts.PutChannelPairs(acc.ID, []accountentities.ChannelPair{
		{ID: "p1", AccountID: acc.ID, SourceChannel: "@news", DestinationChannel: "mirror", IsActive: true},
	})
	h.factory.configure = func(c *fakeClient) {
		c.history["news"] = []msgentities.Message{
			{Channel: "news", ID: 2, Text: "b", Date: time.Unix(2, 0)},
			{Channel: "news", ID: 1, Text: "a", Date: time.Unix(1, 0)},
		}
	}

	_, err := h.uc.StartListener(ctx, acc.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.KindAuthenticationRequired, pkgerrors.KindOf(err))
	assert.Zero(t, h.factory.count(), "no remote call without a stored session")

	require.NoError(t, h.sessions.Put(ctx, acc.ID, "stored"))

	st, err := h.uc.StartListener(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"news"}, st.Channels)
	assert.Equal(t, 2, st.Recent)
	assert.Equal(t, 2, h.relay.relayed())

	recent, err := h.uc.RecentMessages(acc.ID)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 2, recent[0].ID)

	status, err := h.uc.Status(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, status.Listening)

	require.NoError(t, h.uc.StopListener(ctx, acc.ID))
	assert.ErrorIs(t, h.uc.StopListener(ctx, acc.ID), connerrors.ErrListenerNotFound)
	_, err = h.uc.RecentMessages(acc.ID)
	assert.ErrorIs(t, err, connerrors.ErrListenerNotFound)
}

func TestHandleChannelPairsChanged(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	acc := testAccount()
	h.accounts.PutAccount(acc)
	h.accounts.PutChannelPairs(acc.ID, []accountentities.ChannelPair{
		{ID: "p1", AccountID: acc.ID, SourceChannel: "news", IsActive: true},
	})
	require.NoError(t, h.sessions.Put(ctx, acc.ID, "stored"))

	require.NoError(t, h.uc.HandleChannelPairsChanged(ctx, "other"))

	_, err := h.uc.StartListener(ctx, acc.ID)
	require.NoError(t, err)

	h.accounts.PutChannelPairs(acc.ID, []accountentities.ChannelPair{
		{ID: "p1", AccountID: acc.ID, SourceChannel: "news", IsActive: true},
		{ID: "p2", AccountID: acc.ID, SourceChannel: "tech", IsActive: true},
	})
	require.NoError(t, h.uc.HandleChannelPairsChanged(ctx, acc.ID))

	st, err := h.uc.ListenerStatus(acc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"news", "tech"}, st.Channels)

	h.accounts.PutChannelPairs(acc.ID, nil)
	require.NoError(t, h.uc.HandleChannelPairsChanged(ctx, acc.ID))
	_, err = h.uc.ListenerStatus(acc.ID)
	assert.ErrorIs(t, err, connerrors.ErrListenerNotFound)
}

func TestShutdown(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.sessions.Put(context.Background(), "acc-1", "stored"))
	_, err := h.uc.Connect(context.Background(), testAccount(), "")
	require.NoError(t, err)

	h.uc.Shutdown(context.Background())

	assert.True(t, h.factory.last().wasDisconnected())
	assert.Zero(t, h.uc.clients.count())
}
