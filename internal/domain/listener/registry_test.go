package listener

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/NewsFlow/services/connector-service/config"
	accountentities "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/entities"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/entities"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/metrics"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/telegram"
	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

type fakeSessions struct {
	mu      sync.Mutex
	stored  map[string]bool
	cleared []string
}

func newFakeSessions(accounts ...string) *fakeSessions {
	s := &fakeSessions{stored: make(map[string]bool)}
	for _, a := range accounts {
		s.stored[a] = true
	}
	return s
}

func (s *fakeSessions) Exists(_ context.Context, accountID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stored[accountID], nil
}

func (s *fakeSessions) Clear(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stored, accountID)
	s.cleared = append(s.cleared, accountID)
	return nil
}

func (s *fakeSessions) wasCleared(accountID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.cleared {
		if a == accountID {
			return true
		}
	}
	return false
}

type fakeSource struct {
	mu         sync.Mutex
	history    map[string][]entities.Message
	fetchErr   error
	failed     map[string]string
	listened   [][]string
	unlistened int
	fetches    int
	updates    chan entities.Message
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		history: make(map[string][]entities.Message),
		failed:  make(map[string]string),
		updates: make(chan entities.Message, 8),
	}
}

func (s *fakeSource) ListenToChannels(_ context.Context, channels []string) ([]telegram.ListenResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listened = append(s.listened, channels)
	out := make([]telegram.ListenResult, 0, len(channels))
	for _, ch := range channels {
		if reason, bad := s.failed[ch]; bad {
			out = append(out, telegram.ListenResult{Channel: ch, Error: reason})
			continue
		}
		out = append(out, telegram.ListenResult{Channel: ch, Success: true})
	}
	return out, nil
}

func (s *fakeSource) UnlistenChannels(context.Context, []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlistened++
	return nil
}

func (s *fakeSource) FetchMessages(_ context.Context, channel string, limit int) ([]entities.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	msgs := s.history[channel]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return append([]entities.Message(nil), msgs...), nil
}

func (s *fakeSource) Updates() <-chan entities.Message { return s.updates }

func (s *fakeSource) setHistory(channel string, msgs ...entities.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[channel] = msgs
}

func (s *fakeSource) setFetchErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchErr = err
}

func (s *fakeSource) counts() (listens, unlistens, fetches int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listened), s.unlistened, s.fetches
}

type collector struct {
	mu      sync.Mutex
	batches [][]entities.Message
}

func (c *collector) onMessages(_ context.Context, fresh []entities.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, fresh)
}

func (c *collector) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.batches {
		n += len(b)
	}
	return n
}

func newTestRegistry(sessions SessionStore, maxMessages int) *Registry {
	cfg := &config.ListenerConfig{
		PollInterval:  time.Hour,
		BackfillLimit: 20,
		MaxMessages:   maxMessages,
	}
	return NewRegistry(cfg, sessions, metrics.GetDefaultMetrics(), zerolog.Nop())
}

func msg(channel string, id int) entities.Message {
	return entities.Message{
		Channel: channel,
		ID:      id,
		Text:    fmt.Sprintf("post %d", id),
		Date:    time.Unix(int64(1700000000+id), 0).UTC(),
	}
}

func pair(source string, active bool) accountentities.ChannelPair {
	return accountentities.ChannelPair{ID: "p-" + source, AccountID: "acc", SourceChannel: source, DestinationChannel: "dest", IsActive: active}
}

func TestSetup_RequiresStoredSession(t *testing.T) {
	src := newFakeSource()
	r := newTestRegistry(newFakeSessions(), 100)

	_, err := r.Setup(context.Background(), "acc", src, []accountentities.ChannelPair{pair("news", true)}, nil)

	require.Error(t, err)
	assert.Equal(t, pkgerrors.KindAuthenticationRequired, pkgerrors.KindOf(err))
	listens, _, fetches := src.counts()
	assert.Zero(t, listens)
	assert.Zero(t, fetches)
}

func TestSetup_NoChannelsConfigured(t *testing.T) {
	src := newFakeSource()
	r := newTestRegistry(newFakeSessions("acc"), 100)

	pairs := []accountentities.ChannelPair{pair("  ", true), pair("inactive", false)}
	_, err := r.Setup(context.Background(), "acc", src, pairs, nil)

	require.Error(t, err)
	assert.Equal(t, pkgerrors.KindNoChannelsConfigured, pkgerrors.KindOf(err))
	listens, _, _ := src.counts()
	assert.Zero(t, listens, "no remote call before the precondition check")
}

func TestSetup_BatchesSubscriptionAndBackfills(t *testing.T) {
	src := newFakeSource()
	src.setHistory("news", msg("news", 2), msg("news", 1))
	src.setHistory("tech", msg("tech", 3))
	sessions := newFakeSessions("acc")
	r := newTestRegistry(sessions, 100)
	c := &collector{}

	pairs := []accountentities.ChannelPair{pair("@News", true), pair("tech", true), pair("news", true)}
	h, err := r.Setup(context.Background(), "acc", src, pairs, c.onMessages)
	require.NoError(t, err)
	defer h.Stop(context.Background())

	src.mu.Lock()
	require.Len(t, src.listened, 1)
	assert.Equal(t, []string{"news", "tech"}, src.listened[0])
	src.mu.Unlock()

	assert.Equal(t, 3, c.total())
	recent := h.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, 3, recent[0].ID, "newest first")
	assert.Equal(t, 1, recent[2].ID)
	assert.Equal(t, 1, r.Count())
}

func TestSetup_AllSubscriptionsFail(t *testing.T) {
	src := newFakeSource()
	src.failed["news"] = "CHANNEL_PRIVATE"
	r := newTestRegistry(newFakeSessions("acc"), 100)

	_, err := r.Setup(context.Background(), "acc", src, []accountentities.ChannelPair{pair("news", true)}, nil)

	require.Error(t, err)
	assert.Equal(t, pkgerrors.KindProtocolRejection, pkgerrors.KindOf(err))
	assert.Zero(t, r.Count())
}

func TestPoll_FiltersDuplicates(t *testing.T) {
	src := newFakeSource()
	src.setHistory("news", msg("news", 1))
	r := newTestRegistry(newFakeSessions("acc"), 100)
	c := &collector{}

	h, err := r.Setup(context.Background(), "acc", src, []accountentities.ChannelPair{pair("news", true)}, c.onMessages)
	require.NoError(t, err)
	defer h.Stop(context.Background())

	src.setHistory("news", msg("news", 2), msg("news", 1))
	require.NoError(t, h.poll(context.Background()))

	assert.Equal(t, 2, c.total())
	c.mu.Lock()
	require.Len(t, c.batches, 2)
	assert.Equal(t, 2, c.batches[1][0].ID)
	assert.Len(t, c.batches[1], 1)
	c.mu.Unlock()
	assert.Len(t, h.Recent(), 2)
}

func TestRecent_IsCapped(t *testing.T) {
	src := newFakeSource()
	var history []entities.Message
	for i := 10; i >= 1; i-- {
		history = append(history, msg("news", i))
	}
	src.setHistory("news", history...)
	r := newTestRegistry(newFakeSessions("acc"), 4)

	h, err := r.Setup(context.Background(), "acc", src, []accountentities.ChannelPair{pair("news", true)}, nil)
	require.NoError(t, err)
	defer h.Stop(context.Background())

	recent := h.Recent()
	require.Len(t, recent, 4)
	assert.Equal(t, 10, recent[0].ID)
	assert.Equal(t, 7, recent[3].ID)
}

func TestPushedUpdatesAreMerged(t *testing.T) {
	src := newFakeSource()
	r := newTestRegistry(newFakeSessions("acc"), 100)
	c := &collector{}

	h, err := r.Setup(context.Background(), "acc", src, []accountentities.ChannelPair{pair("news", true)}, c.onMessages)
	require.NoError(t, err)
	defer h.Stop(context.Background())

	src.updates <- msg("news", 5)
	src.updates <- msg("news", 5)

	require.Eventually(t, func() bool { return c.total() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 5, h.Recent()[0].ID)
}

func TestTick_SkipsWhilePollInFlight(t *testing.T) {
	src := newFakeSource()
	r := newTestRegistry(newFakeSessions("acc"), 100)

	h, err := r.Setup(context.Background(), "acc", src, []accountentities.ChannelPair{pair("news", true)}, nil)
	require.NoError(t, err)
	defer h.Stop(context.Background())

	_, _, before := src.counts()
	h.polling.Store(true)
	h.tick()
	_, _, after := src.counts()

	assert.Equal(t, before, after)
	h.polling.Store(false)
}

func TestPollAuthFailure_ClearsSessionAndStops(t *testing.T) {
	src := newFakeSource()
	sessions := newFakeSessions("acc")
	r := newTestRegistry(sessions, 100)

	h, err := r.Setup(context.Background(), "acc", src, []accountentities.ChannelPair{pair("news", true)}, nil)
	require.NoError(t, err)

	src.setFetchErr(pkgerrors.New(pkgerrors.KindAuthenticationRequired, "AUTH_KEY_UNREGISTERED"))
	h.tick()

	require.Eventually(t, func() bool { return r.Count() == 0 }, time.Second, 10*time.Millisecond)
	assert.True(t, sessions.wasCleared("acc"))
	_, unlistens, _ := src.counts()
	assert.Equal(t, 1, unlistens)
}

func TestPollTransportFailure_KeepsListening(t *testing.T) {
	src := newFakeSource()
	sessions := newFakeSessions("acc")
	r := newTestRegistry(sessions, 100)

	h, err := r.Setup(context.Background(), "acc", src, []accountentities.ChannelPair{pair("news", true)}, nil)
	require.NoError(t, err)
	defer h.Stop(context.Background())

	src.setFetchErr(pkgerrors.New(pkgerrors.KindTransportFailure, "timeout"))
	require.NoError(t, h.poll(context.Background()))

	assert.Equal(t, 1, r.Count())
	assert.False(t, sessions.wasCleared("acc"))
}

func TestStop_IsIdempotent(t *testing.T) {
	src := newFakeSource()
	r := newTestRegistry(newFakeSessions("acc"), 100)
	c := &collector{}

	h, err := r.Setup(context.Background(), "acc", src, []accountentities.ChannelPair{pair("news", true)}, c.onMessages)
	require.NoError(t, err)

	require.NoError(t, h.Stop(context.Background()))
	require.NoError(t, h.Stop(context.Background()))
	require.NoError(t, r.Stop(context.Background(), "acc"))

	_, unlistens, _ := src.counts()
	assert.Equal(t, 1, unlistens)
	assert.Zero(t, r.Count())

	h.deliver(context.Background(), []entities.Message{msg("news", 9)})
	assert.Zero(t, c.total(), "nothing is delivered after stop")
}

func TestSetup_ReplacesRunningListener(t *testing.T) {
	src := newFakeSource()
	r := newTestRegistry(newFakeSessions("acc"), 100)
	pairs := []accountentities.ChannelPair{pair("news", true)}

	first, err := r.Setup(context.Background(), "acc", src, pairs, nil)
	require.NoError(t, err)
	second, err := r.Setup(context.Background(), "acc", src, pairs, nil)
	require.NoError(t, err)
	defer second.Stop(context.Background())

	got, ok := r.Get("acc")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.NotSame(t, first, second)
	assert.Equal(t, 1, r.Count())
}
