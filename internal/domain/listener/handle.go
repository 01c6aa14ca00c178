package listener

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/entities"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/telegram"
	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

const (
	clearTimeout = 10 * time.Second

	// seenFactor bounds the dedupe set relative to the recent list
	seenFactor = 10
	minSeen    = 1000
)

// Handle is one running listener
type Handle struct {
	accountID  string
	channels   []string
	results    []telegram.ListenResult
	source     Source
	onMessages OnMessages
	registry   *Registry
	logger     zerolog.Logger

	interval      time.Duration
	backfillLimit int
	maxMessages   int
	seenLimit     int

	mu        sync.Mutex
	stopped   bool
	seen      map[string]struct{}
	seenOrder []string
	recent    []entities.Message

	polling  atomic.Bool
	inflight sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

func newHandle(
	r *Registry,
	accountID string,
	channels []string,
	results []telegram.ListenResult,
	source Source,
	onMessages OnMessages,
) *Handle {
	ctx, cancel := context.WithCancel(context.Background())

	maxMessages := r.cfg.MaxMessages
	if maxMessages <= 0 {
		maxMessages = 100
	}
	seenLimit := maxMessages * seenFactor
	if seenLimit < minSeen {
		seenLimit = minSeen
	}

	return &Handle{
		accountID:     accountID,
		channels:      channels,
		results:       results,
		source:        source,
		onMessages:    onMessages,
		registry:      r,
		logger:        r.logger.With().Str("account_id", accountID).Logger(),
		interval:      r.cfg.PollInterval,
		backfillLimit: r.cfg.BackfillLimit,
		maxMessages:   maxMessages,
		seenLimit:     seenLimit,
		seen:          make(map[string]struct{}),
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}
}

// AccountID returns the account the listener belongs to
func (h *Handle) AccountID() string { return h.accountID }

// Channels returns the subscribed channels
func (h *Handle) Channels() []string {
	out := make([]string, len(h.channels))
	copy(out, h.channels)
	return out
}

// Results returns the per-channel subscription results
func (h *Handle) Results() []telegram.ListenResult {
	out := make([]telegram.ListenResult, len(h.results))
	copy(out, h.results)
	return out
}

// Recent returns the forwarded messages, newest first
func (h *Handle) Recent() []entities.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]entities.Message, len(h.recent))
	copy(out, h.recent)
	return out
}

// Stop cancels polling and waits for it to finish, unsubscribes the channels
// and removes the listener from its registry. Safe to call more than once.
func (h *Handle) Stop(ctx context.Context) error {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.stopped = true
		h.mu.Unlock()

		h.cancel()
		<-h.done
		h.inflight.Wait()

		if err := h.source.UnlistenChannels(ctx, h.channels); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to unlisten channels")
		}

		h.registry.remove(h)
		h.logger.Info().Msg("Listener stopped")
	})
	return nil
}

func (h *Handle) start() {
	go h.run()
}

func (h *Handle) run() {
	defer close(h.done)

	interval := h.interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	updates := h.source.Updates()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.tick()
		case msg, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			h.deliver(h.ctx, []entities.Message{msg})
		}
	}
}

// tick starts a poll unless the previous one is still running
func (h *Handle) tick() {
	if !h.polling.CompareAndSwap(false, true) {
		h.registry.metrics.RecordPollSkipped()
		h.logger.Debug().Msg("Previous poll still running, tick skipped")
		return
	}

	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		defer h.polling.Store(false)

		if err := h.poll(h.ctx); err != nil {
			h.registry.clearSession(h.accountID, "poll_auth_failure")
			go func() { _ = h.Stop(context.Background()) }()
		}
	}()
}

// poll fetches recent history of every channel and delivers what is new.
// Only an authentication failure is returned; other failures are logged.
func (h *Handle) poll(ctx context.Context) error {
	start := time.Now()
	var batch []entities.Message

	for _, channel := range h.channels {
		msgs, err := h.source.FetchMessages(ctx, channel, h.backfillLimit)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			kind := pkgerrors.KindOf(err)
			h.registry.metrics.RecordPollError(string(kind))
			if kind == pkgerrors.KindAuthenticationRequired {
				h.logger.Warn().Err(err).Str("channel", channel).Msg("Session rejected while polling, stopping listener")
				return err
			}
			h.logger.Warn().Err(err).Str("channel", channel).Msg("Failed to poll channel")
			continue
		}
		batch = append(batch, msgs...)
	}

	h.deliver(ctx, batch)
	h.registry.metrics.RecordPoll(time.Since(start).Seconds())
	return nil
}

// deliver filters duplicates, prepends the fresh messages newest-first to
// the recent list and hands them to the callback.
func (h *Handle) deliver(ctx context.Context, msgs []entities.Message) {
	if len(msgs) == 0 {
		return
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}

	fresh := make([]entities.Message, 0, len(msgs))
	duplicates := 0
	for _, m := range msgs {
		key := m.Key()
		if _, dup := h.seen[key]; dup {
			duplicates++
			continue
		}
		h.remember(key)
		fresh = append(fresh, m)
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		if !fresh[i].Date.Equal(fresh[j].Date) {
			return fresh[i].Date.After(fresh[j].Date)
		}
		return fresh[i].ID > fresh[j].ID
	})

	if len(fresh) > 0 {
		recent := make([]entities.Message, 0, len(fresh)+len(h.recent))
		recent = append(recent, fresh...)
		recent = append(recent, h.recent...)
		if len(recent) > h.maxMessages {
			recent = recent[:h.maxMessages]
		}
		h.recent = recent
	}
	h.mu.Unlock()

	h.registry.metrics.RecordForwarded(len(fresh), duplicates)

	if len(fresh) > 0 && h.onMessages != nil {
		h.onMessages(ctx, fresh)
	}
}

// remember must be called with h.mu held
func (h *Handle) remember(key string) {
	h.seen[key] = struct{}{}
	h.seenOrder = append(h.seenOrder, key)
	if len(h.seenOrder) > h.seenLimit {
		evict := len(h.seenOrder) - h.seenLimit
		for _, k := range h.seenOrder[:evict] {
			delete(h.seen, k)
		}
		h.seenOrder = append([]string(nil), h.seenOrder[evict:]...)
	}
}
