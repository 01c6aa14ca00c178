// Package listener keeps one realtime listener per account: a periodic
// history poll merged with pushed updates, deduplicated and handed to a
// callback.
package listener

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/connector-service/config"
	accountentities "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/entities"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/entities"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/metrics"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/telegram"
	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

// Source is the part of a protocol client a listener consumes
type Source interface {
	ListenToChannels(ctx context.Context, channels []string) ([]telegram.ListenResult, error)
	UnlistenChannels(ctx context.Context, channels []string) error
	FetchMessages(ctx context.Context, channel string, limit int) ([]entities.Message, error)
	Updates() <-chan entities.Message
}

// SessionStore is the part of the session store a listener consumes
type SessionStore interface {
	Exists(ctx context.Context, accountID string) (bool, error)
	Clear(ctx context.Context, accountID string) error
}

// OnMessages receives each fresh, deduplicated batch
type OnMessages func(ctx context.Context, fresh []entities.Message)

// Registry owns the running listeners, one per account
type Registry struct {
	cfg      *config.ListenerConfig
	sessions SessionStore
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	mu      sync.Mutex
	handles map[string]*Handle
}

// NewRegistry creates an empty listener registry
func NewRegistry(cfg *config.ListenerConfig, sessions SessionStore, m *metrics.Metrics, logger zerolog.Logger) *Registry {
	return &Registry{
		cfg:      cfg,
		sessions: sessions,
		metrics:  m,
		logger:   logger.With().Str("component", "listener_registry").Logger(),
		handles:  make(map[string]*Handle),
	}
}

// Precheck verifies the preconditions of Setup without any remote call and
// returns the distinct source channels of the active pairs.
func (r *Registry) Precheck(ctx context.Context, accountID string, pairs []accountentities.ChannelPair) ([]string, error) {
	ok, err := r.sessions.Exists(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to read session", err)
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.KindAuthenticationRequired, "account has no stored session; connect and verify first")
	}

	sources := activeSources(pairs)
	if len(sources) == 0 {
		return nil, pkgerrors.New(pkgerrors.KindNoChannelsConfigured, "no active channel pair has a source channel")
	}
	return sources, nil
}

// Setup subscribes the account's source channels, backfills recent history
// and starts polling. A listener already running for the account is stopped
// and replaced.
func (r *Registry) Setup(
	ctx context.Context,
	accountID string,
	source Source,
	pairs []accountentities.ChannelPair,
	onMessages OnMessages,
) (*Handle, error) {
	sources, err := r.Precheck(ctx, accountID, pairs)
	if err != nil {
		return nil, err
	}

	if prev, ok := r.Get(accountID); ok {
		_ = prev.Stop(ctx)
	}

	results, err := source.ListenToChannels(ctx, sources)
	if err != nil {
		return nil, err
	}

	channels := make([]string, 0, len(results))
	var firstErr string
	for _, res := range results {
		if res.Success {
			channels = append(channels, res.Channel)
		} else if firstErr == "" {
			firstErr = res.Channel + ": " + res.Error
		}
	}
	if len(channels) == 0 {
		return nil, pkgerrors.Newf(pkgerrors.KindProtocolRejection, "no channel could be subscribed (%s)", firstErr)
	}

	h := newHandle(r, accountID, channels, results, source, onMessages)

	if err := h.poll(ctx); err != nil {
		h.cancel()
		_ = source.UnlistenChannels(ctx, channels)
		r.clearSession(accountID, "backfill_auth_failure")
		return nil, err
	}

	r.mu.Lock()
	r.handles[accountID] = h
	count := len(r.handles)
	r.mu.Unlock()
	r.metrics.UpdateActiveListeners(count)

	h.start()

	r.logger.Info().
		Str("account_id", accountID).
		Strs("channels", channels).
		Dur("poll_interval", r.cfg.PollInterval).
		Msg("Listener started")

	return h, nil
}

// Get returns the running listener of an account
func (r *Registry) Get(accountID string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[accountID]
	return h, ok
}

// Stop stops the account's listener; a missing listener is not an error
func (r *Registry) Stop(ctx context.Context, accountID string) error {
	h, ok := r.Get(accountID)
	if !ok {
		return nil
	}
	return h.Stop(ctx)
}

// StopAll stops every running listener
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.Lock()
	handles := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	for _, h := range handles {
		_ = h.Stop(ctx)
	}
}

// Count returns the number of running listeners
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

func (r *Registry) remove(h *Handle) {
	r.mu.Lock()
	if cur, ok := r.handles[h.accountID]; ok && cur == h {
		delete(r.handles, h.accountID)
	}
	count := len(r.handles)
	r.mu.Unlock()
	r.metrics.UpdateActiveListeners(count)
}

func (r *Registry) clearSession(accountID, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), clearTimeout)
	defer cancel()

	if err := r.sessions.Clear(ctx, accountID); err != nil {
		r.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to clear rejected session")
		return
	}
	r.metrics.RecordSessionClear(reason)
	r.logger.Warn().Str("account_id", accountID).Str("reason", reason).Msg("Stored session cleared")
}

func activeSources(pairs []accountentities.ChannelPair) []string {
	seen := make(map[string]struct{}, len(pairs))
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if !p.IsActive {
			continue
		}
		src := telegram.NormalizeChannel(p.SourceChannel)
		if src == "" {
			continue
		}
		key := strings.ToLower(src)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, src)
	}
	return out
}
