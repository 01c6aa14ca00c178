package business

import (
	"context"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/connection/entities"
	connerrors "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/connection/errors"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/listener"
	msgentities "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/entities"
	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

// StartListener starts, or restarts, the realtime listener of an account
// over its stored channel pairs
func (u *UseCase) StartListener(ctx context.Context, accountID string) (*entities.ListenerStatus, error) {
	account, pairs, err := u.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if _, err := u.listeners.Precheck(ctx, accountID, pairs); err != nil {
		return nil, err
	}

	client, err := u.resume(ctx, *account, "")
	if err != nil {
		return nil, err
	}

	h, err := u.listeners.Setup(ctx, accountID, client, pairs, u.relayTo(accountID, pairs, client))
	if err != nil {
		return nil, err
	}
	return listenerStatus(h), nil
}

// StopListener stops the realtime listener of an account
func (u *UseCase) StopListener(ctx context.Context, accountID string) error {
	if _, ok := u.listeners.Get(accountID); !ok {
		return connerrors.ErrListenerNotFound
	}
	return u.listeners.Stop(ctx, accountID)
}

// ListenerStatus describes the running listener of an account
func (u *UseCase) ListenerStatus(accountID string) (*entities.ListenerStatus, error) {
	h, ok := u.listeners.Get(accountID)
	if !ok {
		return nil, connerrors.ErrListenerNotFound
	}
	return listenerStatus(h), nil
}

// RecentMessages returns the messages forwarded by the account's listener,
// newest first
func (u *UseCase) RecentMessages(accountID string) ([]msgentities.Message, error) {
	h, ok := u.listeners.Get(accountID)
	if !ok {
		return nil, connerrors.ErrListenerNotFound
	}
	return h.Recent(), nil
}

// HandleChannelPairsChanged restarts a running listener so it picks up the
// account's current pairs. Accounts without a listener are ignored.
func (u *UseCase) HandleChannelPairsChanged(ctx context.Context, accountID string) error {
	if _, ok := u.listeners.Get(accountID); !ok {
		u.logger.Debug().Str("account_id", accountID).Msg("Channel pairs changed, no listener running")
		return nil
	}

	_, err := u.StartListener(ctx, accountID)
	if err == nil {
		u.logger.Info().Str("account_id", accountID).Msg("Listener restarted after channel pair change")
		return nil
	}

	if pkgerrors.KindOf(err).Retryable() {
		return err
	}

	// The pairs can no longer be listened to; the old subscription is stale.
	u.logger.Warn().Err(err).Str("account_id", accountID).Msg("Listener stopped after channel pair change")
	return u.listeners.Stop(ctx, accountID)
}

func listenerStatus(h *listener.Handle) *entities.ListenerStatus {
	return &entities.ListenerStatus{
		AccountID: h.AccountID(),
		Channels:  h.Channels(),
		Results:   h.Results(),
		Recent:    len(h.Recent()),
	}
}
