package memory

import (
	"context"
	"sync"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/entities"
	accounterrors "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/errors"
)

// Repository implements deps.AccountRepository using in-memory storage
type Repository struct {
	mu       sync.RWMutex
	accounts map[string]entities.Account
	pairs    map[string][]entities.ChannelPair
}

// NewRepository creates a new in-memory account repository
func NewRepository() *Repository {
	return &Repository{
		accounts: make(map[string]entities.Account),
		pairs:    make(map[string][]entities.ChannelPair),
	}
}

// PutAccount stores or replaces an account
func (r *Repository) PutAccount(account entities.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.ID] = account
}

// PutChannelPairs replaces the channel pairs of an account
func (r *Repository) PutChannelPairs(accountID string, pairs []entities.ChannelPair) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs[accountID] = append([]entities.ChannelPair(nil), pairs...)
}

// GetAccount returns the account with the given id
func (r *Repository) GetAccount(ctx context.Context, accountID string) (*entities.Account, error) {
	if accountID == "" {
		return nil, accounterrors.ErrEmptyAccountID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[accountID]
	if !ok {
		return nil, accounterrors.ErrAccountNotFound
	}
	return &account, nil
}

// ListChannelPairs returns a copy of the channel pairs of an account
func (r *Repository) ListChannelPairs(ctx context.Context, accountID string) ([]entities.ChannelPair, error) {
	if accountID == "" {
		return nil, accounterrors.ErrEmptyAccountID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]entities.ChannelPair(nil), r.pairs[accountID]...), nil
}
