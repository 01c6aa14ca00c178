package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/deps"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/entities"
	accounterrors "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/errors"
)

// Repository implements deps.AccountRepository using PostgreSQL
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new PostgreSQL account repository
func NewRepository(db *gorm.DB) deps.AccountRepository {
	return &Repository{db: db}
}

// GetAccount returns the account with the given id
func (r *Repository) GetAccount(ctx context.Context, accountID string) (*entities.Account, error) {
	if accountID == "" {
		return nil, accounterrors.ErrEmptyAccountID
	}

	var model entities.AccountModel
	if err := r.db.WithContext(ctx).Where("id = ?", accountID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, accounterrors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return model.ToEntity(), nil
}

// ListChannelPairs returns all channel pairs of an account, active or not
func (r *Repository) ListChannelPairs(ctx context.Context, accountID string) ([]entities.ChannelPair, error) {
	if accountID == "" {
		return nil, accounterrors.ErrEmptyAccountID
	}

	var models []entities.ChannelPairModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list channel pairs: %w", err)
	}

	pairs := make([]entities.ChannelPair, 0, len(models))
	for i := range models {
		pairs = append(pairs, models[i].ToEntity())
	}

	return pairs, nil
}
