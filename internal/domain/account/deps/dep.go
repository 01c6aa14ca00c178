package deps

import (
	"context"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/entities"
)

// AccountRepository reads accounts and channel pairs owned by the dashboard
type AccountRepository interface {
	GetAccount(ctx context.Context, accountID string) (*entities.Account, error)
	ListChannelPairs(ctx context.Context, accountID string) ([]entities.ChannelPair, error)
}
