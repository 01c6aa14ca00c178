package deps

import (
	"context"
)

// ChannelPairsChangedHandler reacts to channel pair changes of an account
type ChannelPairsChangedHandler interface {
	HandleChannelPairsChanged(ctx context.Context, accountID string) error
}
