package deps

import (
	"context"

	accountentities "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/entities"
	connentities "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/connection/entities"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/entities"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/usecase/business"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/telegram"
)

// ProtocolClient is one account's protocol client as used by the orchestrator
type ProtocolClient interface {
	AccountID() string
	State() telegram.AuthState
	IsAuthenticated(ctx context.Context) (bool, error)
	Connect(ctx context.Context) (telegram.ConnectOutcome, error)
	VerifyCode(ctx context.Context, code, phoneCodeHash string) error
	SubmitPassword(ctx context.Context, password string) error
	Validate(ctx context.Context) (telegram.ProbeResult, error)
	ListenToChannels(ctx context.Context, channels []string) ([]telegram.ListenResult, error)
	UnlistenChannels(ctx context.Context, channels []string) error
	FetchMessages(ctx context.Context, channel string, limit int) ([]entities.Message, error)
	Updates() <-chan entities.Message
	RepostMessage(ctx context.Context, messageID int, source, destination string) error
	SendMessage(ctx context.Context, destination, text string) error
	Session(ctx context.Context) (string, error)
	LogOut(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// ClientFactory builds protocol clients
type ClientFactory interface {
	Create(p telegram.Params) (ProtocolClient, error)
}

// ClientFactoryFunc adapts a function to ClientFactory
type ClientFactoryFunc func(p telegram.Params) (ProtocolClient, error)

// Create calls f(p)
func (f ClientFactoryFunc) Create(p telegram.Params) (ProtocolClient, error) {
	return f(p)
}

// SessionStore persists session strings per account
type SessionStore interface {
	Get(ctx context.Context, accountID string) (string, bool, error)
	Put(ctx context.Context, accountID, value string) error
	Clear(ctx context.Context, accountID string) error
	Exists(ctx context.Context, accountID string) (bool, error)
}

// Relay processes fresh listener batches
type Relay interface {
	Relay(ctx context.Context, batch business.Batch) []entities.ProcessedMessage
	Preview(msgs []entities.Message) []entities.Message
}

// Service is the connection orchestrator as seen by its transports
type Service interface {
	Connect(ctx context.Context, account accountentities.Account, sessionHint string) (*connentities.ConnectResult, error)
	Verify(ctx context.Context, account accountentities.Account, code, phoneCodeHash, sessionHint string) (*connentities.ConnectResult, error)
	SubmitPassword(ctx context.Context, account accountentities.Account, password string) (*connentities.ConnectResult, error)
	Disconnect(ctx context.Context, accountID string, logout bool) error
	Status(ctx context.Context, accountID string) (*connentities.Status, error)
	Validate(ctx context.Context, account accountentities.Account) (*connentities.ValidateResult, error)
	Listen(ctx context.Context, account accountentities.Account, channelNames []string, sessionHint string) (*connentities.ListenResult, error)
	Repost(ctx context.Context, account accountentities.Account, messageID int, source, target, sessionHint string) error

	StartListener(ctx context.Context, accountID string) (*connentities.ListenerStatus, error)
	StopListener(ctx context.Context, accountID string) error
	ListenerStatus(accountID string) (*connentities.ListenerStatus, error)
	RecentMessages(accountID string) ([]entities.Message, error)
}
